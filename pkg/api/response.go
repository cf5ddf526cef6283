package api

import (
	"encoding/json"
	"net/http"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/mediator"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Code: http.StatusText(status), Message: message})
}

// writeResult translates a mediator.OperationResult into the HTTP response:
// OK/SKIPPED map to okStatus with the handler's Data, ERROR maps through
// ctlerrors' code-to-status table.
func writeResult(w http.ResponseWriter, res mediator.OperationResult, okStatus int) {
	switch res.Status {
	case mediator.StatusOK, mediator.StatusSkipped:
		writeJSON(w, okStatus, res.Data)
	default:
		status := httpStatusForCode(res.Kind)
		writeJSON(w, status, errorBody{Code: string(res.Kind), Message: res.Message})
	}
}

// httpStatusForCode mirrors ctlerrors.HTTPStatus's table without needing a
// constructed *ctlerrors.Error, since Dispatch only hands back the Code.
func httpStatusForCode(code ctlerrors.Code) int {
	return ctlerrors.HTTPStatus(ctlerrors.New(code, ""))
}
