package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetlab/corectl/pkg/commands"
	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/mediator"
)

// createWorkerRequest is the JSON body for POST .../workers.
type createWorkerRequest struct {
	Name           string            `json:"name"`
	InstanceType   string            `json:"instance_type"`
	ImageName      string            `json:"image_name"`
	SecurityGroups []string          `json:"security_groups"`
	Tags           map[string]string `json:"tags"`
}

func (s *Server) createWorker(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")

	var req createWorkerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal, _ := principalFrom(r.Context())
	res := s.registry.Dispatch(r.Context(), mediator.CommandCreateWorker, commands.CreateWorkerInput{
		Name:           req.Name,
		Region:         region,
		InstanceType:   req.InstanceType,
		ImageName:      req.ImageName,
		SecurityGroups: req.SecurityGroups,
		Tags:           req.Tags,
		CreatedBy:      principal.Subject,
	})
	writeCommandResult(w, res, http.StatusCreated, s.workerResultToDTO)
}

type importWorkerRequest struct {
	CloudInstanceID string `json:"cloud_instance_id"`
}

func (s *Server) importWorker(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")

	var req importWorkerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res := s.registry.Dispatch(r.Context(), mediator.CommandImportWorker, commands.ImportWorkerInput{
		Region:          region,
		CloudInstanceID: req.CloudInstanceID,
	})
	writeCommandResult(w, res, http.StatusCreated, s.workerResultToDTO)
}

type bulkImportWorkerRequest struct {
	ImageName string `json:"image_name"`
}

func (s *Server) bulkImportWorkers(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")

	var req bulkImportWorkerRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional

	res := s.registry.Dispatch(r.Context(), mediator.CommandBulkImportWorkers, commands.BulkImportWorkersInput{
		Region:    region,
		ImageName: req.ImageName,
	})
	writeResult(w, res, http.StatusOK)
}

func (s *Server) terminateWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := s.registry.Dispatch(r.Context(), mediator.CommandTerminateWorker, commands.TerminateWorkerInput{WorkerID: id})
	writeResult(w, res, http.StatusAccepted)
}

func (s *Server) startWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := s.registry.Dispatch(r.Context(), mediator.CommandStartWorker, commands.StartWorkerInput{WorkerID: id})
	writeResult(w, res, http.StatusOK)
}

func (s *Server) stopWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := s.registry.Dispatch(r.Context(), mediator.CommandStopWorker, commands.StopWorkerInput{WorkerID: id})
	writeResult(w, res, http.StatusOK)
}

// refreshWorker is the manual-refresh route (spec §6): it runs the same
// cloud-metrics/Service-data/labs sync commands the scheduler's ticks run,
// gated by the same shared Throttle so a recent scheduled tick (or a prior
// manual refresh) within the debounce window is rejected rather than
// double-worked (spec §4.4, Open Question #2).
func (s *Server) refreshWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !s.throttle.Allow(id) {
		writeError(w, http.StatusTooManyRequests, "worker refreshed too recently, try again shortly")
		return
	}

	cloudRes := s.registry.Dispatch(r.Context(), mediator.CommandSyncWorkerCloudMetrics, commands.SyncWorkerCloudMetricsInput{WorkerID: id})
	serviceRes := s.registry.Dispatch(r.Context(), mediator.CommandSyncWorkerServiceData, commands.SyncWorkerServiceDataInput{WorkerID: id})
	labsRes := s.registry.Dispatch(r.Context(), mediator.CommandRefreshWorkerLabs, commands.RefreshWorkerLabsInput{WorkerID: id})

	writeJSON(w, http.StatusOK, map[string]mediator.OperationResult{
		"cloud_metrics": cloudRes,
		"service_data":  serviceRes,
		"labs":          labsRes,
	})
}

type updateTagsRequest struct {
	Tags map[string]string `json:"tags"`
}

func (s *Server) updateWorkerTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateTagsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res := s.registry.Dispatch(r.Context(), mediator.CommandUpdateWorkerTags, commands.UpdateWorkerTagsInput{WorkerID: id, Tags: req.Tags})
	writeResult(w, res, http.StatusOK)
}

// setIdleDetection backs both admin-only idle-detection routes (spec §6);
// enabled is fixed per-route rather than read from the body, since the
// unified SetIdleDetection command (Open Question #1) only needs the flag.
func (s *Server) setIdleDetection(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res := s.registry.Dispatch(r.Context(), mediator.CommandSetIdleDetection, commands.SetIdleDetectionInput{WorkerID: id, Enabled: enabled})
		writeResult(w, res, http.StatusOK)
	}
}

func (s *Server) getWorkerStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	worker, err := s.store.GetWorker(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	writeJSON(w, http.StatusOK, workerToStatusDTO(worker))
}

func (s *Server) getWorkerMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	worker, err := s.store.GetWorker(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	writeJSON(w, http.StatusOK, workerToMetricsDTO(worker))
}

func (s *Server) getWorkerLabs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetWorker(id); err != nil {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	labs, err := s.store.ListLabsByWorker(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list labs")
		return
	}
	writeJSON(w, http.StatusOK, labsToDTOs(labs))
}

func (s *Server) deleteLab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	labID := chi.URLParam(r, "labID")
	res := s.registry.Dispatch(r.Context(), mediator.CommandDeleteLab, commands.DeleteLabInput{WorkerID: id, LabID: labID})
	writeResult(w, res, http.StatusOK)
}

// workerResultToDTO loads the full Worker the create/import handler just
// wrote, so create/import responses carry the full WorkerDTO shape
// instead of duplicating the projection in the command's result type.
func (s *Server) workerResultToDTO(workerID string) (any, error) {
	worker, err := s.store.GetWorker(workerID)
	if err != nil {
		return nil, ctlerrors.Internal("load created worker", err)
	}
	return workerToDTO(worker), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeCommandResult writes a mediator.OperationResult whose successful
// Data is a worker-id-bearing result, re-projecting it through toDTO before
// responding.
func writeCommandResult(w http.ResponseWriter, res mediator.OperationResult, okStatus int, toDTO func(workerID string) (any, error)) {
	if res.Status == mediator.StatusError {
		writeResult(w, res, okStatus)
		return
	}

	var workerID string
	switch data := res.Data.(type) {
	case commands.CreateWorkerResult:
		workerID = data.WorkerID
	case commands.ImportWorkerResult:
		workerID = data.WorkerID
	default:
		writeResult(w, res, okStatus)
		return
	}

	dto, err := toDTO(workerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, okStatus, dto)
}
