package commands

import (
	"fmt"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/serviceadapter"
	"github.com/fleetlab/corectl/pkg/types"
)

// serviceFor resolves the per-worker Service client from its reported
// address and the control plane's shared Service account (spec §4.1).
func serviceFor(deps Deps, w *types.Worker) (serviceadapter.Service, error) {
	addr := w.PublicAddress
	if addr == "" {
		addr = w.PrivateAddress
	}
	if addr == "" {
		return nil, ctlerrors.Conflict("worker has no reachable address yet")
	}
	baseURL := fmt.Sprintf("%s://%s:%s", deps.Config.ServiceScheme, addr, deps.Config.ServicePort)
	return deps.Services.For(baseURL, deps.Config.ServiceUsername, deps.Config.ServicePassword), nil
}
