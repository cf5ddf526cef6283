package commands

import (
	"context"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/log"
)

// DeleteLabInput is the DeleteLab command payload for a user-initiated
// delete (spec §4.3). RefreshWorkerLabs removes orphaned records through
// the store directly and does not dispatch this command.
type DeleteLabInput struct {
	WorkerID string
	LabID    string
}

// NewDeleteLabHandler deletes a lab on the Service first, then removes the
// local record; a Service-side 404 is treated as already-deleted (spec
// §4.3's ListLabs/DeleteLab decision table).
func NewDeleteLabHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(DeleteLabInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected DeleteLabInput")
		}

		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			resultErr = deleteLab(ctx, deps, in.WorkerID, in.LabID)
		})
		return nil, resultErr
	}
}

func deleteLab(ctx context.Context, deps Deps, workerID, labID string) error {
	logger := log.WithComponent("commands")

	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return ctlerrors.NotFound("worker", workerID)
	}
	record, err := deps.Store.GetLab(workerID, labID)
	if err != nil {
		return ctlerrors.NotFound("lab", labID)
	}

	svc, err := serviceFor(deps, worker)
	if err != nil {
		return err
	}
	if err := svc.DeleteLab(ctx, labID); err != nil {
		return err
	}

	agg := domain.NewLabAggregate(record)
	agg.Raise(domain.LabDeleted{Reason: "service_delete"})
	if err := deps.Store.DeleteLab(workerID, labID); err != nil {
		// Service already confirmed the delete; it is authoritative. Leave
		// the orphaned local record for the next RefreshWorkerLabs pass.
		logger.Warn().Str("worker_id", workerID).Str("lab_id", labID).Err(err).Msg("local lab deletion failed, leaving orphan for next refresh")
		return nil
	}
	agg.Flush(deps.Events)
	return nil
}
