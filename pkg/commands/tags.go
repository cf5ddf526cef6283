package commands

import (
	"context"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
)

// UpdateWorkerTagsInput is the UpdateWorkerTags command payload.
type UpdateWorkerTagsInput struct {
	WorkerID string
	Tags     map[string]string
}

// NewUpdateWorkerTagsHandler pushes tags to the cloud provider and records
// the result locally once the adapter call succeeds.
func NewUpdateWorkerTagsHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(UpdateWorkerTagsInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected UpdateWorkerTagsInput")
		}

		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			resultErr = updateWorkerTags(ctx, deps, in.WorkerID, in.Tags)
		})
		return nil, resultErr
	}
}

func updateWorkerTags(ctx context.Context, deps Deps, workerID string, tags map[string]string) error {
	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return ctlerrors.NotFound("worker", workerID)
	}
	if worker.CloudInstanceID == "" {
		return ctlerrors.Conflict("worker has no cloud instance yet")
	}

	if err := deps.Cloud.SetTags(ctx, worker.Region, worker.CloudInstanceID, tags); err != nil {
		return err
	}

	agg := domain.NewWorkerAggregate(worker)
	agg.Raise(domain.WorkerTagsUpdated{Tags: tags})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return ctlerrors.Internal("persist tags", err)
	}
	agg.Flush(deps.Events)
	return nil
}
