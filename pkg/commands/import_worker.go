package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/storage"
	"github.com/fleetlab/corectl/pkg/types"
)

// ImportWorkerInput is the ImportWorker command payload.
type ImportWorkerInput struct {
	Region          string
	CloudInstanceID string
}

// ImportWorkerResult is returned on success.
type ImportWorkerResult struct {
	WorkerID string
}

// NewImportWorkerHandler adopts a pre-existing VM as a Worker, rejecting a
// cloud instance id already tracked (spec §4.3).
func NewImportWorkerHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(ImportWorkerInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected ImportWorkerInput")
		}

		if existing, err := deps.Store.GetWorkerByCloudInstanceID(in.CloudInstanceID); err == nil {
			return nil, ctlerrors.Conflict("cloud instance already imported as worker " + existing.ID)
		} else if err != storage.ErrNotFound {
			return nil, ctlerrors.Internal("look up existing worker by cloud instance id", err)
		}

		facts, err := describeOneInstance(ctx, deps, in.Region, in.CloudInstanceID)
		if err != nil {
			return nil, err
		}

		worker := &types.Worker{ID: uuid.New().String(), Region: in.Region}
		agg := domain.NewWorkerAggregate(worker)
		agg.Raise(domain.WorkerImported{Facts: facts})

		if err := deps.Store.CreateWorker(worker); err != nil {
			return nil, ctlerrors.Internal("persist imported worker", err)
		}
		agg.Flush(deps.Events)

		return ImportWorkerResult{WorkerID: worker.ID}, nil
	}
}

func describeOneInstance(ctx context.Context, deps Deps, region, cloudInstanceID string) (types.VMFacts, error) {
	instances, err := deps.Cloud.ListInstances(ctx, region)
	if err != nil {
		return types.VMFacts{}, err
	}
	for _, f := range instances {
		if f.InstanceID == cloudInstanceID {
			return f, nil
		}
	}
	return types.VMFacts{}, ctlerrors.NotFound("cloud instance", cloudInstanceID)
}
