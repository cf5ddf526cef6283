package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/types"
)

// RefreshWorkerLabsInput is the RefreshWorkerLabs command payload (spec
// §4.3, scheduler job LabsRefresh). It is gated on the worker being RUNNING
// with an AVAILABLE Service status: any other combination is a no-op.
type RefreshWorkerLabsInput struct {
	WorkerID string
}

// RefreshWorkerLabsResult summarizes what the sync found.
type RefreshWorkerLabsResult struct {
	Created int
	Updated int
	Touched int
	Deleted int
}

// NewRefreshWorkerLabsHandler lists a worker's Service-side labs and
// reconciles the local LabRecord set against it: new labs are created,
// changed labs update with a recorded diff, unchanged labs are touched, and
// labs no longer reported are marked orphaned-deleted (spec §4.2/§4.3).
func NewRefreshWorkerLabsHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(RefreshWorkerLabsInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected RefreshWorkerLabsInput")
		}

		var result any
		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			result, resultErr = refreshWorkerLabs(ctx, deps, in.WorkerID)
		})
		return result, resultErr
	}
}

func refreshWorkerLabs(ctx context.Context, deps Deps, workerID string) (any, error) {
	logger := log.WithComponent("commands")

	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return nil, ctlerrors.NotFound("worker", workerID)
	}
	if worker.Status != types.WorkerStatusRunning || worker.ServiceStatus != types.ServiceStatusAvailable {
		return RefreshWorkerLabsResult{}, nil
	}

	svc, err := serviceFor(deps, worker)
	if err != nil {
		return nil, err
	}

	remote, err := svc.ListLabs(ctx)
	if err != nil {
		return nil, err
	}

	local, err := deps.Store.ListLabsByWorker(workerID)
	if err != nil {
		return nil, ctlerrors.Internal("list local labs", err)
	}
	byLabID := make(map[string]*types.LabRecord, len(local))
	for _, l := range local {
		byLabID[l.LabID] = l
	}

	seen := make(map[string]bool, len(remote))
	var result RefreshWorkerLabsResult

	for _, snapshot := range remote {
		seen[snapshot.ID] = true
		existing, found := byLabID[snapshot.ID]
		if !found {
			record := &types.LabRecord{LocalID: uuid.New().String(), WorkerID: workerID, LabID: snapshot.ID}
			agg := domain.NewLabAggregate(record)
			agg.Raise(domain.LabCreated{Snapshot: snapshot})
			if err := deps.Store.CreateLab(record); err != nil {
				logger.Warn().Str("worker_id", workerID).Str("lab_id", snapshot.ID).Err(err).Msg("create lab failed")
				continue
			}
			agg.Flush(deps.Events)
			result.Created++
			continue
		}

		agg := domain.NewLabAggregate(existing)
		before := len(existing.OperationHistory)
		agg.Raise(domain.LabUpdated{Snapshot: snapshot})
		if len(existing.OperationHistory) > before {
			if err := deps.Store.UpdateLab(existing); err != nil {
				logger.Warn().Str("worker_id", workerID).Str("lab_id", snapshot.ID).Err(err).Msg("update lab failed")
				continue
			}
			agg.Flush(deps.Events)
			result.Updated++
		} else {
			agg2 := domain.NewLabAggregate(existing)
			agg2.Raise(domain.LabTouched{})
			if err := deps.Store.UpdateLab(existing); err != nil {
				logger.Warn().Str("worker_id", workerID).Str("lab_id", snapshot.ID).Err(err).Msg("touch lab failed")
				continue
			}
			result.Touched++
		}
	}

	for _, l := range local {
		if seen[l.LabID] {
			continue
		}
		agg := domain.NewLabAggregate(l)
		agg.Raise(domain.LabDeleted{Reason: "orphaned"})
		if err := deps.Store.DeleteLab(workerID, l.LabID); err != nil {
			logger.Warn().Str("worker_id", workerID).Str("lab_id", l.LabID).Err(err).Msg("delete orphaned lab failed")
			continue
		}
		agg.Flush(deps.Events)
		result.Deleted++
	}

	return result, nil
}
