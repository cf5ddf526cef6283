package commands

import (
	"context"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/types"
)

// StartWorkerInput, StopWorkerInput and TerminateWorkerInput are the
// lifecycle command payloads (spec §4.3).
type StartWorkerInput struct{ WorkerID string }
type StopWorkerInput struct{ WorkerID string }
type TerminateWorkerInput struct{ WorkerID string }

// NewStartWorkerHandler transitions STOPPED -> STARTING, issues the cloud
// start call, then STARTING -> RUNNING, clearing any system-pause flag set
// by a prior auto-idle stop.
func NewStartWorkerHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(StartWorkerInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected StartWorkerInput")
		}

		var result any
		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			result, resultErr = startWorker(ctx, deps, in.WorkerID)
		})
		return result, resultErr
	}
}

func startWorker(ctx context.Context, deps Deps, workerID string) (any, error) {
	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return nil, ctlerrors.NotFound("worker", workerID)
	}
	if !domain.CanTransition(worker.Status, types.WorkerStatusStarting) {
		return nil, ctlerrors.Conflict("worker cannot be started from status " + string(worker.Status))
	}

	agg := domain.NewWorkerAggregate(worker)
	from := worker.Status
	agg.Raise(domain.WorkerStatusChanged{From: from, To: types.WorkerStatusStarting})
	if worker.PausedBySystem {
		agg.Raise(domain.WorkerResumed{})
	}
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return nil, ctlerrors.Internal("persist starting status", err)
	}
	agg.Flush(deps.Events)

	if err := deps.Cloud.Start(ctx, worker.Region, worker.CloudInstanceID); err != nil {
		return nil, err
	}

	agg.Raise(domain.WorkerStatusChanged{From: types.WorkerStatusStarting, To: types.WorkerStatusRunning})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return nil, ctlerrors.Internal("persist running status", err)
	}
	agg.Flush(deps.Events)

	return nil, nil
}

// NewStopWorkerHandler transitions RUNNING -> STOPPING -> STOPPED via the
// cloud stop call.
func NewStopWorkerHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(StopWorkerInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected StopWorkerInput")
		}

		var result any
		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			result, resultErr = stopWorker(ctx, deps, in.WorkerID)
		})
		return result, resultErr
	}
}

func stopWorker(ctx context.Context, deps Deps, workerID string) (any, error) {
	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return nil, ctlerrors.NotFound("worker", workerID)
	}
	if !domain.CanTransition(worker.Status, types.WorkerStatusStopping) {
		return nil, ctlerrors.Conflict("worker cannot be stopped from status " + string(worker.Status))
	}

	agg := domain.NewWorkerAggregate(worker)
	from := worker.Status
	agg.Raise(domain.WorkerStatusChanged{From: from, To: types.WorkerStatusStopping})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return nil, ctlerrors.Internal("persist stopping status", err)
	}
	agg.Flush(deps.Events)

	if err := deps.Cloud.Stop(ctx, worker.Region, worker.CloudInstanceID); err != nil {
		return nil, err
	}

	agg.Raise(domain.WorkerStatusChanged{From: types.WorkerStatusStopping, To: types.WorkerStatusStopped})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return nil, ctlerrors.Internal("persist stopped status", err)
	}
	agg.Flush(deps.Events)

	return nil, nil
}

// NewTerminateWorkerHandler transitions any non-terminal status ->
// TERMINATING -> TERMINATED via the cloud terminate call. It is the only
// lifecycle command allowed from every active status (spec §4.2's special
// "any -> TERMINATING" rule).
func NewTerminateWorkerHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(TerminateWorkerInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected TerminateWorkerInput")
		}

		var result any
		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			result, resultErr = terminateWorker(ctx, deps, in.WorkerID)
		})
		return result, resultErr
	}
}

func terminateWorker(ctx context.Context, deps Deps, workerID string) (any, error) {
	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return nil, ctlerrors.NotFound("worker", workerID)
	}
	if !domain.CanTransition(worker.Status, types.WorkerStatusTerminating) {
		return nil, ctlerrors.Conflict("worker cannot be terminated from status " + string(worker.Status))
	}

	agg := domain.NewWorkerAggregate(worker)
	from := worker.Status
	agg.Raise(domain.WorkerStatusChanged{From: from, To: types.WorkerStatusTerminating})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return nil, ctlerrors.Internal("persist terminating status", err)
	}
	agg.Flush(deps.Events)

	if worker.CloudInstanceID != "" {
		if err := deps.Cloud.Terminate(ctx, worker.Region, worker.CloudInstanceID); err != nil {
			return nil, err
		}
	}

	agg.Raise(domain.WorkerStatusChanged{From: types.WorkerStatusTerminating, To: types.WorkerStatusTerminated})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return nil, ctlerrors.Internal("persist terminated status", err)
	}
	agg.Flush(deps.Events)

	return nil, nil
}
