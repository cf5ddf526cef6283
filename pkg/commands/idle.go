package commands

import (
	"context"
	"time"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/log"
)

// SetIdleDetectionInput backs both the enable and disable idle-detection
// routes as one command (SPEC_FULL.md Open Question #1: the two REST verbs
// differ only in the boolean they carry, so one handler serves both).
type SetIdleDetectionInput struct {
	WorkerID string
	Enabled  bool
}

func NewSetIdleDetectionHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(SetIdleDetectionInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected SetIdleDetectionInput")
		}

		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			resultErr = setIdleDetection(deps, in.WorkerID, in.Enabled)
		})
		return nil, resultErr
	}
}

func setIdleDetection(deps Deps, workerID string, enabled bool) error {
	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return ctlerrors.NotFound("worker", workerID)
	}
	if worker.IsIdleDetectionEnabled == enabled {
		return nil
	}

	agg := domain.NewWorkerAggregate(worker)
	agg.Raise(domain.WorkerIdleDetectionToggled{Enabled: enabled})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return ctlerrors.Internal("persist idle detection toggle", err)
	}
	agg.Flush(deps.Events)
	return nil
}

// DetectWorkerIdleInput is the scheduler-driven ActivityDetection job's
// per-worker command payload.
type DetectWorkerIdleInput struct {
	WorkerID string
}

// NewDetectWorkerIdleHandler computes whether a RUNNING, idle-detection
// enabled worker has been idle at least Config.IdleWindow and, if so,
// auto-pauses it by calling stopWorker (spec §4.3 scenario S6). stopWorker
// must be the lock-free inner function (not the registered HandlerFunc):
// detectWorkerIdle already holds in.WorkerID's KeyedLock for its own
// duration, and the lock is not reentrant, so calling back through the
// locked handler here would deadlock forever.
func NewDetectWorkerIdleHandler(deps Deps, stopWorker func(ctx context.Context, deps Deps, workerID string) (any, error)) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(DetectWorkerIdleInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected DetectWorkerIdleInput")
		}

		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			resultErr = detectWorkerIdle(ctx, deps, in.WorkerID, stopWorker)
		})
		return nil, resultErr
	}
}

func detectWorkerIdle(ctx context.Context, deps Deps, workerID string, stopWorker func(ctx context.Context, deps Deps, workerID string) (any, error)) error {
	logger := log.WithComponent("commands")

	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return ctlerrors.NotFound("worker", workerID)
	}
	if !worker.IsIdleDetectionEnabled || worker.Status != "RUNNING" {
		return nil
	}
	if worker.LastActivityAt.IsZero() {
		return nil
	}

	idleSince := worker.LastActivityAt
	if !worker.ServiceLastSyncedAt.IsZero() && worker.ServiceLabsCount > 0 {
		// Labs still running on the Service means the worker is not idle
		// regardless of how long ago control-plane activity was observed.
		return nil
	}

	if time.Since(idleSince) < deps.Config.IdleWindow {
		agg := domain.NewWorkerAggregate(worker)
		agg.Raise(domain.WorkerActivityObserved{IdleSince: idleSince})
		if err := deps.Store.UpdateWorker(worker); err != nil {
			return ctlerrors.Internal("persist idle bookkeeping", err)
		}
		agg.Flush(deps.Events)
		return nil
	}

	agg := domain.NewWorkerAggregate(worker)
	agg.Raise(domain.WorkerAutoPaused{})
	if err := deps.Store.UpdateWorker(worker); err != nil {
		return ctlerrors.Internal("persist auto-pause", err)
	}
	agg.Flush(deps.Events)

	logger.Info().Str("worker_id", workerID).Dur("idle_for", time.Since(idleSince)).Msg("auto-pausing idle worker")
	if _, err := stopWorker(ctx, deps, workerID); err != nil {
		logger.Warn().Str("worker_id", workerID).Err(err).Msg("auto-pause stop dispatch failed")
		return err
	}
	return nil
}
