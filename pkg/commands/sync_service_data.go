package commands

import (
	"context"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/types"
)

// SyncWorkerServiceDataInput is the SyncWorkerServiceData command payload
// (spec §4.3, scheduler job WorkerMetricsCollection's Service-side half).
type SyncWorkerServiceDataInput struct {
	WorkerID string
}

// NewSyncWorkerServiceDataHandler runs the Service-side health sync: one
// Authenticate call followed by four independent read calls, each
// tolerant of the others failing (spec §4.3's decision table). Status is
// derived purely from how many of those reads succeeded: AVAILABLE if at
// least one did, UNAVAILABLE only when every one of them (including
// Authenticate) failed. An Authenticate failure, a read failure or an
// invalid system_health report is recorded via PartialSuccess, not by a
// separate status value; the reads are still attempted after an
// Authenticate failure, and the handler returns a Dependency error only
// when Authenticate and all four reads failed.
func NewSyncWorkerServiceDataHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(SyncWorkerServiceDataInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected SyncWorkerServiceDataInput")
		}

		var result any
		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			result, resultErr = syncServiceData(ctx, deps, in.WorkerID)
		})
		return result, resultErr
	}
}

func syncServiceData(ctx context.Context, deps Deps, workerID string) (any, error) {
	logger := log.WithComponent("commands")

	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return nil, ctlerrors.NotFound("worker", workerID)
	}

	svc, err := serviceFor(deps, worker)
	if err != nil {
		return nil, err
	}

	agg := domain.NewWorkerAggregate(worker)

	var partial bool
	var version string
	var ready bool
	var systemInfo, healthInfo, licenseInfo map[string]any
	var labsCount int
	var successCount int

	authErr := svc.Authenticate(ctx)
	if authErr != nil {
		partial = true
		logger.Warn().Str("worker_id", workerID).Err(authErr).Msg("service authenticate failed")
	}

	if info, err := svc.GetSystemInformation(ctx); err != nil {
		partial = true
		logger.Warn().Str("worker_id", workerID).Err(err).Msg("get_system_information failed")
	} else {
		successCount++
		version = info.Version
		ready = info.Ready
		systemInfo = info.Raw
	}

	if health, err := svc.GetSystemHealth(ctx); err != nil {
		partial = true
		logger.Warn().Str("worker_id", workerID).Err(err).Msg("get_system_health failed")
	} else {
		successCount++
		healthInfo = health.Raw
		if !health.Valid {
			partial = true
		}
	}

	if stats, err := svc.GetSystemStats(ctx); err != nil {
		partial = true
		logger.Warn().Str("worker_id", workerID).Err(err).Msg("get_system_stats failed")
	} else {
		successCount++
		labsCount = stats.RunningNodes
	}

	if licensing, err := svc.GetLicensing(ctx); err != nil {
		partial = true
		logger.Warn().Str("worker_id", workerID).Err(err).Msg("get_licensing failed")
	} else {
		successCount++
		if licensing != nil {
			licenseInfo = licensing.Raw
		}
	}

	status := types.ServiceStatusUnavailable
	if successCount > 0 {
		status = types.ServiceStatusAvailable
	}

	agg.Raise(domain.WorkerServiceUpdated{
		Status:         status,
		Version:        version,
		Ready:          ready,
		LabsCount:      labsCount,
		SystemInfo:     systemInfo,
		HealthInfo:     healthInfo,
		LicenseInfo:    licenseInfo,
		PartialSuccess: partial,
	})

	if err := deps.Store.UpdateWorker(worker); err != nil {
		return nil, ctlerrors.Internal("persist service sync result", err)
	}
	agg.Flush(deps.Events)

	if authErr != nil && successCount == 0 {
		return nil, ctlerrors.Dependency("service authentication failed", authErr)
	}
	return nil, nil
}
