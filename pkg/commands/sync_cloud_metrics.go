package commands

import (
	"context"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/log"
)

// SyncWorkerCloudMetricsInput is the SyncWorkerCloudMetrics command payload
// (spec §4.3, scheduler job WorkerMetricsCollection).
type SyncWorkerCloudMetricsInput struct {
	WorkerID string
}

// NewSyncWorkerCloudMetricsHandler refreshes the cloud-health and
// cloud-utilization slots independently: a failure reading one never blocks
// the other (spec §4.2's multi-source-slot invariant).
func NewSyncWorkerCloudMetricsHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(SyncWorkerCloudMetricsInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected SyncWorkerCloudMetricsInput")
		}

		var result any
		var resultErr error
		deps.Locks.WithLock(in.WorkerID, func() {
			result, resultErr = syncCloudMetrics(ctx, deps, in.WorkerID)
		})
		return result, resultErr
	}
}

func syncCloudMetrics(ctx context.Context, deps Deps, workerID string) (any, error) {
	logger := log.WithComponent("commands")

	worker, err := deps.Store.GetWorker(workerID)
	if err != nil {
		return nil, ctlerrors.NotFound("worker", workerID)
	}
	if worker.CloudInstanceID == "" {
		return nil, ctlerrors.Conflict("worker has no cloud instance yet")
	}

	agg := domain.NewWorkerAggregate(worker)
	var healthErr, utilErr error

	if detail, err := deps.Cloud.DescribeStatus(ctx, worker.Region, worker.CloudInstanceID); err != nil {
		healthErr = err
		logger.Warn().Str("worker_id", workerID).Err(err).Msg("describe_status failed")
	} else {
		agg.Raise(domain.WorkerCloudHealthUpdated{Detail: detail})
	}

	if util, err := deps.Cloud.GetUtilization(ctx, worker.Region, worker.CloudInstanceID); err != nil {
		utilErr = err
		logger.Warn().Str("worker_id", workerID).Err(err).Msg("get_utilization failed")
	} else {
		agg.Raise(domain.WorkerCloudMetricsUpdated{Utilization: util, Monitoring: worker.DetailedMonitoring})
	}

	if len(agg.Pending()) > 0 {
		if err := deps.Store.UpdateWorker(worker); err != nil {
			return nil, ctlerrors.Internal("persist cloud metrics", err)
		}
		agg.Flush(deps.Events)
	}

	if healthErr != nil && utilErr != nil {
		return nil, ctlerrors.Dependency("both cloud health and utilization reads failed", healthErr)
	}
	return nil, nil
}
