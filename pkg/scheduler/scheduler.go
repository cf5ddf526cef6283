package scheduler

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/fleetlab/corectl/pkg/commands"
	"github.com/fleetlab/corectl/pkg/config"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/mediator"
	"github.com/fleetlab/corectl/pkg/metrics"
	"github.com/fleetlab/corectl/pkg/reconciler"
	"github.com/fleetlab/corectl/pkg/storage"
	"github.com/fleetlab/corectl/pkg/types"
)

// Scheduler builds the reconciler.Job set from the fleet's current worker
// list, a shared per-worker Throttle, and the command mediator.
type Scheduler struct {
	store    storage.Store
	registry *mediator.Registry
	config   config.Config
	throttle *Throttle
	logger   zerolog.Logger
}

// New builds a Scheduler. The Throttle is shared with the HTTP API's manual
// refresh routes so a recent manual trigger suppresses the next scheduled
// tick for that worker.
func New(store storage.Store, registry *mediator.Registry, cfg config.Config, throttle *Throttle) *Scheduler {
	return &Scheduler{
		store:    store,
		registry: registry,
		config:   cfg,
		throttle: throttle,
		logger:   log.WithComponent("scheduler"),
	}
}

// Jobs returns the reconciler.Job set this control plane runs (spec §5).
// AutoImportWorkers is included only when the operator opted in via
// Config.AutoImportWorkersEnabled.
func (s *Scheduler) Jobs() []reconciler.Job {
	jobs := []reconciler.Job{
		{
			Name:     "WorkerMetricsCollection",
			Interval: s.config.WorkerMetricsPollInterval,
			Tick:     s.tickWorkerMetricsCollection,
		},
		{
			Name:     "LabsRefresh",
			Interval: s.config.LabsRefreshInterval,
			Tick:     s.tickLabsRefresh,
		},
		{
			Name:     "ActivityDetection",
			Interval: s.config.ActivityDetectionInterval,
			Tick:     s.tickActivityDetection,
		},
	}
	if s.config.AutoImportWorkersEnabled {
		jobs = append(jobs, reconciler.Job{
			Name:     "AutoImportWorkers",
			Interval: s.config.AutoImportWorkersInterval,
			Tick:     s.tickAutoImportWorkers,
		})
	}
	return jobs
}

// activeWorkers returns every non-terminal worker (spec §4.2's active set).
func (s *Scheduler) activeWorkers() ([]*types.Worker, error) {
	all, err := s.store.ListWorkers()
	if err != nil {
		return nil, err
	}
	active := make([]*types.Worker, 0, len(all))
	for _, w := range all {
		if w.IsActive() {
			active = append(active, w)
		}
	}
	return active, nil
}

// forEachWorker runs fn for every active worker with bounded concurrency,
// skipping any worker the shared Throttle says was processed too recently.
// It never returns an error itself: per-worker failures are counted and
// logged, matching the command layer's return-exceptions semantics.
func (s *Scheduler) forEachWorker(ctx context.Context, jobName string, maxConcurrency int64, fn func(ctx context.Context, w *types.Worker) mediator.OperationResult) error {
	workers, err := s.activeWorkers()
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(maxConcurrency)
	results := make(chan mediator.OperationResult, len(workers))

	for _, w := range workers {
		if !s.throttle.Allow(w.ID) {
			results <- mediator.OperationResult{Status: mediator.StatusSkipped}
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			results <- mediator.OperationResult{Status: mediator.StatusSkipped}
			continue
		}
		go func(w *types.Worker) {
			defer sem.Release(1)
			results <- fn(ctx, w)
		}(w)
	}

	var processed, skipped, errored int
	for range workers {
		res := <-results
		switch res.Status {
		case mediator.StatusOK:
			processed++
		case mediator.StatusSkipped:
			skipped++
		default:
			errored++
			metrics.CommandsFailedTotal.WithLabelValues(jobName, string(res.Kind)).Inc()
		}
	}

	metrics.ReconciliationItemsTotal.WithLabelValues(jobName, "processed").Add(float64(processed))
	metrics.ReconciliationItemsTotal.WithLabelValues(jobName, "skipped").Add(float64(skipped))
	metrics.ReconciliationItemsTotal.WithLabelValues(jobName, "errors").Add(float64(errored))
	s.logger.Debug().Str("job", jobName).Int("processed", processed).Int("skipped", skipped).Int("errors", errored).Msg("reconciliation tick complete")

	return nil
}

func (s *Scheduler) tickWorkerMetricsCollection(ctx context.Context) error {
	return s.forEachWorker(ctx, "WorkerMetricsCollection", 10, func(ctx context.Context, w *types.Worker) mediator.OperationResult {
		cloudRes := s.registry.Dispatch(ctx, mediator.CommandSyncWorkerCloudMetrics, commands.SyncWorkerCloudMetricsInput{WorkerID: w.ID})
		if w.PublicAddress == "" && w.PrivateAddress == "" {
			return cloudRes
		}
		serviceRes := s.registry.Dispatch(ctx, mediator.CommandSyncWorkerServiceData, commands.SyncWorkerServiceDataInput{WorkerID: w.ID})
		if serviceRes.Status == mediator.StatusError {
			return serviceRes
		}
		return cloudRes
	})
}

func (s *Scheduler) tickLabsRefresh(ctx context.Context) error {
	return s.forEachWorker(ctx, "LabsRefresh", 5, func(ctx context.Context, w *types.Worker) mediator.OperationResult {
		return s.registry.Dispatch(ctx, mediator.CommandRefreshWorkerLabs, commands.RefreshWorkerLabsInput{WorkerID: w.ID})
	})
}

func (s *Scheduler) tickActivityDetection(ctx context.Context) error {
	return s.forEachWorker(ctx, "ActivityDetection", 10, func(ctx context.Context, w *types.Worker) mediator.OperationResult {
		return s.registry.Dispatch(ctx, mediator.CommandDetectWorkerIdle, commands.DetectWorkerIdleInput{WorkerID: w.ID})
	})
}

func (s *Scheduler) tickAutoImportWorkers(ctx context.Context) error {
	res := s.registry.Dispatch(ctx, mediator.CommandBulkImportWorkers, commands.BulkImportWorkersInput{
		Region:    s.config.AutoImportWorkersRegion,
		ImageName: s.config.AutoImportWorkersImage,
	})
	if res.Status == mediator.StatusError {
		s.logger.Warn().Str("job", "AutoImportWorkers").Str("message", res.Message).Msg("auto-import tick failed")
	}
	return nil
}
