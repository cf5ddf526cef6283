// Package scheduler assembles the control plane's reconciliation jobs
// (spec §5): WorkerMetricsCollection, LabsRefresh, ActivityDetection, and
// the opt-in AutoImportWorkers. Each job walks the active worker set with
// bounded concurrency (golang.org/x/sync/semaphore) and dispatches mediator
// commands per worker, throttled so a worker already refreshed recently
// (by a scheduled tick or a manual API trigger) is skipped rather than
// double-worked (golang.org/x/time/rate, spec §4.2's WorkerRefreshThrottle).
// The teacher's Scheduler owned one fixed-interval placement loop; this
// control plane has no placement problem, so the type generalizes into a
// job builder consumed by pkg/reconciler.Runner instead.
package scheduler
