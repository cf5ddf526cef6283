package commands

import (
	"github.com/fleetlab/corectl/pkg/mediator"
)

// Register installs every command handler into reg, wiring the few
// commands that compose other handlers (BulkImportWorkers dispatches
// ImportWorker; DetectWorkerIdle calls stopWorker) directly to their
// sibling functions rather than back through Dispatch, so a single
// idle-detection pass or bulk import can't recursively apply its own
// registry timeout twice. DetectWorkerIdle is wired to the lock-free
// stopWorker function, not the registered StopWorker HandlerFunc: it
// already holds the worker's KeyedLock when it calls stopWorker, and the
// lock is not reentrant.
func Register(reg *mediator.Registry, deps Deps) {
	importWorker := NewImportWorkerHandler(deps)

	reg.Register(mediator.CommandCreateWorker, NewCreateWorkerHandler(deps))
	reg.Register(mediator.CommandImportWorker, importWorker)
	reg.Register(mediator.CommandBulkImportWorkers, NewBulkImportWorkersHandler(deps, importWorker))
	reg.Register(mediator.CommandSyncWorkerCloudMetrics, NewSyncWorkerCloudMetricsHandler(deps))
	reg.Register(mediator.CommandSyncWorkerServiceData, NewSyncWorkerServiceDataHandler(deps))
	reg.Register(mediator.CommandRefreshWorkerLabs, NewRefreshWorkerLabsHandler(deps))
	reg.Register(mediator.CommandDeleteLab, NewDeleteLabHandler(deps))
	reg.Register(mediator.CommandStartWorker, NewStartWorkerHandler(deps))
	reg.Register(mediator.CommandStopWorker, NewStopWorkerHandler(deps))
	reg.Register(mediator.CommandTerminateWorker, NewTerminateWorkerHandler(deps))
	reg.Register(mediator.CommandSetIdleDetection, NewSetIdleDetectionHandler(deps))
	reg.Register(mediator.CommandDetectWorkerIdle, NewDetectWorkerIdleHandler(deps, stopWorker))
	reg.Register(mediator.CommandUpdateWorkerTags, NewUpdateWorkerTagsHandler(deps))
}
