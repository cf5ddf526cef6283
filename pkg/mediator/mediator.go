package mediator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/metrics"
)

// CommandType names one command in the pipeline (spec §4.3's command
// catalog), mirroring the teacher FSM's Command.Op string.
type CommandType string

const (
	CommandCreateWorker          CommandType = "create_worker"
	CommandImportWorker          CommandType = "import_worker"
	CommandBulkImportWorkers     CommandType = "bulk_import_workers"
	CommandSyncWorkerCloudMetrics CommandType = "sync_worker_cloud_metrics"
	CommandSyncWorkerServiceData CommandType = "sync_worker_service_data"
	CommandRefreshWorkerLabs     CommandType = "refresh_worker_labs"
	CommandDeleteLab             CommandType = "delete_lab"
	CommandStartWorker           CommandType = "start_worker"
	CommandStopWorker            CommandType = "stop_worker"
	CommandTerminateWorker       CommandType = "terminate_worker"
	CommandSetIdleDetection      CommandType = "set_idle_detection"
	CommandDetectWorkerIdle      CommandType = "detect_worker_idle"
	CommandUpdateWorkerTags      CommandType = "update_worker_tags"
)

// ResultStatus is the coarse outcome of one dispatched command (spec §4.3).
type ResultStatus string

const (
	StatusOK      ResultStatus = "OK"
	StatusSkipped ResultStatus = "SKIPPED"
	StatusError   ResultStatus = "ERROR"
)

// OperationResult is Dispatch's uniform return value, independent of which
// handler ran.
type OperationResult struct {
	Status  ResultStatus
	Data    any
	Kind    ctlerrors.Code
	Message string
}

// HandlerFunc executes one command. Handlers return the command-specific
// payload (which Dispatch wraps into OperationResult.Data) or an error,
// which is expected to be (or wrap) a *ctlerrors.Error.
type HandlerFunc func(ctx context.Context, payload any) (any, error)

// Registry maps a CommandType to the handler that executes it, the
// generalization of the teacher FSM's Apply switch statement into a table
// (spec §9).
type Registry struct {
	handlers map[CommandType]HandlerFunc
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRegistry creates an empty Registry. defaultTimeout bounds every
// dispatched handler unless the caller's context already carries a tighter
// deadline.
func NewRegistry(defaultTimeout time.Duration) *Registry {
	return &Registry{
		handlers: make(map[CommandType]HandlerFunc),
		timeout:  defaultTimeout,
		logger:   log.WithComponent("mediator"),
	}
}

// Register installs the handler for a CommandType. Registering the same
// CommandType twice is a startup-time programmer error and panics, matching
// the teacher's fail-fast registration style.
func (r *Registry) Register(cmd CommandType, handler HandlerFunc) {
	if _, exists := r.handlers[cmd]; exists {
		panic(fmt.Sprintf("mediator: command %s already registered", cmd))
	}
	r.handlers[cmd] = handler
}

// Dispatch runs the handler registered for cmd, applying the registry's
// default timeout, structured logging, and OperationResult normalization.
func (r *Registry) Dispatch(ctx context.Context, cmd CommandType, payload any) OperationResult {
	handler, ok := r.handlers[cmd]
	if !ok {
		return OperationResult{
			Status:  StatusError,
			Kind:    ctlerrors.CodeInternal,
			Message: fmt.Sprintf("no handler registered for command %s", cmd),
		}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := handler(ctx, payload)
	duration := time.Since(start)
	metrics.CommandDuration.WithLabelValues(string(cmd)).Observe(duration.Seconds())

	if err == nil {
		r.logger.Debug().Str("command", string(cmd)).Dur("duration", duration).Msg("command completed")
		return OperationResult{Status: StatusOK, Data: data}
	}

	if ce, ok := ctlerrors.As(err); ok {
		r.logger.Warn().Str("command", string(cmd)).Str("code", string(ce.Code)).Err(ce).Msg("command failed")
		return OperationResult{Status: StatusError, Kind: ce.Code, Message: ce.Error(), Data: data}
	}

	r.logger.Error().Str("command", string(cmd)).Err(err).Msg("command failed with unclassified error")
	return OperationResult{Status: StatusError, Kind: ctlerrors.CodeInternal, Message: err.Error(), Data: data}
}
