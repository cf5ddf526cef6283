package domain

import (
	"time"

	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/types"
)

// WorkerEvent is one domain event in a Worker aggregate's write path: it
// knows how to mutate a *types.Worker (Apply) and how to describe itself
// as a wire envelope (Envelope) once persistence has succeeded.
type WorkerEvent interface {
	Apply(w *types.Worker)
	Envelope(w *types.Worker) *events.Envelope
}

func baseEnvelope(t events.EnvelopeType, w *types.Worker, data map[string]any) *events.Envelope {
	if data == nil {
		data = map[string]any{}
	}
	data["worker_id"] = w.ID
	return &events.Envelope{Type: t, Source: "corectl", Time: time.Now(), Data: data}
}

// WorkerCreated marks a worker's initial PENDING persistence (saga step 1).
type WorkerCreated struct {
	CreatedBy string
}

func (e WorkerCreated) Apply(w *types.Worker) {
	w.Status = types.WorkerStatusPending
	w.CreatedBy = e.CreatedBy
	w.CreatedAt = time.Now()
}

func (e WorkerCreated) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerCreated, w, map[string]any{"name": w.Name, "region": w.Region})
}

// WorkerProvisioned records a successful cloud run_instance call (saga step 2).
type WorkerProvisioned struct {
	CloudInstanceID string
}

func (e WorkerProvisioned) Apply(w *types.Worker) {
	w.CloudInstanceID = e.CloudInstanceID
	w.Status = types.WorkerStatusProvisioned
}

func (e WorkerProvisioned) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerProvisioned, w, map[string]any{"cloud_instance_id": e.CloudInstanceID})
}

// WorkerProvisionFailed records saga step 3 (compensating failure).
type WorkerProvisionFailed struct {
	Reason              string
	CompensatedInstance string // set iff compensation (terminate) succeeded
}

func (e WorkerProvisionFailed) Apply(w *types.Worker) {
	w.Status = types.WorkerStatusFailed
}

func (e WorkerProvisionFailed) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerProvisionFailed, w, map[string]any{
		"reason":               e.Reason,
		"compensated_instance": e.CompensatedInstance,
	})
}

// WorkerImported assigns the initial cloud facts and a status mapped from
// the VM's cloud state when a pre-existing VM is adopted; IMPORTED is used
// only for a cloud state with no mapping.
type WorkerImported struct {
	Facts types.VMFacts
}

func (e WorkerImported) Apply(w *types.Worker) {
	w.CloudInstanceID = e.Facts.InstanceID
	w.InstanceType = e.Facts.InstanceType
	w.ImageID = e.Facts.ImageID
	w.PublicAddress = e.Facts.PublicAddress
	w.PrivateAddress = e.Facts.PrivateAddress
	w.Subnet = e.Facts.Subnet
	w.SecurityGroups = e.Facts.SecurityGroups
	w.CloudTags = e.Facts.Tags
	w.Status = mapCloudStateToImportedStatus(e.Facts.State)
}

func (e WorkerImported) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerCreated, w, map[string]any{"imported": true, "cloud_instance_id": e.Facts.InstanceID})
}

// mapCloudStateToImportedStatus implements the conservative mapping decided
// in SPEC_FULL.md's Open Question #3: transitional cloud states map to their
// corresponding transitional worker status rather than to RUNNING/STOPPED.
func mapCloudStateToImportedStatus(cloudState string) types.WorkerStatus {
	switch cloudState {
	case "running":
		return types.WorkerStatusRunning
	case "stopped":
		return types.WorkerStatusStopped
	case "stopping":
		return types.WorkerStatusStopping
	case "shutting-down":
		return types.WorkerStatusTerminating
	case "terminated":
		return types.WorkerStatusTerminated
	case "pending":
		return types.WorkerStatusStarting
	default:
		return types.WorkerStatusImported
	}
}

// WorkerStatusChanged is a generic lifecycle transition (start/stop/terminate
// commands and their observed completions).
type WorkerStatusChanged struct {
	From, To types.WorkerStatus
}

func (e WorkerStatusChanged) Apply(w *types.Worker) {
	w.Status = e.To
}

func (e WorkerStatusChanged) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerStatusChanged, w, map[string]any{"from": string(e.From), "to": string(e.To)})
}

// WorkerCloudHealthUpdated is the cloud-API metric slot update (independent
// of WorkerCloudMetricsUpdated, per spec §4.2's multi-source slots).
type WorkerCloudHealthUpdated struct {
	Detail types.CloudStatusDetail
}

func (e WorkerCloudHealthUpdated) Apply(w *types.Worker) {
	w.InstanceStateDetail = e.Detail.InstanceStateDetail
	w.SystemStatusDetail = e.Detail.SystemStatusDetail
	w.CloudHealthCheckedAt = time.Now()
}

func (e WorkerCloudHealthUpdated) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerCloudMetricsUpdated, w, map[string]any{
		"instance_state_detail": e.Detail.InstanceStateDetail,
		"system_status_detail":  e.Detail.SystemStatusDetail,
	})
}

// WorkerCloudMetricsUpdated is the cloud-metrics (CPU/mem) slot update.
type WorkerCloudMetricsUpdated struct {
	Utilization types.Utilization
	Monitoring  bool
}

func (e WorkerCloudMetricsUpdated) Apply(w *types.Worker) {
	w.CPUPercent = e.Utilization.CPUPercent
	w.MemoryPercent = e.Utilization.MemoryPercent
	w.DetailedMonitoring = e.Monitoring
	w.CloudMetricsCollectedAt = time.Now()
}

func (e WorkerCloudMetricsUpdated) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerCloudMetricsUpdated, w, map[string]any{
		"cpu_pct": e.Utilization.CPUPercent,
		"mem_pct": e.Utilization.MemoryPercent,
	})
}

// WorkerServiceUpdated is the Service-API slot update produced by
// SyncWorkerServiceData; PartialSuccess distinguishes a fully healthy sync
// from one where only some sub-calls succeeded (spec §4.3 decision table).
type WorkerServiceUpdated struct {
	Status         types.ServiceStatus
	Version        string
	Ready          bool
	LabsCount      int
	SystemInfo     map[string]any
	HealthInfo     map[string]any
	LicenseInfo    map[string]any
	PartialSuccess bool
}

func (e WorkerServiceUpdated) Apply(w *types.Worker) {
	w.ServiceStatus = e.Status
	if e.Version != "" {
		w.ServiceVersion = e.Version
	}
	w.ServiceReady = e.Ready
	if e.SystemInfo != nil {
		w.ServiceSystemInfo = e.SystemInfo
	}
	if e.HealthInfo != nil {
		w.ServiceHealthInfo = e.HealthInfo
	}
	if e.LicenseInfo != nil {
		w.ServiceLicenseInfo = e.LicenseInfo
	}
	if e.LabsCount > 0 || e.SystemInfo != nil {
		w.ServiceLabsCount = e.LabsCount
	}
	w.ServiceLastSyncedAt = time.Now()
}

func (e WorkerServiceUpdated) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerServiceUpdated, w, map[string]any{
		"status":          string(e.Status),
		"version":         e.Version,
		"partial_success": e.PartialSuccess,
	})
}

// WorkerActivityObserved updates the activity/idle bookkeeping used by
// DetectWorkerIdle.
type WorkerActivityObserved struct {
	LastActivityAt time.Time
	IdleSince      time.Time
}

func (e WorkerActivityObserved) Apply(w *types.Worker) {
	if !e.LastActivityAt.IsZero() {
		w.LastActivityAt = e.LastActivityAt
	}
	w.IdleSince = e.IdleSince
}

func (e WorkerActivityObserved) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerSnapshot, w, nil)
}

// WorkerIdleDetectionToggled implements the unified SetIdleDetection command
// (SPEC_FULL.md Open Question #1).
type WorkerIdleDetectionToggled struct {
	Enabled bool
}

func (e WorkerIdleDetectionToggled) Apply(w *types.Worker) {
	w.IsIdleDetectionEnabled = e.Enabled
}

func (e WorkerIdleDetectionToggled) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerIdleDetectionToggled, w, map[string]any{"enabled": e.Enabled})
}

// WorkerAutoPaused records an idle-triggered pause (spec §4.3 DetectWorkerIdle,
// scenario S6).
type WorkerAutoPaused struct{}

func (e WorkerAutoPaused) Apply(w *types.Worker) {
	w.PausedBySystem = true
}

func (e WorkerAutoPaused) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerPaused, w, nil)
}

// WorkerResumed clears the system-pause flag (e.g. on a subsequent manual
// start).
type WorkerResumed struct{}

func (e WorkerResumed) Apply(w *types.Worker) {
	w.PausedBySystem = false
}

func (e WorkerResumed) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerResumed, w, nil)
}

// WorkerTagsUpdated records a cloud tag update.
type WorkerTagsUpdated struct {
	Tags map[string]string
}

func (e WorkerTagsUpdated) Apply(w *types.Worker) {
	w.CloudTags = e.Tags
}

func (e WorkerTagsUpdated) Envelope(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerSnapshot, w, map[string]any{"tags": e.Tags})
}

// Snapshot builds the worker.snapshot envelope emitted after any
// significant mutation (spec §4.5), carrying the full post-mutation
// projection so late-joining subscribers can resync.
func Snapshot(w *types.Worker) *events.Envelope {
	return baseEnvelope(events.WorkerSnapshot, w, map[string]any{
		"status":         string(w.Status),
		"service_status": string(w.ServiceStatus),
		"cpu_pct":        w.CPUPercent,
		"mem_pct":        w.MemoryPercent,
		"labs_count":     w.ServiceLabsCount,
		"paused_by_system": w.PausedBySystem,
	})
}
