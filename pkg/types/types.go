package types

import (
	"time"
)

// Worker is the central aggregate: one per managed VM hosting the Service.
// Identity is an opaque control-plane id, independent of the cloud instance
// id (which only exists once the VM has been provisioned or imported).
type Worker struct {
	// Identity & provenance
	ID        string
	Name      string
	CreatedAt time.Time
	CreatedBy string
	Region    string

	// Cloud VM facts
	CloudInstanceID string
	InstanceType    string
	ImageID         string
	ImageName       string
	PublicAddress   string
	PrivateAddress  string
	Subnet          string
	SecurityGroups  []string
	CloudTags       map[string]string

	// Lifecycle status
	Status WorkerStatus

	// Cloud health (source = cloud API)
	InstanceStateDetail string
	SystemStatusDetail  string
	CloudHealthCheckedAt time.Time

	// Cloud utilization (source = cloud metrics)
	CPUPercent              float64
	MemoryPercent           float64
	CloudMetricsCollectedAt time.Time
	DetailedMonitoring      bool

	// Service health (source = Service API)
	ServiceStatus       ServiceStatus
	ServiceVersion      string
	ServiceReady        bool
	ServiceLabsCount    int
	ServiceLastSyncedAt time.Time
	ServiceSystemInfo   map[string]any
	ServiceHealthInfo   map[string]any
	ServiceLicenseInfo  map[string]any

	// Activity & auto-pause
	IsIdleDetectionEnabled bool
	LastActivityAt         time.Time
	IdleSince              time.Time
	PausedBySystem         bool
}

// WorkerStatus is the lifecycle status of a Worker. Transitions are
// constrained by the graph in domain/transitions.go.
type WorkerStatus string

const (
	WorkerStatusPending     WorkerStatus = "PENDING"
	WorkerStatusProvisioned WorkerStatus = "PROVISIONED"
	WorkerStatusRunning     WorkerStatus = "RUNNING"
	WorkerStatusStopping    WorkerStatus = "STOPPING"
	WorkerStatusStopped     WorkerStatus = "STOPPED"
	WorkerStatusStarting    WorkerStatus = "STARTING"
	WorkerStatusTerminating WorkerStatus = "TERMINATING"
	WorkerStatusTerminated  WorkerStatus = "TERMINATED"
	WorkerStatusFailed      WorkerStatus = "FAILED"
	WorkerStatusImported    WorkerStatus = "IMPORTED"
)

// ServiceStatus is the last-observed health of the Service running on a
// worker, as reported by the Service adapter.
type ServiceStatus string

const (
	ServiceStatusUnknown     ServiceStatus = "UNKNOWN"
	ServiceStatusUnavailable ServiceStatus = "UNAVAILABLE"
	ServiceStatusAvailable   ServiceStatus = "AVAILABLE"
)

// IsActive reports whether a worker still participates in reconciliation
// (the scheduler's active-worker set excludes TERMINATED and FAILED).
func (w *Worker) IsActive() bool {
	return w.Status != WorkerStatusTerminated && w.Status != WorkerStatusFailed
}

// LabOwner identifies the Service-side user who owns a lab.
type LabOwner struct {
	Username string
	FullName string
}

// LabFieldChange records the before/after of one changed field in an
// operation-history entry.
type LabFieldChange struct {
	Old string
	New string
}

// LabOperation is one entry in a LabRecord's bounded operation-history ring.
type LabOperation struct {
	Timestamp     time.Time
	PreviousState string
	NewState      string
	ChangedFields map[string]LabFieldChange
}

// MaxLabOperationHistory bounds LabRecord.OperationHistory; the oldest entry
// is evicted once the ring is full.
const MaxLabOperationHistory = 50

// LabRecord is the local projection of one Service-side lab. The unique key
// is (WorkerID, LabID).
type LabRecord struct {
	LocalID     string
	WorkerID    string
	LabID       string
	Title       string
	Description string
	Notes       string
	State       string
	Owner       LabOwner
	NodeCount   int
	LinkCount   int
	Groups      []string

	ServiceCreatedAt time.Time
	ServiceUpdatedAt time.Time

	FirstSeenAt  time.Time
	LastSyncedAt time.Time

	OperationHistory []LabOperation
}

// AppendOperation appends an operation-history entry, evicting the oldest
// entry once the ring exceeds MaxLabOperationHistory.
func (l *LabRecord) AppendOperation(op LabOperation) {
	l.OperationHistory = append(l.OperationHistory, op)
	if len(l.OperationHistory) > MaxLabOperationHistory {
		l.OperationHistory = l.OperationHistory[len(l.OperationHistory)-MaxLabOperationHistory:]
	}
}

// VMFacts is what the cloud adapter reports about a single VM, used when
// listing or describing instances (e.g. during import/bulk-import).
type VMFacts struct {
	InstanceID     string
	InstanceType   string
	ImageID        string
	State          string // cloud-native instance-state string, e.g. "running"
	PublicAddress  string
	PrivateAddress string
	Subnet         string
	SecurityGroups []string
	Tags           map[string]string
	LaunchedAt     time.Time
}

// CloudStatusDetail is the result of a cloud describe-status call.
type CloudStatusDetail struct {
	InstanceStateDetail string
	SystemStatusDetail  string
}

// Utilization is the result of a cloud metrics read.
type Utilization struct {
	CPUPercent    float64
	MemoryPercent float64
}

// RunInstanceSpec is the input to the cloud adapter's RunInstance call.
type RunInstanceSpec struct {
	Name           string
	Region         string
	InstanceType   string
	ImageID        string
	SecurityGroups []string
	Tags           map[string]string
}

// ServiceSystemInformation is the (unauthenticated) system_information
// response from the Service.
type ServiceSystemInformation struct {
	Version string
	Ready   bool
	Raw     map[string]any
}

// ServiceSystemHealth is the system_health response from the Service.
type ServiceSystemHealth struct {
	Valid bool
	Raw   map[string]any
}

// ServiceSystemStats is the system_stats response from the Service.
type ServiceSystemStats struct {
	RunningNodes int
	Raw          map[string]any
}

// ServiceLicensing is the licensing response from the Service.
type ServiceLicensing struct {
	Raw map[string]any
}

// ServiceLab is one entry returned by the Service's list-labs call.
type ServiceLab struct {
	ID          string
	Title       string
	Description string
	Notes       string
	State       string
	Owner       LabOwner
	NodeCount   int
	LinkCount   int
	Groups      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
