package api

import (
	"time"

	"github.com/fleetlab/corectl/pkg/types"
)

// WorkerDTO is the wire representation of a Worker returned by the
// create and import routes.
type WorkerDTO struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Region          string            `json:"region"`
	Status          types.WorkerStatus `json:"status"`
	CloudInstanceID string            `json:"cloud_instance_id,omitempty"`
	InstanceType    string            `json:"instance_type,omitempty"`
	ImageName       string            `json:"image_name,omitempty"`
	PublicAddress   string            `json:"public_address,omitempty"`
	PrivateAddress  string            `json:"private_address,omitempty"`
	CloudTags       map[string]string `json:"tags,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CreatedBy       string            `json:"created_by,omitempty"`
}

func workerToDTO(w *types.Worker) WorkerDTO {
	return WorkerDTO{
		ID:              w.ID,
		Name:            w.Name,
		Region:          w.Region,
		Status:          w.Status,
		CloudInstanceID: w.CloudInstanceID,
		InstanceType:    w.InstanceType,
		ImageName:       w.ImageName,
		PublicAddress:   w.PublicAddress,
		PrivateAddress:  w.PrivateAddress,
		CloudTags:       w.CloudTags,
		CreatedAt:       w.CreatedAt,
		CreatedBy:       w.CreatedBy,
	}
}

// WorkerStatusDTO is the projection returned by GET .../status: lifecycle
// status plus each independent health source's last-observed state (spec
// §4.2's multi-source status model).
type WorkerStatusDTO struct {
	ID                   string              `json:"id"`
	Status               types.WorkerStatus  `json:"status"`
	InstanceStateDetail  string              `json:"instance_state_detail,omitempty"`
	SystemStatusDetail   string              `json:"system_status_detail,omitempty"`
	CloudHealthCheckedAt time.Time           `json:"cloud_health_checked_at,omitempty"`
	ServiceStatus        types.ServiceStatus `json:"service_status"`
	ServiceVersion       string              `json:"service_version,omitempty"`
	ServiceReady         bool                `json:"service_ready"`
	ServiceLastSyncedAt  time.Time           `json:"service_last_synced_at,omitempty"`
	IdleDetectionEnabled bool                `json:"idle_detection_enabled"`
	PausedBySystem       bool                `json:"paused_by_system"`
	LastActivityAt       time.Time           `json:"last_activity_at,omitempty"`
}

func workerToStatusDTO(w *types.Worker) WorkerStatusDTO {
	return WorkerStatusDTO{
		ID:                   w.ID,
		Status:               w.Status,
		InstanceStateDetail:  w.InstanceStateDetail,
		SystemStatusDetail:   w.SystemStatusDetail,
		CloudHealthCheckedAt: w.CloudHealthCheckedAt,
		ServiceStatus:        w.ServiceStatus,
		ServiceVersion:       w.ServiceVersion,
		ServiceReady:         w.ServiceReady,
		ServiceLastSyncedAt:  w.ServiceLastSyncedAt,
		IdleDetectionEnabled: w.IsIdleDetectionEnabled,
		PausedBySystem:       w.PausedBySystem,
		LastActivityAt:       w.LastActivityAt,
	}
}

// WorkerMetricsDTO is the projection returned by GET .../metrics: the cloud
// utilization sample plus the Service's last-reported lab count, each
// independently timestamped since they come from distinct sources.
type WorkerMetricsDTO struct {
	ID                      string    `json:"id"`
	CPUPercent              float64   `json:"cpu_percent"`
	MemoryPercent           float64   `json:"memory_percent"`
	DetailedMonitoring      bool      `json:"detailed_monitoring"`
	CloudMetricsCollectedAt time.Time `json:"cloud_metrics_collected_at,omitempty"`
	ServiceLabsCount        int       `json:"service_labs_count"`
	ServiceLastSyncedAt     time.Time `json:"service_last_synced_at,omitempty"`
}

func workerToMetricsDTO(w *types.Worker) WorkerMetricsDTO {
	return WorkerMetricsDTO{
		ID:                      w.ID,
		CPUPercent:              w.CPUPercent,
		MemoryPercent:           w.MemoryPercent,
		DetailedMonitoring:      w.DetailedMonitoring,
		CloudMetricsCollectedAt: w.CloudMetricsCollectedAt,
		ServiceLabsCount:        w.ServiceLabsCount,
		ServiceLastSyncedAt:     w.ServiceLastSyncedAt,
	}
}

// LabDTO is the wire representation of one LabRecord returned by GET
// .../labs.
type LabDTO struct {
	LabID            string          `json:"lab_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	State            string          `json:"state"`
	Owner            types.LabOwner  `json:"owner"`
	NodeCount        int             `json:"node_count"`
	LinkCount        int             `json:"link_count"`
	Groups           []string        `json:"groups,omitempty"`
	ServiceCreatedAt time.Time       `json:"service_created_at"`
	ServiceUpdatedAt time.Time       `json:"service_updated_at"`
	LastSyncedAt     time.Time       `json:"last_synced_at"`
}

func labToDTO(l *types.LabRecord) LabDTO {
	return LabDTO{
		LabID:            l.LabID,
		Title:            l.Title,
		Description:      l.Description,
		State:            l.State,
		Owner:            l.Owner,
		NodeCount:        l.NodeCount,
		LinkCount:        l.LinkCount,
		Groups:           l.Groups,
		ServiceCreatedAt: l.ServiceCreatedAt,
		ServiceUpdatedAt: l.ServiceUpdatedAt,
		LastSyncedAt:     l.LastSyncedAt,
	}
}

func labsToDTOs(labs []*types.LabRecord) []LabDTO {
	dtos := make([]LabDTO, 0, len(labs))
	for _, l := range labs {
		dtos = append(dtos, labToDTO(l))
	}
	return dtos
}
