package domain

import (
	"time"

	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/types"
)

// LabEvent mutates a *types.LabRecord and describes itself as a wire
// envelope, mirroring WorkerEvent for the LabRecord aggregate (spec §4.2).
type LabEvent interface {
	Apply(l *types.LabRecord)
	Envelope(l *types.LabRecord) *events.Envelope
}

func labEnvelope(t events.EnvelopeType, l *types.LabRecord, data map[string]any) *events.Envelope {
	if data == nil {
		data = map[string]any{}
	}
	data["worker_id"] = l.WorkerID
	data["lab_id"] = l.LabID
	return &events.Envelope{Type: t, Source: "corectl", Time: time.Now(), Data: data}
}

// LabCreated records first discovery of a Service-side lab during
// RefreshWorkerLabs.
type LabCreated struct {
	Snapshot types.ServiceLab
}

func (e LabCreated) Apply(l *types.LabRecord) {
	now := time.Now()
	l.LabID = e.Snapshot.ID
	l.Title = e.Snapshot.Title
	l.Description = e.Snapshot.Description
	l.Notes = e.Snapshot.Notes
	l.State = e.Snapshot.State
	l.Owner = e.Snapshot.Owner
	l.NodeCount = e.Snapshot.NodeCount
	l.LinkCount = e.Snapshot.LinkCount
	l.Groups = e.Snapshot.Groups
	l.ServiceCreatedAt = e.Snapshot.CreatedAt
	l.ServiceUpdatedAt = e.Snapshot.UpdatedAt
	l.FirstSeenAt = now
	l.LastSyncedAt = now
}

func (e LabCreated) Envelope(l *types.LabRecord) *events.Envelope {
	return labEnvelope(events.LabCreated, l, map[string]any{"title": l.Title})
}

// LabUpdated reconciles a locally known LabRecord against a fresh
// ServiceLab snapshot, recording every changed field in the operation
// history ring (spec §3's LabRecord.OperationHistory invariant).
type LabUpdated struct {
	Snapshot types.ServiceLab
}

func diffString(field, old, new string, changes map[string]types.LabFieldChange) {
	if old != new {
		changes[field] = types.LabFieldChange{Old: old, New: new}
	}
}

func (e LabUpdated) Apply(l *types.LabRecord) {
	changes := map[string]types.LabFieldChange{}
	diffString("title", l.Title, e.Snapshot.Title, changes)
	diffString("description", l.Description, e.Snapshot.Description, changes)
	diffString("notes", l.Notes, e.Snapshot.Notes, changes)
	diffString("state", l.State, e.Snapshot.State, changes)

	prevState := l.State
	l.Title = e.Snapshot.Title
	l.Description = e.Snapshot.Description
	l.Notes = e.Snapshot.Notes
	l.State = e.Snapshot.State
	l.Owner = e.Snapshot.Owner
	l.NodeCount = e.Snapshot.NodeCount
	l.LinkCount = e.Snapshot.LinkCount
	l.Groups = e.Snapshot.Groups
	l.ServiceUpdatedAt = e.Snapshot.UpdatedAt
	l.LastSyncedAt = time.Now()

	if len(changes) > 0 {
		l.AppendOperation(types.LabOperation{
			Timestamp:     l.LastSyncedAt,
			PreviousState: prevState,
			NewState:      e.Snapshot.State,
			ChangedFields: changes,
		})
	}
}

func (e LabUpdated) Envelope(l *types.LabRecord) *events.Envelope {
	return labEnvelope(events.LabUpdated, l, map[string]any{"state": l.State})
}

// LabTouched refreshes LastSyncedAt without any observed field change,
// recording that the lab is still present on the Service side.
type LabTouched struct{}

func (e LabTouched) Apply(l *types.LabRecord) {
	l.LastSyncedAt = time.Now()
}

func (e LabTouched) Envelope(l *types.LabRecord) *events.Envelope {
	return nil
}

// LabDeleted records a lab's removal, either because the Service reported
// it deleted or because RefreshWorkerLabs found it orphaned (no longer
// present in a worker's list-labs response).
type LabDeleted struct {
	Reason string // "service_delete" or "orphaned"
}

func (e LabDeleted) Apply(l *types.LabRecord) {
	l.State = "DELETED"
	l.LastSyncedAt = time.Now()
}

func (e LabDeleted) Envelope(l *types.LabRecord) *events.Envelope {
	return labEnvelope(events.LabDeleted, l, map[string]any{"reason": e.Reason})
}
