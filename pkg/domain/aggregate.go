package domain

import (
	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/types"
)

// WorkerAggregate wraps a types.Worker with the pending-event list used by
// the command handlers in pkg/commands: a handler raises one or more events
// against the aggregate (mutating State immediately, in memory), the caller
// persists State, and only on successful persistence does it call Flush to
// hand the same events to the broker (spec §4.2/§4.5 ordering guarantee).
type WorkerAggregate struct {
	State   *types.Worker
	pending []WorkerEvent
}

// NewWorkerAggregate wraps an existing worker (loaded from storage, or a
// freshly zero-valued one for a create command).
func NewWorkerAggregate(w *types.Worker) *WorkerAggregate {
	return &WorkerAggregate{State: w}
}

// Raise applies ev to State and queues it for later publication.
func (a *WorkerAggregate) Raise(ev WorkerEvent) {
	ev.Apply(a.State)
	a.pending = append(a.pending, ev)
}

// Pending returns the events raised since the aggregate was created or last
// flushed, without clearing them.
func (a *WorkerAggregate) Pending() []WorkerEvent {
	return a.pending
}

// Flush publishes every pending event's envelope to broker (in raise order)
// followed by one worker.snapshot summarizing the post-mutation state, then
// clears the pending list. Callers must only call Flush after State has been
// durably persisted.
func (a *WorkerAggregate) Flush(broker *events.Broker) {
	if broker == nil {
		a.pending = nil
		return
	}
	for _, ev := range a.pending {
		if env := ev.Envelope(a.State); env != nil {
			broker.Publish(env)
		}
	}
	if len(a.pending) > 0 {
		broker.Publish(Snapshot(a.State))
	}
	a.pending = nil
}

// LabAggregate is the LabRecord analogue of WorkerAggregate.
type LabAggregate struct {
	State   *types.LabRecord
	pending []LabEvent
}

// NewLabAggregate wraps an existing or freshly zero-valued LabRecord.
func NewLabAggregate(l *types.LabRecord) *LabAggregate {
	return &LabAggregate{State: l}
}

// Raise applies ev to State and queues it for later publication.
func (a *LabAggregate) Raise(ev LabEvent) {
	ev.Apply(a.State)
	a.pending = append(a.pending, ev)
}

// Pending returns the events raised since the aggregate was created or last
// flushed, without clearing them.
func (a *LabAggregate) Pending() []LabEvent {
	return a.pending
}

// Flush publishes every pending event's envelope to broker and clears the
// pending list. Callers must only call Flush after State has been durably
// persisted.
func (a *LabAggregate) Flush(broker *events.Broker) {
	if broker == nil {
		a.pending = nil
		return
	}
	for _, ev := range a.pending {
		if env := ev.Envelope(a.State); env != nil {
			broker.Publish(env)
		}
	}
	a.pending = nil
}
