package domain

import (
	"testing"

	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerAggregateRaiseAppliesAndQueues(t *testing.T) {
	w := &types.Worker{ID: "w-1"}
	agg := NewWorkerAggregate(w)

	agg.Raise(WorkerCreated{CreatedBy: "alice"})
	agg.Raise(WorkerProvisioned{CloudInstanceID: "i-123"})

	assert.Equal(t, types.WorkerStatusProvisioned, w.Status)
	assert.Equal(t, "i-123", w.CloudInstanceID)
	assert.Equal(t, "alice", w.CreatedBy)
	assert.Len(t, agg.Pending(), 2)
}

func TestWorkerAggregateFlushPublishesInOrderThenSnapshot(t *testing.T) {
	broker := events.NewBroker(8)
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	w := &types.Worker{ID: "w-1"}
	agg := NewWorkerAggregate(w)
	agg.Raise(WorkerCreated{CreatedBy: "alice"})
	agg.Raise(WorkerProvisioned{CloudInstanceID: "i-123"})
	agg.Flush(broker)

	env, ok := sub.Next()
	require.True(t, ok)
	assert.Equal(t, events.WorkerCreated, env.Type)

	env, ok = sub.Next()
	require.True(t, ok)
	assert.Equal(t, events.WorkerProvisioned, env.Type)

	env, ok = sub.Next()
	require.True(t, ok)
	assert.Equal(t, events.WorkerSnapshot, env.Type)

	assert.Empty(t, agg.Pending())
}

func TestWorkerAggregateFlushWithNoPendingEventsSkipsSnapshot(t *testing.T) {
	broker := events.NewBroker(8)
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	agg := NewWorkerAggregate(&types.Worker{ID: "w-1"})
	agg.Flush(broker)

	assert.Equal(t, 1, broker.SubscriberCount())
	_, ok := sub.TryNext()
	assert.False(t, ok)
}

func TestLabAggregateUpdateRecordsOperationHistory(t *testing.T) {
	l := &types.LabRecord{WorkerID: "w-1", LabID: "lab-1", State: "STARTED"}
	agg := NewLabAggregate(l)

	agg.Raise(LabUpdated{Snapshot: types.ServiceLab{
		ID:    "lab-1",
		Title: "New title",
		State: "STOPPED",
	}})

	require.Len(t, l.OperationHistory, 1)
	op := l.OperationHistory[0]
	assert.Equal(t, "STARTED", op.PreviousState)
	assert.Equal(t, "STOPPED", op.NewState)
	assert.Contains(t, op.ChangedFields, "state")
	assert.Contains(t, op.ChangedFields, "title")
}

func TestLabAggregateTouchedProducesNoEnvelope(t *testing.T) {
	broker := events.NewBroker(8)
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	agg := NewLabAggregate(&types.LabRecord{WorkerID: "w-1", LabID: "lab-1"})
	agg.Raise(LabTouched{})
	agg.Flush(broker)

	_, ok := sub.TryNext()
	assert.False(t, ok)
}
