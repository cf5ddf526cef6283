package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishDeliversToAllSubscribers(t *testing.T) {
	b := NewBroker(4)
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)

	b.Publish(&Envelope{Type: WorkerCreated, Data: map[string]any{"worker_id": "w-1"}})

	env1, ok := sub1.TryNext()
	require.True(t, ok)
	assert.Equal(t, WorkerCreated, env1.Type)

	env2, ok := sub2.TryNext()
	require.True(t, ok)
	assert.Equal(t, WorkerCreated, env2.Type)
}

func TestSubscriberDropsOldestWhenFull(t *testing.T) {
	b := NewBroker(2)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Envelope{Type: WorkerCreated, Data: map[string]any{"seq": 1}})
	b.Publish(&Envelope{Type: WorkerProvisioned, Data: map[string]any{"seq": 2}})
	b.Publish(&Envelope{Type: WorkerStatusChanged, Data: map[string]any{"seq": 3}})

	assert.True(t, sub.Lagged())
	assert.Equal(t, int64(1), sub.LagCount())

	env, ok := sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, WorkerProvisioned, env.Type, "oldest envelope should have been dropped")

	env, ok = sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, WorkerStatusChanged, env.Type)
}

func TestSubscriberLaggedClearsOnRead(t *testing.T) {
	b := NewBroker(1)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Envelope{Type: WorkerCreated})
	b.Publish(&Envelope{Type: WorkerProvisioned})

	assert.True(t, sub.Lagged())
	assert.False(t, sub.Lagged(), "Lagged should clear after being read")
}

func TestUnsubscribeClosesSubscriberAndUnblocksNext(t *testing.T) {
	b := NewBroker(4)
	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	done := make(chan bool, 1)
	go func() {
		_, ok := sub.Next()
		done <- ok
	}()

	b.Unsubscribe(sub)
	assert.False(t, <-done)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestNewBrokerDefaultsQueueSize(t *testing.T) {
	b := NewBroker(0)
	assert.Equal(t, defaultQueueSize, b.queueSize)
}
