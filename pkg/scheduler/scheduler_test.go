package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/corectl/pkg/config"
	"github.com/fleetlab/corectl/pkg/mediator"
	"github.com/fleetlab/corectl/pkg/storage"
	"github.com/fleetlab/corectl/pkg/types"
)

func newTestScheduler(t *testing.T) (*Scheduler, storage.Store) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := mediator.NewRegistry(5 * time.Second)

	return New(store, reg, config.Config{WorkerRefreshThrottle: time.Hour}, NewThrottle(time.Hour)), store
}

func TestActiveWorkersExcludesTerminalStatuses(t *testing.T) {
	sched, store := newTestScheduler(t)

	require.NoError(t, store.CreateWorker(&types.Worker{ID: "w-running", Status: types.WorkerStatusRunning}))
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "w-terminated", Status: types.WorkerStatusTerminated}))
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "w-failed", Status: types.WorkerStatusFailed}))

	active, err := sched.activeWorkers()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "w-running", active[0].ID)
}

func TestForEachWorkerSkipsThrottledWorkers(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "w-1", Status: types.WorkerStatusRunning}))

	reg := mediator.NewRegistry(time.Second)
	throttle := NewThrottle(time.Hour)
	throttle.Allow("w-1") // consume the one allowed pass up front

	sched := New(store, reg, config.Config{}, throttle)

	var calls int
	err = sched.forEachWorker(context.Background(), "test", 4, func(ctx context.Context, w *types.Worker) mediator.OperationResult {
		calls++
		return mediator.OperationResult{Status: mediator.StatusOK}
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestForEachWorkerRunsUnthrottledWorkers(t *testing.T) {
	sched, store := newTestScheduler(t)
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "w-1", Status: types.WorkerStatusRunning}))

	var calls int
	err := sched.forEachWorker(context.Background(), "test", 4, func(ctx context.Context, w *types.Worker) mediator.OperationResult {
		calls++
		return mediator.OperationResult{Status: mediator.StatusOK}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestJobsOmitsAutoImportWhenDisabled(t *testing.T) {
	sched, _ := newTestScheduler(t)
	jobs := sched.Jobs()
	for _, j := range jobs {
		assert.NotEqual(t, "AutoImportWorkers", j.Name)
	}
}

func TestJobsIncludesAutoImportWhenEnabled(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := mediator.NewRegistry(time.Second)
	sched := New(store, reg, config.Config{AutoImportWorkersEnabled: true, AutoImportWorkersInterval: time.Hour}, NewThrottle(time.Hour))

	var found bool
	for _, j := range sched.Jobs() {
		if j.Name == "AutoImportWorkers" {
			found = true
		}
	}
	assert.True(t, found)
}
