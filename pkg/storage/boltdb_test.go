package storage

import (
	"testing"

	"github.com/fleetlab/corectl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetWorker(t *testing.T) {
	s := openTestStore(t)

	w := &types.Worker{ID: "w-1", Name: "lab-fleet-01", Status: types.WorkerStatusPending}
	require.NoError(t, s.CreateWorker(w))

	got, err := s.GetWorker("w-1")
	require.NoError(t, err)
	assert.Equal(t, "lab-fleet-01", got.Name)
}

func TestGetWorkerNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetWorker("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetWorkerByCloudInstanceID(t *testing.T) {
	s := openTestStore(t)

	w := &types.Worker{ID: "w-1", CloudInstanceID: "i-abc123"}
	require.NoError(t, s.CreateWorker(w))

	got, err := s.GetWorkerByCloudInstanceID("i-abc123")
	require.NoError(t, err)
	assert.Equal(t, "w-1", got.ID)

	_, err = s.GetWorkerByCloudInstanceID("i-does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateWorkerRefreshesCloudIndex(t *testing.T) {
	s := openTestStore(t)

	w := &types.Worker{ID: "w-1"}
	require.NoError(t, s.CreateWorker(w))

	w.CloudInstanceID = "i-xyz"
	require.NoError(t, s.UpdateWorker(w))

	got, err := s.GetWorkerByCloudInstanceID("i-xyz")
	require.NoError(t, err)
	assert.Equal(t, "w-1", got.ID)
}

func TestDeleteWorkerRemovesCloudIndex(t *testing.T) {
	s := openTestStore(t)

	w := &types.Worker{ID: "w-1", CloudInstanceID: "i-abc"}
	require.NoError(t, s.CreateWorker(w))
	require.NoError(t, s.DeleteWorker("w-1"))

	_, err := s.GetWorker("w-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetWorkerByCloudInstanceID("i-abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListWorkers(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateWorker(&types.Worker{ID: "w-1"}))
	require.NoError(t, s.CreateWorker(&types.Worker{ID: "w-2"}))

	workers, err := s.ListWorkers()
	require.NoError(t, err)
	assert.Len(t, workers, 2)
}

func TestLabCRUDAndListByWorker(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateLab(&types.LabRecord{WorkerID: "w-1", LabID: "lab-a", Title: "A"}))
	require.NoError(t, s.CreateLab(&types.LabRecord{WorkerID: "w-1", LabID: "lab-b", Title: "B"}))
	require.NoError(t, s.CreateLab(&types.LabRecord{WorkerID: "w-2", LabID: "lab-c", Title: "C"}))

	labs, err := s.ListLabsByWorker("w-1")
	require.NoError(t, err)
	assert.Len(t, labs, 2)

	got, err := s.GetLab("w-1", "lab-a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)

	require.NoError(t, s.DeleteLab("w-1", "lab-a"))
	_, err = s.GetLab("w-1", "lab-a")
	assert.ErrorIs(t, err, ErrNotFound)

	labs, err = s.ListLabsByWorker("w-1")
	require.NoError(t, err)
	assert.Len(t, labs, 1)
}

func TestListLabsByWorkerDoesNotLeakOtherWorkerPrefixedIDs(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateLab(&types.LabRecord{WorkerID: "w-1", LabID: "lab-a"}))
	require.NoError(t, s.CreateLab(&types.LabRecord{WorkerID: "w-10", LabID: "lab-b"}))

	labs, err := s.ListLabsByWorker("w-1")
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, "w-1", labs[0].WorkerID)
}
