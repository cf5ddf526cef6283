package storage

import "github.com/fleetlab/corectl/pkg/types"

// Store persists Worker and LabRecord aggregates and the indexes the
// command handlers and scheduler need to look them up (spec §5).
type Store interface {
	CreateWorker(w *types.Worker) error
	GetWorker(id string) (*types.Worker, error)
	GetWorkerByCloudInstanceID(cloudInstanceID string) (*types.Worker, error)
	ListWorkers() ([]*types.Worker, error)
	UpdateWorker(w *types.Worker) error
	DeleteWorker(id string) error

	CreateLab(l *types.LabRecord) error
	GetLab(workerID, labID string) (*types.LabRecord, error)
	ListLabsByWorker(workerID string) ([]*types.LabRecord, error)
	UpdateLab(l *types.LabRecord) error
	DeleteLab(workerID, labID string) error

	Close() error
}

// ErrNotFound is returned by Get* calls when no record exists for the
// requested key. Delete* calls on a missing key return nil.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "storage: record not found" }
