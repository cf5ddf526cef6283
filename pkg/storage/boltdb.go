package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fleetlab/corectl/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketWorkers           = []byte("workers")
	bucketWorkersByCloudID  = []byte("workers_by_cloud_instance_id")
	bucketLabs              = []byte("labs")
)

// BoltStore implements Store using a single embedded BoltDB file, adapted
// from the teacher's pkg/storage BoltStore.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) the database file corectl.db in
// dataDir and ensures its buckets exist.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "corectl.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketWorkers, bucketWorkersByCloudID, bucketLabs} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateWorker persists w and, if it already has a cloud instance id,
// indexes it for GetWorkerByCloudInstanceID.
func (s *BoltStore) CreateWorker(w *types.Worker) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putWorker(tx, w)
	})
}

func putWorker(tx *bolt.Tx, w *types.Worker) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketWorkers).Put([]byte(w.ID), data); err != nil {
		return err
	}
	if w.CloudInstanceID != "" {
		if err := tx.Bucket(bucketWorkersByCloudID).Put([]byte(w.CloudInstanceID), []byte(w.ID)); err != nil {
			return err
		}
	}
	return nil
}

// GetWorker looks up a worker by its control-plane id.
func (s *BoltStore) GetWorker(id string) (*types.Worker, error) {
	var w types.Worker
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketWorkers).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &w)
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWorkerByCloudInstanceID looks up a worker via the cloud-instance-id
// index, used by ImportWorker to reject duplicates (spec §4.3).
func (s *BoltStore) GetWorkerByCloudInstanceID(cloudInstanceID string) (*types.Worker, error) {
	var workerID []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketWorkersByCloudID).Get([]byte(cloudInstanceID))
		if id == nil {
			return ErrNotFound
		}
		workerID = append([]byte(nil), id...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetWorker(string(workerID))
}

// ListWorkers returns every known worker, in no particular order.
func (s *BoltStore) ListWorkers() ([]*types.Worker, error) {
	var workers []*types.Worker
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWorkers).ForEach(func(_, v []byte) error {
			var w types.Worker
			if err := json.Unmarshal(v, &w); err != nil {
				return err
			}
			workers = append(workers, &w)
			return nil
		})
	})
	return workers, err
}

// UpdateWorker upserts w and refreshes the cloud-instance-id index.
func (s *BoltStore) UpdateWorker(w *types.Worker) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putWorker(tx, w)
	})
}

// DeleteWorker removes a worker and its cloud-instance-id index entry, if
// any.
func (s *BoltStore) DeleteWorker(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		data := b.Get([]byte(id))
		if data != nil {
			var w types.Worker
			if err := json.Unmarshal(data, &w); err == nil && w.CloudInstanceID != "" {
				if err := tx.Bucket(bucketWorkersByCloudID).Delete([]byte(w.CloudInstanceID)); err != nil {
					return err
				}
			}
		}
		return b.Delete([]byte(id))
	})
}

// labKey composes the lexicographically ordered key workerID/labID so a
// single bucket can serve both point lookups and the ListLabsByWorker
// prefix scan without a separate index.
func labKey(workerID, labID string) []byte {
	return []byte(workerID + "/" + labID)
}

// CreateLab persists l under its (WorkerID, LabID) key.
func (s *BoltStore) CreateLab(l *types.LabRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(l)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketLabs).Put(labKey(l.WorkerID, l.LabID), data)
	})
}

// GetLab looks up one lab by its composite key.
func (s *BoltStore) GetLab(workerID, labID string) (*types.LabRecord, error) {
	var l types.LabRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketLabs).Get(labKey(workerID, labID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLabsByWorker returns every lab known for workerID via a prefix scan
// over the composite key.
func (s *BoltStore) ListLabsByWorker(workerID string) ([]*types.LabRecord, error) {
	prefix := []byte(workerID + "/")
	var labs []*types.LabRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLabs).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var l types.LabRecord
			if err := json.Unmarshal(v, &l); err != nil {
				return err
			}
			labs = append(labs, &l)
		}
		return nil
	})
	return labs, err
}

// UpdateLab upserts l (same as CreateLab; the composite key makes both
// operations identical).
func (s *BoltStore) UpdateLab(l *types.LabRecord) error {
	return s.CreateLab(l)
}

// DeleteLab removes one lab record.
func (s *BoltStore) DeleteLab(workerID, labID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLabs).Delete(labKey(workerID, labID))
	})
}
