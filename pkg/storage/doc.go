// Package storage persists Worker and LabRecord aggregates (spec §5). The
// BoltDB-backed implementation follows the teacher's bucket-per-entity,
// JSON-marshaled-value layout, extended with a cloud_instance_id ->
// worker_id index bucket so ImportWorker can reject a duplicate cloud
// instance. Labs are keyed "workerID/labID", so RefreshWorkerLabs
// enumerates a worker's labs with a key-prefix scan instead of a full
// table scan.
package storage
