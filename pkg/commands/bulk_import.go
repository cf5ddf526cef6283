package commands

import (
	"context"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/storage"
)

// BulkImportWorkersInput is the BulkImportWorkers command payload.
type BulkImportWorkersInput struct {
	Region    string
	ImageName string // optional filter; empty imports every untracked instance
}

// BulkImportWorkersResult reports a partitioned, return-exceptions outcome:
// one instance failing to import never aborts the rest (spec §4.3).
type BulkImportWorkersResult struct {
	Imported       []string // new worker ids
	AlreadyTracked []string // cloud instance ids already imported
	Errors         map[string]string // cloud instance id -> error message
}

// NewBulkImportWorkersHandler lists every untracked instance in a region
// and dispatches ImportWorker for each, continuing past individual
// failures.
func NewBulkImportWorkersHandler(deps Deps, importWorker func(ctx context.Context, payload any) (any, error)) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(BulkImportWorkersInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected BulkImportWorkersInput")
		}

		instances, err := deps.Cloud.ListInstances(ctx, in.Region)
		if err != nil {
			return nil, err
		}

		var wantImageID string
		if in.ImageName != "" {
			wantImageID, err = deps.Cloud.DescribeImageIDs(ctx, in.Region, in.ImageName)
			if err != nil {
				return nil, err
			}
		}

		result := BulkImportWorkersResult{Errors: map[string]string{}}
		logger := log.WithComponent("commands")

		for _, inst := range instances {
			if wantImageID != "" && inst.ImageID != wantImageID {
				continue
			}
			if _, err := deps.Store.GetWorkerByCloudInstanceID(inst.InstanceID); err == nil {
				result.AlreadyTracked = append(result.AlreadyTracked, inst.InstanceID)
				continue
			} else if err != storage.ErrNotFound {
				result.Errors[inst.InstanceID] = err.Error()
				continue
			}

			res, err := importWorker(ctx, ImportWorkerInput{Region: in.Region, CloudInstanceID: inst.InstanceID})
			if err != nil {
				logger.Warn().Str("cloud_instance_id", inst.InstanceID).Err(err).Msg("bulk import: instance failed")
				result.Errors[inst.InstanceID] = err.Error()
				continue
			}
			result.Imported = append(result.Imported, res.(ImportWorkerResult).WorkerID)
		}

		return result, nil
	}
}
