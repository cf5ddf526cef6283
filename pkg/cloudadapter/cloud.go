package cloudadapter

import (
	"context"

	"github.com/fleetlab/corectl/pkg/types"
)

// Cloud is the cloud-provider control and metrics surface a worker's VM is
// reconciled against (spec §4.1, source A). Every method returns a
// *ctlerrors.Error on failure, classified by Code so callers can decide
// whether to retry, mark a worker FAILED, or merely skip this cycle.
type Cloud interface {
	// DescribeImageIDs resolves a human image name (e.g. "fleet-worker-v3")
	// to the region-specific image id used by RunInstance.
	DescribeImageIDs(ctx context.Context, region, imageName string) (string, error)

	// ListInstances enumerates VMs tagged as fleet workers in region, for
	// BulkImportWorkers and AutoImportWorkers.
	ListInstances(ctx context.Context, region string) ([]types.VMFacts, error)

	// DescribeStatus returns the cloud-native instance/system status detail
	// for one instance (cloud health source).
	DescribeStatus(ctx context.Context, region, instanceID string) (types.CloudStatusDetail, error)

	// GetUtilization returns the last-reported CPU/memory utilization for
	// one instance (cloud metrics source), independent of DescribeStatus.
	GetUtilization(ctx context.Context, region, instanceID string) (types.Utilization, error)

	// RunInstance launches a new VM per spec (saga step 2 of CreateWorker).
	RunInstance(ctx context.Context, spec types.RunInstanceSpec) (types.VMFacts, error)

	Start(ctx context.Context, region, instanceID string) error
	Stop(ctx context.Context, region, instanceID string) error
	Terminate(ctx context.Context, region, instanceID string) error

	SetTags(ctx context.Context, region, instanceID string, tags map[string]string) error

	EnableDetailedMonitoring(ctx context.Context, region, instanceID string) error
	DisableDetailedMonitoring(ctx context.Context, region, instanceID string) error
}
