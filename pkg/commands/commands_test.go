package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/corectl/pkg/config"
	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/serviceadapter"
	"github.com/fleetlab/corectl/pkg/storage"
	"github.com/fleetlab/corectl/pkg/types"
)

// fakeCloud is a minimal in-memory cloudadapter.Cloud for command tests.
type fakeCloud struct {
	imageID         string
	runInstance     types.VMFacts
	runInstanceErr  error
	terminateErr    error
	terminateCalls  []string
	statusDetail    types.CloudStatusDetail
	statusErr       error
	utilization     types.Utilization
	utilizationErr  error
	instances       []types.VMFacts
}

func (f *fakeCloud) DescribeImageIDs(ctx context.Context, region, imageName string) (string, error) {
	return f.imageID, nil
}
func (f *fakeCloud) ListInstances(ctx context.Context, region string) ([]types.VMFacts, error) {
	return f.instances, nil
}
func (f *fakeCloud) DescribeStatus(ctx context.Context, region, instanceID string) (types.CloudStatusDetail, error) {
	return f.statusDetail, f.statusErr
}
func (f *fakeCloud) GetUtilization(ctx context.Context, region, instanceID string) (types.Utilization, error) {
	return f.utilization, f.utilizationErr
}
func (f *fakeCloud) RunInstance(ctx context.Context, spec types.RunInstanceSpec) (types.VMFacts, error) {
	return f.runInstance, f.runInstanceErr
}
func (f *fakeCloud) Start(ctx context.Context, region, instanceID string) error { return nil }
func (f *fakeCloud) Stop(ctx context.Context, region, instanceID string) error  { return nil }
func (f *fakeCloud) Terminate(ctx context.Context, region, instanceID string) error {
	f.terminateCalls = append(f.terminateCalls, instanceID)
	return f.terminateErr
}
func (f *fakeCloud) SetTags(ctx context.Context, region, instanceID string, tags map[string]string) error {
	return nil
}
func (f *fakeCloud) EnableDetailedMonitoring(ctx context.Context, region, instanceID string) error {
	return nil
}
func (f *fakeCloud) DisableDetailedMonitoring(ctx context.Context, region, instanceID string) error {
	return nil
}

// fakeService is a minimal in-memory serviceadapter.Service/Factory.
type fakeService struct {
	authErr  error
	labs     []types.ServiceLab
	labsErr  error
	deleteErr error
	deleted  []string
}

func (f *fakeService) For(baseURL, username, password string) serviceadapter.Service { return f }
func (f *fakeService) Authenticate(ctx context.Context) error                        { return f.authErr }
func (f *fakeService) GetSystemInformation(ctx context.Context) (types.ServiceSystemInformation, error) {
	return types.ServiceSystemInformation{Version: "1.2.3", Ready: true}, nil
}
func (f *fakeService) GetSystemHealth(ctx context.Context) (types.ServiceSystemHealth, error) {
	return types.ServiceSystemHealth{Valid: true}, nil
}
func (f *fakeService) GetSystemStats(ctx context.Context) (types.ServiceSystemStats, error) {
	return types.ServiceSystemStats{RunningNodes: 2}, nil
}
func (f *fakeService) GetLicensing(ctx context.Context) (*types.ServiceLicensing, error) {
	return nil, nil
}
func (f *fakeService) ListLabs(ctx context.Context) ([]types.ServiceLab, error) {
	return f.labs, f.labsErr
}
func (f *fakeService) DeleteLab(ctx context.Context, labID string) error {
	f.deleted = append(f.deleted, labID)
	return f.deleteErr
}

func testDeps(t *testing.T, cloud *fakeCloud, svc *fakeService) Deps {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return Deps{
		Store:    store,
		Cloud:    cloud,
		Services: svc,
		Events:   events.NewBroker(16),
		Locks:    storage.NewKeyedLock(),
		Config:   config.Config{ServiceScheme: "https", ServicePort: "443"},
	}
}

func TestCreateWorkerHandlerProvisionsSuccessfully(t *testing.T) {
	cloud := &fakeCloud{imageID: "ami-1", runInstance: types.VMFacts{InstanceID: "i-1"}}
	deps := testDeps(t, cloud, &fakeService{})
	handler := NewCreateWorkerHandler(deps)

	res, err := handler(context.Background(), CreateWorkerInput{
		Name: "fleet-01", Region: "us-east-1", InstanceType: "m5.large", ImageName: "fleet-worker",
	})
	require.NoError(t, err)
	result := res.(CreateWorkerResult)
	assert.Equal(t, "i-1", result.CloudInstanceID)

	worker, err := deps.Store.GetWorker(result.WorkerID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkerStatusProvisioned, worker.Status)
}

func TestCreateWorkerHandlerCompensatesOnRunInstanceFailure(t *testing.T) {
	cloud := &fakeCloud{imageID: "ami-1", runInstanceErr: ctlerrors.Dependency("boom", assertErr{})}
	deps := testDeps(t, cloud, &fakeService{})
	handler := NewCreateWorkerHandler(deps)

	_, err := handler(context.Background(), CreateWorkerInput{
		Name: "fleet-01", Region: "us-east-1", InstanceType: "m5.large", ImageName: "fleet-worker",
	})
	require.Error(t, err)
	assert.Empty(t, cloud.terminateCalls, "no instance was created, nothing to compensate")

	workers, err := deps.Store.ListWorkers()
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, types.WorkerStatusFailed, workers[0].Status)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestStartStopTerminateLifecycle(t *testing.T) {
	cloud := &fakeCloud{}
	deps := testDeps(t, cloud, &fakeService{})

	worker := &types.Worker{ID: "w-1", Region: "us-east-1", CloudInstanceID: "i-1", Status: types.WorkerStatusStopped}
	require.NoError(t, deps.Store.CreateWorker(worker))

	start := NewStartWorkerHandler(deps)
	_, err := start(context.Background(), StartWorkerInput{WorkerID: "w-1"})
	require.NoError(t, err)

	got, err := deps.Store.GetWorker("w-1")
	require.NoError(t, err)
	assert.Equal(t, types.WorkerStatusRunning, got.Status)

	stop := NewStopWorkerHandler(deps)
	_, err = stop(context.Background(), StopWorkerInput{WorkerID: "w-1"})
	require.NoError(t, err)
	got, _ = deps.Store.GetWorker("w-1")
	assert.Equal(t, types.WorkerStatusStopped, got.Status)

	terminate := NewTerminateWorkerHandler(deps)
	_, err = terminate(context.Background(), TerminateWorkerInput{WorkerID: "w-1"})
	require.NoError(t, err)
	got, _ = deps.Store.GetWorker("w-1")
	assert.Equal(t, types.WorkerStatusTerminated, got.Status)
	assert.Contains(t, cloud.terminateCalls, "i-1")
}

func TestRefreshWorkerLabsCreatesAndDeletesOrphans(t *testing.T) {
	svc := &fakeService{labs: []types.ServiceLab{{ID: "lab-1", Title: "intro-routing"}}}
	deps := testDeps(t, &fakeCloud{}, svc)

	worker := &types.Worker{
		ID: "w-1", Status: types.WorkerStatusRunning, ServiceStatus: types.ServiceStatusAvailable,
		PublicAddress: "10.0.0.5",
	}
	require.NoError(t, deps.Store.CreateWorker(worker))
	require.NoError(t, deps.Store.CreateLab(&types.LabRecord{LocalID: "l-stale", WorkerID: "w-1", LabID: "lab-stale", Title: "old"}))

	handler := NewRefreshWorkerLabsHandler(deps)
	res, err := handler(context.Background(), RefreshWorkerLabsInput{WorkerID: "w-1"})
	require.NoError(t, err)
	result := res.(RefreshWorkerLabsResult)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Deleted)

	_, err = deps.Store.GetLab("w-1", "lab-stale")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	created, err := deps.Store.GetLab("w-1", "lab-1")
	require.NoError(t, err)
	assert.Equal(t, "intro-routing", created.Title)
}

func TestDeleteLabRemovesServiceAndLocalRecord(t *testing.T) {
	svc := &fakeService{}
	deps := testDeps(t, &fakeCloud{}, svc)

	worker := &types.Worker{ID: "w-1", PublicAddress: "10.0.0.5"}
	require.NoError(t, deps.Store.CreateWorker(worker))
	require.NoError(t, deps.Store.CreateLab(&types.LabRecord{LocalID: "l-1", WorkerID: "w-1", LabID: "lab-1"}))

	handler := NewDeleteLabHandler(deps)
	_, err := handler(context.Background(), DeleteLabInput{WorkerID: "w-1", LabID: "lab-1"})
	require.NoError(t, err)

	assert.Contains(t, svc.deleted, "lab-1")
	_, err = deps.Store.GetLab("w-1", "lab-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
