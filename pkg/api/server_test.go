package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/corectl/pkg/commands"
	"github.com/fleetlab/corectl/pkg/config"
	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/mediator"
	"github.com/fleetlab/corectl/pkg/scheduler"
	"github.com/fleetlab/corectl/pkg/serviceadapter"
	"github.com/fleetlab/corectl/pkg/storage"
	"github.com/fleetlab/corectl/pkg/types"
)

// fakeCloud is a minimal in-memory cloudadapter.Cloud for API tests.
type fakeCloud struct {
	imageID     string
	runInstance types.VMFacts
}

func (f *fakeCloud) DescribeImageIDs(ctx context.Context, region, imageName string) (string, error) {
	return f.imageID, nil
}
func (f *fakeCloud) ListInstances(ctx context.Context, region string) ([]types.VMFacts, error) {
	return nil, nil
}
func (f *fakeCloud) DescribeStatus(ctx context.Context, region, instanceID string) (types.CloudStatusDetail, error) {
	return types.CloudStatusDetail{}, nil
}
func (f *fakeCloud) GetUtilization(ctx context.Context, region, instanceID string) (types.Utilization, error) {
	return types.Utilization{}, nil
}
func (f *fakeCloud) RunInstance(ctx context.Context, spec types.RunInstanceSpec) (types.VMFacts, error) {
	return f.runInstance, nil
}
func (f *fakeCloud) Start(ctx context.Context, region, instanceID string) error    { return nil }
func (f *fakeCloud) Stop(ctx context.Context, region, instanceID string) error     { return nil }
func (f *fakeCloud) Terminate(ctx context.Context, region, instanceID string) error { return nil }
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
type fakeService struct{}

func (f *fakeService) For(baseURL, username, password string) serviceadapter.Service { return f }
func (f *fakeService) Authenticate(ctx context.Context) error                        { return nil }
func (f *fakeService) GetSystemInformation(ctx context.Context) (types.ServiceSystemInformation, error) {
	return types.ServiceSystemInformation{Version: "1.0.0", Ready: true}, nil
}
func (f *fakeService) GetSystemHealth(ctx context.Context) (types.ServiceSystemHealth, error) {
	return types.ServiceSystemHealth{Valid: true}, nil
}
func (f *fakeService) GetSystemStats(ctx context.Context) (types.ServiceSystemStats, error) {
	return types.ServiceSystemStats{}, nil
}
func (f *fakeService) GetLicensing(ctx context.Context) (*types.ServiceLicensing, error) {
	return nil, nil
}
func (f *fakeService) ListLabs(ctx context.Context) ([]types.ServiceLab, error) { return nil, nil }
func (f *fakeService) DeleteLab(ctx context.Context, labID string) error       { return nil }

// fakeValidator accepts "admin-token" (as an admin) and "user-token" (not),
// rejecting everything else.
type fakeValidator struct{}

func (fakeValidator) Validate(ctx context.Context, token string) (Principal, error) {
	switch token {
	case "admin-token":
		return Principal{Subject: "admin", Admin: true}, nil
	case "user-token":
		return Principal{Subject: "user", Admin: false}, nil
	default:
		return Principal{}, assertErr{}
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "invalid token" }

func newTestServer(t *testing.T) (*Server, storage.Store) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	broker := events.NewBroker(16)
	reg := mediator.NewRegistry(5 * time.Second)
	commands.Register(reg, commands.Deps{
		Store:    store,
		Cloud:    &fakeCloud{imageID: "ami-1", runInstance: types.VMFacts{InstanceID: "i-1"}},
		Services: &fakeService{},
		Events:   broker,
		Locks:    storage.NewKeyedLock(),
		Config:   config.Config{ServiceScheme: "https", ServicePort: "443"},
	})

	throttle := scheduler.NewThrottle(time.Hour)
	return NewServer(reg, store, broker, throttle, fakeValidator{}), store
}

func authedRequest(method, path, body string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer user-token")
	return req
}

func TestCreateWorkerReturns201WithWorkerDTO(t *testing.T) {
	s, _ := newTestServer(t)

	req := authedRequest(http.MethodPost, "/workers/region/us-east-1/workers", `{"name":"fleet-01","instance_type":"m5.large","image_name":"fleet-worker"}`)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var dto WorkerDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "fleet-01", dto.Name)
	assert.Equal(t, types.WorkerStatusProvisioned, dto.Status)
}

func TestMissingBearerTokenReturns401(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/workers/region/us-east-1/workers/w-1/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetWorkerStatusReturns404ForUnknownWorker(t *testing.T) {
	s, _ := newTestServer(t)

	req := authedRequest(http.MethodGet, "/workers/region/us-east-1/workers/missing/status", "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIdleDetectionRequiresAdmin(t *testing.T) {
	s, store := newTestServer(t)
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "w-1", Status: types.WorkerStatusRunning}))

	req := authedRequest(http.MethodPost, "/workers/region/us-east-1/workers/w-1/idle-detection/enable", "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/workers/region/us-east-1/workers/w-1/idle-detection/enable", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestManualRefreshIsThrottledOnSecondCall(t *testing.T) {
	s, store := newTestServer(t)
	require.NoError(t, store.CreateWorker(&types.Worker{ID: "w-1", Status: types.WorkerStatusRunning}))

	first := authedRequest(http.MethodPost, "/workers/region/us-east-1/workers/w-1/refresh", "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	second := authedRequest(http.MethodPost, "/workers/region/us-east-1/workers/w-1/refresh", "")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthEndpointsDoNotRequireAuth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventStreamDeliversPublishedEnvelope(t *testing.T) {
	s, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.Handler().ServeHTTP(rec, req)
		close(done)
	}()

	// give the subscriber a moment to register before publishing.
	time.Sleep(20 * time.Millisecond)
	s.broker.Publish(&events.Envelope{Type: events.WorkerCreated, Source: "test", Data: map[string]any{"id": "w-1"}})

	<-done
	assert.Contains(t, rec.Body.String(), "worker.created")
}
