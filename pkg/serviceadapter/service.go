package serviceadapter

import (
	"context"

	"github.com/fleetlab/corectl/pkg/types"
)

// Service is the per-worker Service API surface (spec §4.1, source B). One
// Service value is scoped to a single worker's base URL; SyncWorkerServiceData
// and RefreshWorkerLabs obtain one via a Factory keyed by the worker's
// address.
type Service interface {
	// Authenticate acquires (or refreshes) the bearer token used by every
	// other call. Implementations call this lazily and retry once on a 401
	// from any other method.
	Authenticate(ctx context.Context) error

	GetSystemInformation(ctx context.Context) (types.ServiceSystemInformation, error)
	GetSystemHealth(ctx context.Context) (types.ServiceSystemHealth, error)
	GetSystemStats(ctx context.Context) (types.ServiceSystemStats, error)

	// GetLicensing returns (nil, nil) if the worker's Service build has no
	// licensing endpoint (404 is treated as "not applicable", spec §4.3).
	GetLicensing(ctx context.Context) (*types.ServiceLicensing, error)

	ListLabs(ctx context.Context) ([]types.ServiceLab, error)
	DeleteLab(ctx context.Context, labID string) error
}

// Factory constructs a Service scoped to one worker's address and
// credentials.
type Factory interface {
	For(baseURL, username, password string) Service
}
