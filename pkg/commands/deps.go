package commands

import (
	"github.com/fleetlab/corectl/pkg/cloudadapter"
	"github.com/fleetlab/corectl/pkg/config"
	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/serviceadapter"
	"github.com/fleetlab/corectl/pkg/storage"
)

// Deps bundles every handler's dependencies so pkg/mediator registration
// (Register in register.go) can construct them uniformly.
type Deps struct {
	Store    storage.Store
	Cloud    cloudadapter.Cloud
	Services serviceadapter.Factory
	Events   *events.Broker
	Locks    *storage.KeyedLock
	Config   config.Config
}
