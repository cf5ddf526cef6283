// Package health exposes the control plane's own liveness and readiness
// endpoints, wired into pkg/api alongside the domain routes. It reports on
// the process itself, not on the workers it manages — worker reachability
// is tracked as worker state (spec §4) via the reconciliation scheduler,
// not as a health checker.
package health
