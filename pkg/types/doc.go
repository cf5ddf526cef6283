// Package types defines the plain data model shared across the control
// plane: the Worker and LabRecord aggregates, the facts reported by the
// cloud and Service adapters, and the enums that constrain their lifecycle.
//
// Nothing in this package has behavior beyond small invariant-preserving
// helpers (AppendOperation's ring eviction, IsActive's status check) — the
// mutating logic lives in pkg/domain, which turns domain events into state
// transitions over these types.
package types
