// Package mediator implements the command pipeline from spec §4.3: a
// single Dispatch entry point that looks up the registered handler for a
// CommandType, runs it with a per-call timeout and structured logging, and
// normalizes its outcome into an OperationResult.
//
// Re-architecture note (spec §9): the teacher dispatches FSM log entries
// through a Raft-replicated state machine's switch statement
// (pkg/manager/fsm.go) because its commands must agree across a cluster.
// This control plane is a single authoritative process, so the same
// switch-on-command-type idea is kept but implemented as a plain
// map[CommandType]HandlerFunc registry with no consensus layer underneath.
package mediator
