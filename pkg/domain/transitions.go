package domain

import "github.com/fleetlab/corectl/pkg/types"

// transitionGraph enumerates the allowed WorkerStatus transitions from
// spec §4.2. The lifecycle command handlers check CanTransition before
// raising an event and reject a disallowed transition with a Conflict
// error, leaving the aggregate unchanged.
var transitionGraph = map[types.WorkerStatus]map[types.WorkerStatus]bool{
	types.WorkerStatusPending: {
		types.WorkerStatusProvisioned: true,
		types.WorkerStatusFailed:      true,
	},
	types.WorkerStatusProvisioned: {
		types.WorkerStatusRunning: true,
		types.WorkerStatusFailed:  true,
	},
	types.WorkerStatusRunning: {
		types.WorkerStatusStopping:    true,
		types.WorkerStatusTerminating: true,
	},
	types.WorkerStatusStopping: {
		types.WorkerStatusStopped:     true,
		types.WorkerStatusTerminating: true,
	},
	types.WorkerStatusStopped: {
		types.WorkerStatusStarting:    true,
		types.WorkerStatusTerminating: true,
	},
	types.WorkerStatusStarting: {
		types.WorkerStatusRunning:     true,
		types.WorkerStatusTerminating: true,
	},
	types.WorkerStatusTerminating: {
		types.WorkerStatusTerminated: true,
	},
	// IMPORTED is a starting state assigned directly by import_from_existing_instance,
	// not reached via a transition; from there the worker follows the same
	// graph as any other status reflecting its observed cloud state.
	types.WorkerStatusImported: {
		types.WorkerStatusRunning:     true,
		types.WorkerStatusStopped:     true,
		types.WorkerStatusStopping:    true,
		types.WorkerStatusTerminating: true,
	},
}

// CanTransition reports whether from -> to is an edge in the status graph.
// Any status may transition to TERMINATING except TERMINATED itself
// (terminal) and states already terminating/terminated.
func CanTransition(from, to types.WorkerStatus) bool {
	if from == to {
		return false
	}
	if from == types.WorkerStatusTerminated {
		return false
	}
	if to == types.WorkerStatusTerminating &&
		from != types.WorkerStatusTerminating {
		return true
	}
	edges, ok := transitionGraph[from]
	if !ok {
		return false
	}
	return edges[to]
}
