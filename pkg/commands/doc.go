// Package commands implements the write-side handlers dispatched through
// pkg/mediator (spec §4.3): one file per command, each following the same
// shape as the teacher's FSM command cases (pkg/manager/fsm.go) — decode
// payload, take the per-worker lock, load the aggregate, raise domain
// events, persist, then flush events to the broker — generalized from the
// teacher's single Raft-replicated store mutation into this domain's
// saga/compensation and multi-source-sync semantics.
package commands
