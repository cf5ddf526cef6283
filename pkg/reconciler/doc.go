// Package reconciler provides the ticker-driven job runner shared by every
// scheduler job (spec §5): each Job ticks on its own interval, runs its Tick
// function with a hard per-tick timeout, and records duration/cycle-count
// metrics. It does not know what a "worker" or "lab" is — pkg/scheduler
// supplies the Tick functions that walk the fleet and dispatch mediator
// commands.
package reconciler
