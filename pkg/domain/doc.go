// Package domain implements the event-sourced write path for the Worker and
// LabRecord aggregates (spec §4.2): commands produce domain events, a pure
// reducer applies each event to in-memory state, and only after the
// resulting state is persisted are the same events handed to pkg/events for
// wire-format fan-out.
//
// Re-architecture note (spec §9): the teacher's aggregates inherit from a
// deep base-type hierarchy; here Worker and LabRecord (pkg/types) stay plain
// structs and the event/reducer pair in this package is the only place that
// mutates them.
package domain
