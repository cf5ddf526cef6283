// Package log wraps zerolog with the control plane's logging conventions:
// a package-global Logger configured once via Init, and WithComponent /
// WithWorkerID / WithJob child-logger helpers so every subsystem's log lines
// carry the context needed to correlate a reconciliation tick, a command,
// and the worker it touched.
//
// Production wiring uses JSON output; local development uses the console
// writer. Both paths go through the same zerolog.Logger, so call sites never
// need to know which mode is active.
package log
