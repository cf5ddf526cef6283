// Package metrics defines and registers the control plane's Prometheus
// metrics: fleet-wide gauges (workers by status, labs by worker; registered
// but not set by any code), the command-duration histogram, the scheduler's
// command-failure counter, per-job reconciliation counters, and the SSE
// broker's lag counter. All metrics register at package init via
// prometheus.MustRegister and are served at /metrics by promhttp.Handler.
package metrics
