package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WorkersTotal is registered for the fleet's worker count by lifecycle
	// status; no code in this module sets it, so it exports no series.
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corectl_workers_total",
			Help: "Total number of managed workers by lifecycle status",
		},
		[]string{"status"},
	)

	// LabsTotal is registered for the lab count tracked per worker; no code
	// in this module sets it, so it exports no series.
	LabsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corectl_labs_total",
			Help: "Total number of labs tracked per worker",
		},
		[]string{"worker_id"},
	)

	// CommandDuration times every mediator-dispatched command.
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corectl_command_duration_seconds",
			Help:    "Command dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// CommandsFailedTotal counts per-worker command failures during scheduler
	// job ticks; the "command" label carries the job name. Commands
	// dispatched from the HTTP API are not counted.
	CommandsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corectl_commands_failed_total",
			Help: "Total number of per-worker command failures in scheduler ticks, by job and error code",
		},
		[]string{"command", "code"},
	)

	// ReconciliationCyclesTotal counts completed scheduler job ticks, by job.
	ReconciliationCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corectl_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed, by job",
		},
		[]string{"job"},
	)

	// ReconciliationDuration times a full scheduler job tick, by job.
	ReconciliationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corectl_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation cycle in seconds, by job",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// ReconciliationItemsTotal counts per-worker outcomes within a job tick.
	ReconciliationItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corectl_reconciliation_items_total",
			Help: "Total number of per-worker outcomes within reconciliation cycles",
		},
		[]string{"job", "outcome"},
	)

	// SubscriberLagTotal counts envelopes dropped by the event broker because
	// a subscriber's queue was full.
	SubscriberLagTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corectl_subscriber_lag_total",
			Help: "Total number of envelopes dropped across all SSE subscribers due to a full queue",
		},
	)

	// APIRequestsTotal counts HTTP requests served by the REST API.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corectl_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	// APIRequestDuration times HTTP requests served by the REST API.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corectl_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(LabsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(CommandsFailedTotal)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationItemsTotal)
	prometheus.MustRegister(SubscriberLagTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
