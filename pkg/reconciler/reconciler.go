package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/metrics"
)

// Job is one independently-scheduled reconciliation task (spec §5's job
// catalog: WorkerMetricsCollection, LabsRefresh, ActivityDetection,
// AutoImportWorkers). Tick does all the work for one cycle; the Runner
// only owns the ticker and the timeout around it.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Tick     func(ctx context.Context) error
}

// Runner drives a fixed set of Jobs, each on its own ticker goroutine. It
// generalizes the teacher's single-loop ticker/stopCh reconciler into one
// runner per job, since each scheduler job here has an independent
// interval rather than one shared cluster-wide tick.
type Runner struct {
	jobs   []Job
	logger zerolog.Logger
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewRunner builds a Runner for the given jobs. Jobs with a zero Interval
// are skipped.
func NewRunner(jobs []Job) *Runner {
	var active []Job
	for _, j := range jobs {
		if j.Interval > 0 {
			active = append(active, j)
		}
	}
	return &Runner{
		jobs:   active,
		logger: log.WithComponent("reconciler"),
		stopCh: make(chan struct{}),
	}
}

// Start launches one goroutine per job.
func (r *Runner) Start() {
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.run(job)
	}
}

// Stop signals every job goroutine to exit and waits for them to finish.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

func (r *Runner) run(job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	r.logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("reconciliation job started")

	for {
		select {
		case <-ticker.C:
			r.tick(job)
		case <-r.stopCh:
			r.logger.Info().Str("job", job.Name).Msg("reconciliation job stopped")
			return
		}
	}
}

func (r *Runner) tick(job Job) {
	timeout := job.Timeout
	if timeout == 0 {
		timeout = job.Interval
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	timer := metrics.NewTimer()
	err := job.Tick(ctx)
	timer.ObserveDurationVec(metrics.ReconciliationDuration, job.Name)
	metrics.ReconciliationCyclesTotal.WithLabelValues(job.Name).Inc()

	if err != nil {
		r.logger.Error().Str("job", job.Name).Err(err).Msg("reconciliation cycle failed")
	}
}
