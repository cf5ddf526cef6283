package reconciler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunnerTicksJobOnInterval(t *testing.T) {
	var calls int32
	runner := NewRunner([]Job{{
		Name:     "test-job",
		Interval: 10 * time.Millisecond,
		Tick: func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	}})

	runner.Start()
	time.Sleep(45 * time.Millisecond)
	runner.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestRunnerSkipsZeroIntervalJobs(t *testing.T) {
	var calls int32
	runner := NewRunner([]Job{{
		Name:     "disabled-job",
		Interval: 0,
		Tick: func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	}})

	runner.Start()
	time.Sleep(20 * time.Millisecond)
	runner.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRunnerContinuesAfterTickError(t *testing.T) {
	var calls int32
	runner := NewRunner([]Job{{
		Name:     "flaky-job",
		Interval: 10 * time.Millisecond,
		Tick: func(ctx context.Context) error {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				return assertErr{}
			}
			return nil
		},
	}})

	runner.Start()
	time.Sleep(35 * time.Millisecond)
	runner.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
