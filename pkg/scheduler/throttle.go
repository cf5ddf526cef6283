package scheduler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle bounds how often any single worker id may be processed, shared
// between the scheduler's own ticks and manually-triggered API refreshes
// (spec §4.2's per-worker throttle invariant: a manual refresh resets the
// window the next scheduled tick observes).
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    time.Duration
}

// NewThrottle builds a Throttle allowing one pass per worker every `every`.
func NewThrottle(every time.Duration) *Throttle {
	return &Throttle{limiters: make(map[string]*rate.Limiter), every: every}
}

// Allow reports whether workerID may be processed now, consuming its
// allowance if so.
func (t *Throttle) Allow(workerID string) bool {
	t.mu.Lock()
	limiter, ok := t.limiters[workerID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(t.every), 1)
		t.limiters[workerID] = limiter
	}
	t.mu.Unlock()
	return limiter.Allow()
}
