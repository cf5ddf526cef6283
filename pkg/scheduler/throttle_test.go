package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleAllowsFirstPassThenBlocks(t *testing.T) {
	th := NewThrottle(time.Hour)
	assert.True(t, th.Allow("w-1"))
	assert.False(t, th.Allow("w-1"))
}

func TestThrottleTracksWorkersIndependently(t *testing.T) {
	th := NewThrottle(time.Hour)
	assert.True(t, th.Allow("w-1"))
	assert.True(t, th.Allow("w-2"))
}

func TestThrottleAllowsAgainAfterWindow(t *testing.T) {
	th := NewThrottle(10 * time.Millisecond)
	assert.True(t, th.Allow("w-1"))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, th.Allow("w-1"))
}
