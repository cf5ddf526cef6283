package domain

import (
	"testing"

	"github.com/fleetlab/corectl/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionHappyPath(t *testing.T) {
	assert.True(t, CanTransition(types.WorkerStatusPending, types.WorkerStatusProvisioned))
	assert.True(t, CanTransition(types.WorkerStatusProvisioned, types.WorkerStatusRunning))
	assert.True(t, CanTransition(types.WorkerStatusRunning, types.WorkerStatusStopping))
	assert.True(t, CanTransition(types.WorkerStatusStopping, types.WorkerStatusStopped))
	assert.True(t, CanTransition(types.WorkerStatusStopped, types.WorkerStatusStarting))
	assert.True(t, CanTransition(types.WorkerStatusStarting, types.WorkerStatusRunning))
	assert.True(t, CanTransition(types.WorkerStatusTerminating, types.WorkerStatusTerminated))
}

func TestCanTransitionToTerminatingFromAnyNonTerminalState(t *testing.T) {
	for _, s := range []types.WorkerStatus{
		types.WorkerStatusPending,
		types.WorkerStatusProvisioned,
		types.WorkerStatusRunning,
		types.WorkerStatusStopping,
		types.WorkerStatusStopped,
		types.WorkerStatusStarting,
		types.WorkerStatusImported,
	} {
		assert.True(t, CanTransition(s, types.WorkerStatusTerminating), "from %s", s)
	}
}

func TestCanTransitionRejectsTerminalStates(t *testing.T) {
	assert.False(t, CanTransition(types.WorkerStatusTerminated, types.WorkerStatusRunning))
	assert.False(t, CanTransition(types.WorkerStatusFailed, types.WorkerStatusRunning))
	assert.False(t, CanTransition(types.WorkerStatusTerminated, types.WorkerStatusTerminating))
}

func TestCanTransitionRejectsSkippedStates(t *testing.T) {
	assert.False(t, CanTransition(types.WorkerStatusPending, types.WorkerStatusRunning))
	assert.False(t, CanTransition(types.WorkerStatusRunning, types.WorkerStatusStarting))
}

func TestCanTransitionRejectsSelfLoop(t *testing.T) {
	assert.False(t, CanTransition(types.WorkerStatusRunning, types.WorkerStatusRunning))
}

func TestCanTransitionImportedFollowsObservedState(t *testing.T) {
	assert.True(t, CanTransition(types.WorkerStatusImported, types.WorkerStatusRunning))
	assert.True(t, CanTransition(types.WorkerStatusImported, types.WorkerStatusStopped))
	assert.False(t, CanTransition(types.WorkerStatusImported, types.WorkerStatusPending))
}
