package mediator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
)

func TestDispatchRunsRegisteredHandler(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(CommandStartWorker, func(ctx context.Context, payload any) (any, error) {
		return payload, nil
	})

	result := r.Dispatch(context.Background(), CommandStartWorker, "w-1")
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "w-1", result.Data)
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := NewRegistry(time.Second)
	result := r.Dispatch(context.Background(), CommandStopWorker, nil)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ctlerrors.CodeInternal, result.Kind)
}

func TestDispatchPropagatesClassifiedError(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(CommandTerminateWorker, func(ctx context.Context, payload any) (any, error) {
		return nil, ctlerrors.NotFound("worker", "w-404")
	})

	result := r.Dispatch(context.Background(), CommandTerminateWorker, nil)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ctlerrors.CodeNotFound, result.Kind)
}

func TestDispatchWrapsUnclassifiedError(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(CommandDetectWorkerIdle, func(ctx context.Context, payload any) (any, error) {
		return nil, errors.New("boom")
	})

	result := r.Dispatch(context.Background(), CommandDetectWorkerIdle, nil)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ctlerrors.CodeInternal, result.Kind)
}

func TestDispatchAppliesDefaultTimeout(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	r.Register(CommandRefreshWorkerLabs, func(ctx context.Context, payload any) (any, error) {
		<-ctx.Done()
		return nil, ctlerrors.Wrap(ctlerrors.CodeIntegrationTimeout, "timed out", ctx.Err())
	})

	result := r.Dispatch(context.Background(), CommandRefreshWorkerLabs, nil)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ctlerrors.CodeIntegrationTimeout, result.Kind)
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(CommandStartWorker, func(ctx context.Context, payload any) (any, error) { return nil, nil })
	assert.Panics(t, func() {
		r.Register(CommandStartWorker, func(ctx context.Context, payload any) (any, error) { return nil, nil })
	})
}
