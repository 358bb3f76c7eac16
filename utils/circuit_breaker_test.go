package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDeliveryDown = errors.New("delivery down")

func newTestBreaker() *CircuitBreaker {
	return NewCircuitBreaker("test", Settings{
		MaxRequests:  2,
		Interval:     time.Minute,
		Timeout:      30 * time.Millisecond,
		FailureRatio: 0.5,
	})
}

func TestCircuitBreaker_PassesThroughWhileClosed(t *testing.T) {
	cb := newTestBreaker()

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ReturnsRequestError(t *testing.T) {
	cb := newTestBreaker()

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return errDeliveryDown
	})

	assert.ErrorIs(t, err, errDeliveryDown)
}

func TestCircuitBreaker_TripsOpenAfterFailures(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return errDeliveryDown
		})
	}
	require.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("request must not run while open")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return errDeliveryDown
		})
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return errDeliveryDown
		})
	}
	time.Sleep(50 * time.Millisecond)

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errDeliveryDown
	})
	assert.Equal(t, StateOpen, cb.State())
}
