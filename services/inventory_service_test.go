package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
)

func TestReserve_NeverExceedsCapacity(t *testing.T) {
	app := newTestApp(t)
	event := seedPublishedEvent(t, app)
	tier := seedTier(t, app, event.Id, 3, 100)
	svc := NewInventoryService(app)

	res, err := svc.Reserve(context.Background(), tier.Id, 2)
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), tier.Id, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInsufficientStock))

	require.NoError(t, res.Commit(context.Background()))

	avail, err := svc.Availability(context.Background(), tier.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, avail)
}

func TestRelease_ReturnsHeldCapacity(t *testing.T) {
	app := newTestApp(t)
	event := seedPublishedEvent(t, app)
	tier := seedTier(t, app, event.Id, 3, 100)
	svc := NewInventoryService(app)

	res, err := svc.Reserve(context.Background(), tier.Id, 3)
	require.NoError(t, err)

	require.NoError(t, res.Release(context.Background()))
	// Release after release is a no-op, not a double credit.
	require.NoError(t, res.Release(context.Background()))

	avail, err := svc.Availability(context.Background(), tier.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, avail)
}

func TestReserve_UnknownTier(t *testing.T) {
	app := newTestApp(t)
	svc := NewInventoryService(app)

	_, err := svc.Reserve(context.Background(), "missing", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidRequest))
}
