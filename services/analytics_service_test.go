package services

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAnalyticsService() (*AnalyticsService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &AnalyticsService{redis: db}, mock
}

func TestAnalyticsService_RecordView_BuffersInRedis(t *testing.T) {
	service, mock := setupTestAnalyticsService()
	defer mock.ClearExpect()

	mock.ExpectIncr("analytics:views:ev1").SetVal(1)
	mock.ExpectSAdd(viewEventsSetKey, "ev1").SetVal(1)

	err := service.RecordView(context.Background(), "ev1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_RecordView_SecondViewIncrements(t *testing.T) {
	service, mock := setupTestAnalyticsService()
	defer mock.ClearExpect()

	mock.ExpectIncr("analytics:views:ev1").SetVal(2)
	mock.ExpectSAdd(viewEventsSetKey, "ev1").SetVal(0)

	err := service.RecordView(context.Background(), "ev1")

	require.NoError(t, err)
}

func TestAnalyticsService_FlushViews_NothingBuffered(t *testing.T) {
	service, mock := setupTestAnalyticsService()
	defer mock.ClearExpect()

	mock.ExpectSMembers(viewEventsSetKey).SetVal([]string{})

	err := service.FlushViews(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_FlushViews_DrainedCounterIsForgotten(t *testing.T) {
	service, mock := setupTestAnalyticsService()
	defer mock.ClearExpect()

	// The counter already expired between SMembers and GetDel; the event id
	// is dropped from the pending set without touching the rollup.
	mock.ExpectSMembers(viewEventsSetKey).SetVal([]string{"ev1"})
	mock.ExpectGetDel("analytics:views:ev1").RedisNil()
	mock.ExpectSRem(viewEventsSetKey, "ev1").SetVal(1)

	err := service.FlushViews(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_FlushViews_ZeroCountSkipsRollup(t *testing.T) {
	service, mock := setupTestAnalyticsService()
	defer mock.ClearExpect()

	mock.ExpectSMembers(viewEventsSetKey).SetVal([]string{"ev1"})
	mock.ExpectGetDel("analytics:views:ev1").SetVal("0")
	mock.ExpectSRem(viewEventsSetKey, "ev1").SetVal(1)

	err := service.FlushViews(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
