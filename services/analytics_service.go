package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/models"
)

const (
	viewCountKeyPrefix = "analytics:views:"
	viewEventsSetKey   = "analytics:view_events"
)

// AnalyticsService keeps one rollup row per event. Booking counters are
// folded in synchronously after confirmation; page views buffer in Redis and
// a background flusher folds them in batches.
type AnalyticsService struct {
	app   core.App
	redis *redis.Client
}

func NewAnalyticsService(app core.App, redisClient *redis.Client) *AnalyticsService {
	return &AnalyticsService{app: app, redis: redisClient}
}

// RecordBooking adds one confirmed booking and its revenue to the event's
// rollup. The row is created on first touch.
func (s *AnalyticsService) RecordBooking(ctx context.Context, eventID string, revenue decimal.Decimal) error {
	return s.apply(ctx, eventID, 0, 1, revenue)
}

// RecordView buffers a single event page view in Redis.
func (s *AnalyticsService) RecordView(ctx context.Context, eventID string) error {
	if s.redis == nil {
		// No buffer available; fold the view in directly.
		return s.apply(ctx, eventID, 1, 0, decimal.Zero)
	}
	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, viewCountKeyPrefix+eventID)
	pipe.SAdd(ctx, viewEventsSetKey, eventID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("buffer view for event %s: %w", eventID, err)
	}
	return nil
}

// FlushViews drains the buffered view counters into the rollup rows.
func (s *AnalyticsService) FlushViews(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	eventIDs, err := s.redis.SMembers(ctx, viewEventsSetKey).Result()
	if err != nil {
		return fmt.Errorf("list buffered view events: %w", err)
	}

	for _, eventID := range eventIDs {
		raw, err := s.redis.GetDel(ctx, viewCountKeyPrefix+eventID).Result()
		if err == redis.Nil {
			s.redis.SRem(ctx, viewEventsSetKey, eventID)
			continue
		}
		if err != nil {
			return fmt.Errorf("drain views for event %s: %w", eventID, err)
		}
		views, _ := strconv.Atoi(raw)
		if views > 0 {
			if err := s.apply(ctx, eventID, views, 0, decimal.Zero); err != nil {
				// Put the counter back so the next flush retries it.
				s.redis.IncrBy(ctx, viewCountKeyPrefix+eventID, int64(views))
				return err
			}
		}
		s.redis.SRem(ctx, viewEventsSetKey, eventID)
	}
	return nil
}

// StartViewFlusher drains the view buffer on a fixed interval until the
// context is cancelled.
func (s *AnalyticsService) StartViewFlusher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("analytics view flusher started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			// Best effort final drain on shutdown.
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.FlushViews(fctx); err != nil {
				slog.Error("final view flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.FlushViews(ctx); err != nil {
				slog.Error("view flush failed", "error", err)
			}
		}
	}
}

// EnsureRollup creates the event's rollup row if it does not exist yet, so
// dashboards see a zero row instead of a missing one.
func (s *AnalyticsService) EnsureRollup(ctx context.Context, eventID string) error {
	return s.apply(ctx, eventID, 0, 0, decimal.Zero)
}

// Snapshot returns the current rollup for an event, zero-valued if the
// event has no activity yet.
func (s *AnalyticsService) Snapshot(ctx context.Context, eventID string) (*models.AnalyticsSnapshot, error) {
	if _, err := s.app.FindRecordById("events", eventID); err != nil {
		return nil, fmt.Errorf("%w: unknown event %s", status.ErrInvalidRequest, eventID)
	}

	snapshot := &models.AnalyticsSnapshot{EventID: eventID, TotalRevenue: decimal.Zero}

	record, err := s.app.FindFirstRecordByFilter("event_analytics",
		"event_id = {:id}", dbx.Params{"id": eventID})
	if err != nil {
		return snapshot, nil
	}

	snapshot.TotalViews = record.GetInt("total_views")
	snapshot.TotalBookings = record.GetInt("total_bookings")
	snapshot.TotalRevenue = decimal.NewFromFloat(record.GetFloat("total_revenue"))
	snapshot.LastUpdated = record.GetDateTime("updated").Time()

	// Unflushed views still count toward the live number.
	if s.redis != nil {
		if raw, rerr := s.redis.Get(ctx, viewCountKeyPrefix+eventID).Result(); rerr == nil {
			if pending, perr := strconv.Atoi(raw); perr == nil {
				snapshot.TotalViews += pending
			}
		}
	}

	return snapshot, nil
}

// apply folds deltas into the rollup row with a conditional UPDATE, falling
// back to an insert when the row does not exist yet. A concurrent first
// insert loses to the unique index and retries as an update.
func (s *AnalyticsService) apply(ctx context.Context, eventID string, views, bookings int, revenue decimal.Decimal) error {
	update := func() (int64, error) {
		res, err := s.app.DB().NewQuery(
			`UPDATE event_analytics
			 SET total_views = total_views + {:v},
			     total_bookings = total_bookings + {:b},
			     total_revenue = total_revenue + {:r},
			     updated = {:now}
			 WHERE event_id = {:id}`,
		).Bind(dbx.Params{
			"v":   views,
			"b":   bookings,
			"r":   revenue.InexactFloat64(),
			"now": time.Now().UTC().Format(time.RFC3339),
			"id":  eventID,
		}).WithContext(ctx).Execute()
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	rows, err := update()
	if err != nil {
		return fmt.Errorf("%w: analytics rollup for event %s: %v", status.ErrPersistence, eventID, err)
	}
	if rows > 0 {
		return nil
	}

	collection, err := s.app.FindCollectionByNameOrId("event_analytics")
	if err != nil {
		return fmt.Errorf("%w: event_analytics collection: %v", status.ErrPersistence, err)
	}
	record := core.NewRecord(collection)
	record.Set("event_id", eventID)
	record.Set("total_views", views)
	record.Set("total_bookings", bookings)
	record.Set("total_revenue", revenue.InexactFloat64())

	if err := s.app.Save(record); err != nil {
		if rows, uerr := update(); uerr == nil && rows > 0 {
			return nil
		}
		return fmt.Errorf("%w: create analytics row for event %s: %v", status.ErrPersistence, eventID, err)
	}
	return nil
}
