package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Total booking attempts by outcome",
		},
		[]string{"status"},
	)

	bookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_duration_seconds",
			Help:    "Duration of the booking saga",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"status"},
	)

	checkinScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_scans_total",
			Help: "Total check-in scans by result",
		},
		[]string{"result"},
	)

	stockRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_stock_rejections_total",
			Help: "Reservations rejected for insufficient stock",
		},
	)

	pendingEmails = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_ticket_emails_total",
			Help: "Confirmed bookings whose ticket email is not sent yet",
		},
	)

	bufferedViews = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "buffered_event_views_total",
			Help: "Event page views buffered in Redis awaiting flush",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

type recordCounter interface {
	CountRecords(collectionModelOrIdentifier any, exprs ...dbx.Expression) (int64, error)
}

type Monitor struct {
	app   recordCounter
	redis *redis.Client
}

func NewMonitor(app recordCounter, redisClient *redis.Client) *Monitor {
	monitor := &Monitor{app: app, redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		m.collectEmailBacklog()
		m.collectViewBuffer(ctx)
		goroutineCount.Set(float64(runtime.NumGoroutine()))
	}
}

func (m *Monitor) collectEmailBacklog() {
	if m.app == nil {
		return
	}
	count, err := m.app.CountRecords("bookings",
		dbx.HashExp{"booking_status": "confirmed"},
		dbx.NewExp("email_status != {:sent}", dbx.Params{"sent": "sent"}),
	)
	if err != nil {
		return
	}
	pendingEmails.Set(float64(count))
}

func (m *Monitor) collectViewBuffer(ctx context.Context) {
	if m.redis == nil {
		return
	}
	keys, _ := m.redis.Keys(ctx, "analytics:views:*").Result()
	total := int64(0)
	for _, key := range keys {
		n, _ := m.redis.Get(ctx, key).Int64()
		total += n
	}
	bufferedViews.Set(float64(total))
}

func TrackBooking(status string, duration time.Duration) {
	bookingOperations.WithLabelValues(status).Inc()
	bookingDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func TrackScan(result string) {
	checkinScans.WithLabelValues(result).Inc()
}

func TrackStockRejection() {
	stockRejections.Inc()
}
