package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalyticsSnapshot is a derived per-event aggregate. It is eventually
// consistent with bookings and never the source of truth for inventory.
type AnalyticsSnapshot struct {
	EventID       string          `json:"event_id"`
	TotalViews    int             `json:"total_views"`
	TotalBookings int             `json:"total_bookings"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	LastUpdated   time.Time       `json:"last_updated"`
}
