package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	EventDate   time.Time `json:"event_date"`
	EventTime   string    `json:"event_time"`
	OrganizerID string    `json:"organizer_id"`
	Status      string    `json:"status"` // draft, published, cancelled, completed
}

type TicketTier struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	TicketName   string          `json:"ticket_name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"` // total capacity, never oversold
	PerUserLimit int             `json:"per_user_limit"`
	Sold         int             `json:"sold"`
	Reserved     int             `json:"reserved"`
}

// Remaining returns the sellable units left on the tier.
func (t TicketTier) Remaining() int {
	return t.Quantity - t.Sold - t.Reserved
}
