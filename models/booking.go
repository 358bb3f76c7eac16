package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingFailed    = "failed"
)

const (
	EmailPending = "pending"
	EmailSent    = "sent"
	EmailFailed  = "failed"
)

type Booking struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	UserID      string          `json:"user_id"`
	TicketID    string          `json:"ticket_id"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"` // pending, confirmed, failed
	Reference   string          `json:"booking_reference"`
	EmailStatus string          `json:"email_status"` // pending, sent, failed
	Created     time.Time       `json:"created"`
}

type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	DOB   string `json:"dob"`
}

type AttendeeTicket struct {
	ID            string     `json:"id"`
	BookingID     string     `json:"booking_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	DOB           string     `json:"dob"`
	QRCode        string     `json:"qr_code"` // unique token, source of truth at the door
	QRGeneratedAt time.Time  `json:"qr_generated_at"`
	CheckedIn     bool       `json:"checked_in"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
}
