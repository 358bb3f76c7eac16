package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentSuccess  = "success"
	PaymentRefunded = "refunded"
)

type Payment struct {
	ID            string          `json:"id"`
	BookingID     string          `json:"booking_id"`
	TransactionID string          `json:"transaction_id"`
	Gateway       string          `json:"payment_gateway"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"payment_status"` // success, refunded
	CreatedAt     time.Time       `json:"created_at"`
}
