package models

import (
	"time"
)

const NotificationBookingConfirmed = "booking_confirmation"

type Notification struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	EventID string    `json:"event_id"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Read    bool      `json:"read"`
	Created time.Time `json:"created"`
}
