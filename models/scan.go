package models

import (
	"time"
)

// ScanLog is an append-only record of a check-in attempt. Rejected attempts
// are kept too, with Valid=false, for audit and duplicate-scan detection.
type ScanLog struct {
	ID         string    `json:"id"`
	AttendeeID string    `json:"booking_attendee_id"`
	ScannedBy  string    `json:"scanned_by"`
	ScannedAt  time.Time `json:"scanned_at"`
	Valid      bool      `json:"valid"`
	Reason     string    `json:"reason"`
}
