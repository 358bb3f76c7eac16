package status

import "errors"

var (
	// Booking critical path.
	ErrInvalidRequest    = errors.New("booking: invalid request")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrPersistence       = errors.New("booking: persistence failure")
	ErrRefCollision      = errors.New("booking: reference collision")

	// Check-in rejections, surfaced to door staff. Never fatal.
	ErrMalformedToken      = errors.New("checkin: malformed token")
	ErrTokenNotFound       = errors.New("checkin: token not found")
	ErrBookingNotConfirmed = errors.New("checkin: booking not confirmed")
	ErrAlreadyCheckedIn    = errors.New("checkin: already checked in")
	ErrDuplicateScan       = errors.New("checkin: duplicate scan")
)
