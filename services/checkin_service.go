package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/redis/go-redis/v9"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/ticket"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/models"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/monitoring"
)

const scanReasonOK = "checked in"

// rejection maps a rejection class to what the gate displays and what the
// metric label records.
type rejection struct {
	reason string
	metric string
}

var rejections = map[error]rejection{
	status.ErrMalformedToken:      {"invalid code", "invalid"},
	status.ErrTokenNotFound:       {"invalid code", "invalid"},
	status.ErrBookingNotConfirmed: {"booking not confirmed", "not_confirmed"},
	status.ErrAlreadyCheckedIn:    {"already checked in", "already_checked_in"},
	status.ErrDuplicateScan:       {"duplicate scan", "duplicate"},
}

// CheckInService turns a scanned token into an admit or reject decision.
// The durable checked_in flag on the attendee row is the source of truth;
// the Redis cooldown only shields the gate from rapid re-reads of the same
// code and losing it degrades to accepting those retries at the flag.
type CheckInService struct {
	app      core.App
	redis    *redis.Client
	cooldown time.Duration
}

func NewCheckInService(app core.App, redisClient *redis.Client, cooldown time.Duration) *CheckInService {
	return &CheckInService{app: app, redis: redisClient, cooldown: cooldown}
}

type ScanResult struct {
	Accepted     bool       `json:"accepted"`
	Reason       string     `json:"reason"`
	AttendeeName string     `json:"attendee_name,omitempty"`
	EventTitle   string     `json:"event_title,omitempty"`
	TierName     string     `json:"tier_name,omitempty"`
	BookingRef   string     `json:"booking_reference,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

// Scan decides exactly one outcome for a presented token and appends it to
// the audit log regardless of the decision.
func (s *CheckInService) Scan(ctx context.Context, token, scannedBy string) (*ScanResult, error) {
	claims, err := ticket.Decode(token)
	if err != nil {
		return s.reject(ctx, &ScanResult{}, "", scannedBy, status.ErrMalformedToken), nil
	}

	attendee, err := s.app.FindFirstRecordByFilter("booking_attendees",
		"qr_code = {:token}", dbx.Params{"token": token})
	if err != nil {
		// The token parses but nothing was issued with it.
		return s.reject(ctx, &ScanResult{}, "", scannedBy, status.ErrTokenNotFound), nil
	}

	result := &ScanResult{
		AttendeeName: attendee.GetString("name"),
		TierName:     claims.TierName,
		BookingRef:   claims.BookingRef,
	}

	// A ticket that already admitted someone always reports the original
	// admission time, no matter which station re-reads it or how soon.
	if attendee.GetBool("checked_in") {
		prev := attendee.GetDateTime("checked_in_at").Time()
		if !prev.IsZero() {
			result.CheckedInAt = &prev
		}
		return s.reject(ctx, result, attendee.Id, scannedBy, status.ErrAlreadyCheckedIn), nil
	}

	booking, err := s.app.FindRecordById("bookings", attendee.GetString("booking_id"))
	if err != nil {
		return nil, fmt.Errorf("%w: load booking for attendee %s: %v", status.ErrPersistence, attendee.Id, err)
	}
	if booking.GetString("booking_status") != models.BookingConfirmed {
		return s.reject(ctx, result, attendee.Id, scannedBy, status.ErrBookingNotConfirmed), nil
	}

	// Debounce for a still-unscanned token, so a taped-down trigger cannot
	// spam the audit log with CAS attempts.
	if dup, derr := s.withinCooldown(ctx, token, scannedBy); derr != nil {
		slog.Warn("scan cooldown unavailable", "error", derr)
	} else if dup {
		return s.reject(ctx, result, attendee.Id, scannedBy, status.ErrDuplicateScan), nil
	}

	// One winner per token: the flag flips only if it is still unset.
	now := types.NowDateTime()
	res, err := s.app.DB().NewQuery(
		`UPDATE booking_attendees
		 SET checked_in = 1, checked_in_at = {:now}
		 WHERE id = {:id} AND checked_in = 0`,
	).Bind(dbx.Params{"now": now.String(), "id": attendee.Id}).WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: check in attendee %s: %v", status.ErrPersistence, attendee.Id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: check in attendee %s: %v", status.ErrPersistence, attendee.Id, err)
	}
	if rows == 0 {
		// Lost the CAS race or a re-presented ticket; report the original
		// admission time.
		if fresh, ferr := s.app.FindRecordById("booking_attendees", attendee.Id); ferr == nil {
			attendee = fresh
		}
		prev := attendee.GetDateTime("checked_in_at").Time()
		if !prev.IsZero() {
			result.CheckedInAt = &prev
		}
		return s.reject(ctx, result, attendee.Id, scannedBy, status.ErrAlreadyCheckedIn), nil
	}

	if event, eerr := s.app.FindRecordById("events", claims.EventID); eerr == nil {
		result.EventTitle = event.GetString("title")
	}

	s.logScan(ctx, attendee.Id, scannedBy, true, scanReasonOK)
	monitoring.TrackScan("accepted")
	result.Accepted = true
	result.Reason = scanReasonOK
	at := now.Time()
	result.CheckedInAt = &at
	return result, nil
}

// reject finalizes a refused scan: audit row, metric, displayed reason.
func (s *CheckInService) reject(ctx context.Context, result *ScanResult, attendeeID, scannedBy string, cause error) *ScanResult {
	rej := rejections[cause]
	s.logScan(ctx, attendeeID, scannedBy, false, rej.reason)
	monitoring.TrackScan(rej.metric)
	result.Accepted = false
	result.Reason = rej.reason
	return result
}

// withinCooldown reports whether the same token was scanned moments ago.
// The first scan in a window claims the key; later ones inside the window
// are duplicates.
func (s *CheckInService) withinCooldown(ctx context.Context, token, scannedBy string) (bool, error) {
	if s.redis == nil || s.cooldown <= 0 {
		return false, nil
	}
	key := fmt.Sprintf("scan:cooldown:%s", token)
	set, err := s.redis.SetNX(ctx, key, scannedBy, s.cooldown).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return !set, nil
}

// logScan appends to the qr_scans audit trail. Audit failures are logged
// and swallowed so they can never mask the gate decision.
func (s *CheckInService) logScan(ctx context.Context, attendeeID, scannedBy string, valid bool, reason string) {
	collection, err := s.app.FindCollectionByNameOrId("qr_scans")
	if err != nil {
		slog.Error("scan audit unavailable", "error", err)
		return
	}
	record := core.NewRecord(collection)
	record.Set("booking_attendee_id", attendeeID)
	record.Set("scanned_by", scannedBy)
	record.Set("scanned_at", time.Now().UTC())
	record.Set("valid", valid)
	record.Set("reason", reason)
	if err := s.app.Save(record); err != nil {
		slog.Error("scan audit write failed", "attendee", attendeeID, "error", err)
	}
}
