package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/config"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/ticket"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/models"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/monitoring"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/utils"
)

// BookingService drives a booking from intake to confirmation. Each step
// registers an undo; if a later step fails, the undos run in reverse order so
// no attendee ticket, payment record or capacity hold outlives the failed
// attempt. The booking row itself stays behind in terminal failed state.
type BookingService struct {
	app       core.App
	inventory *InventoryService
	analytics *AnalyticsService
	notifier  *NotificationService
	outbox    *EmailOutbox
	cfg       *config.Config
}

func NewBookingService(
	app core.App,
	inventory *InventoryService,
	analytics *AnalyticsService,
	notifier *NotificationService,
	outbox *EmailOutbox,
	cfg *config.Config,
) *BookingService {
	return &BookingService{
		app:       app,
		inventory: inventory,
		analytics: analytics,
		notifier:  notifier,
		outbox:    outbox,
		cfg:       cfg,
	}
}

type BookingRequest struct {
	EventID    string            `json:"event_id"`
	TicketID   string            `json:"ticket_id"`
	UserID     string            `json:"-"`
	Attendees  []models.Attendee `json:"attendees"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   string            `json:"currency"`
	Gateway    string            `json:"payment_gateway"`
	PaymentRef string            `json:"payment_ref"`
}

type BookingResult struct {
	BookingID   string    `json:"booking_id"`
	Reference   string    `json:"booking_reference"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"total_amount"`
	Tokens      []string  `json:"qr_codes"`
	CreatedAt   time.Time `json:"created_at"`
}

// compensator undoes one committed step. Compensations run on a fresh
// context so a cancelled request cannot strand a half-built booking.
type compensator struct {
	name string
	undo func(ctx context.Context) error
}

// CreateBooking runs the full fulfillment saga.
func (s *BookingService) CreateBooking(ctx context.Context, req *BookingRequest) (*BookingResult, error) {
	started := time.Now()

	event, tier, err := s.validate(ctx, req)
	if err != nil {
		monitoring.TrackBooking("rejected", time.Since(started))
		return nil, err
	}

	qty := len(req.Attendees)
	total := tier.Price.Mul(decimal.NewFromInt(int64(qty)))
	if !req.Amount.IsZero() && !req.Amount.Equal(total) {
		monitoring.TrackBooking("rejected", time.Since(started))
		return nil, fmt.Errorf("%w: amount %s does not match %d x %s",
			status.ErrInvalidRequest, req.Amount, qty, tier.Price)
	}

	var comps []compensator
	fail := func(cause error) (*BookingResult, error) {
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for i := len(comps) - 1; i >= 0; i-- {
			if uerr := comps[i].undo(cctx); uerr != nil {
				slog.Error("booking compensation failed",
					"step", comps[i].name, "error", uerr)
			}
		}
		monitoring.TrackBooking("failed", time.Since(started))
		return nil, cause
	}

	// Step 1: hold capacity.
	reservation, err := s.inventory.Reserve(ctx, req.TicketID, qty)
	if err != nil {
		if errors.Is(err, status.ErrInsufficientStock) {
			monitoring.TrackStockRejection()
		}
		monitoring.TrackBooking("rejected", time.Since(started))
		return nil, err
	}
	comps = append(comps, compensator{"release_hold", reservation.Release})

	// Step 2: durable booking row with a unique human-facing reference.
	booking, err := s.createBookingRecord(ctx, req, qty, total)
	if err != nil {
		return fail(err)
	}
	comps = append(comps, compensator{"mark_failed", func(cctx context.Context) error {
		booking.Set("booking_status", models.BookingFailed)
		return s.app.Save(booking)
	}})

	// Step 3: one attendee ticket per attendee, each with a fresh token.
	// The undo is registered before the loop and closes over the shared ids
	// slice, so rows saved before a mid-loop failure are removed too.
	var attendeeIDs []string
	comps = append(comps, compensator{"delete_attendees", func(cctx context.Context) error {
		for _, id := range attendeeIDs {
			rec, ferr := s.app.FindRecordById("booking_attendees", id)
			if ferr != nil {
				continue
			}
			if derr := s.app.Delete(rec); derr != nil {
				return derr
			}
		}
		return nil
	}})
	tokens, err := s.createAttendees(ctx, booking, event, tier, req.Attendees, &attendeeIDs)
	if err != nil {
		return fail(err)
	}

	// Step 4: payment record.
	payment, err := s.createPaymentRecord(req, booking, total)
	if err != nil {
		return fail(err)
	}
	comps = append(comps, compensator{"delete_payment", func(cctx context.Context) error {
		return s.app.Delete(payment)
	}})

	// Step 5: confirm, then convert the hold into a sale.
	booking.Set("booking_status", models.BookingConfirmed)
	if err := s.app.Save(booking); err != nil {
		return fail(fmt.Errorf("%w: confirm booking: %v", status.ErrPersistence, err))
	}
	if err := reservation.Commit(ctx); err != nil {
		return fail(err)
	}

	// Past the point of no return. Everything below is best effort and can
	// never fail the booking.
	s.afterConfirm(booking, event, total)

	monitoring.TrackBooking("confirmed", time.Since(started))
	return &BookingResult{
		BookingID:   booking.Id,
		Reference:   booking.GetString("booking_reference"),
		Status:      models.BookingConfirmed,
		TotalAmount: total.StringFixed(2),
		Tokens:      tokens,
		CreatedAt:   started,
	}, nil
}

func (s *BookingService) validate(ctx context.Context, req *BookingRequest) (*core.Record, *models.TicketTier, error) {
	qty := len(req.Attendees)
	if qty == 0 {
		return nil, nil, fmt.Errorf("%w: at least one attendee is required", status.ErrInvalidRequest)
	}
	for i, a := range req.Attendees {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Email) == "" {
			return nil, nil, fmt.Errorf("%w: attendee %d is missing name or email", status.ErrInvalidRequest, i)
		}
	}

	event, err := s.app.FindRecordById("events", req.EventID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unknown event %s", status.ErrInvalidRequest, req.EventID)
	}
	if event.GetString("status") != "published" {
		return nil, nil, fmt.Errorf("%w: event %s is not open for booking", status.ErrInvalidRequest, req.EventID)
	}

	tierRec, err := s.app.FindRecordById("tickets", req.TicketID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unknown ticket tier %s", status.ErrInvalidRequest, req.TicketID)
	}
	if tierRec.GetString("event_id") != req.EventID {
		return nil, nil, fmt.Errorf("%w: ticket tier does not belong to event", status.ErrInvalidRequest)
	}

	tier := &models.TicketTier{
		ID:           tierRec.Id,
		EventID:      tierRec.GetString("event_id"),
		TicketName:   tierRec.GetString("ticket_name"),
		Price:        decimal.NewFromFloat(tierRec.GetFloat("price")),
		Quantity:     tierRec.GetInt("quantity"),
		PerUserLimit: tierRec.GetInt("per_user_limit"),
		Sold:         tierRec.GetInt("sold"),
		Reserved:     tierRec.GetInt("reserved"),
	}

	if tier.PerUserLimit > 0 && qty > tier.PerUserLimit {
		return nil, nil, fmt.Errorf("%w: at most %d tickets per booking for this tier",
			status.ErrInvalidRequest, tier.PerUserLimit)
	}

	return event, tier, nil
}

// createBookingRecord retries on booking_reference collisions; the unique
// index is the arbiter, not an application-level existence check.
func (s *BookingService) createBookingRecord(ctx context.Context, req *BookingRequest, qty int, total decimal.Decimal) (*core.Record, error) {
	collection, err := s.app.FindCollectionByNameOrId("bookings")
	if err != nil {
		return nil, fmt.Errorf("%w: bookings collection: %v", status.ErrPersistence, err)
	}

	retries := s.cfg.ReferenceRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		reference, err := utils.GenerateBookingReference()
		if err != nil {
			return nil, fmt.Errorf("%w: generate booking reference: %v", status.ErrPersistence, err)
		}

		record := core.NewRecord(collection)
		record.Set("booking_reference", reference)
		record.Set("event_id", req.EventID)
		record.Set("ticket_id", req.TicketID)
		record.Set("user_id", req.UserID)
		record.Set("quantity", qty)
		record.Set("total_amount", total.InexactFloat64())
		record.Set("booking_status", models.BookingPending)
		record.Set("email_status", models.EmailPending)

		if err := s.app.Save(record); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				lastErr = fmt.Errorf("%w: booking reference collision: %v", status.ErrRefCollision, err)
				continue
			}
			return nil, fmt.Errorf("%w: create booking: %v", status.ErrPersistence, err)
		}
		return record, nil
	}
	return nil, lastErr
}

// createAttendees appends each saved row's id to createdIDs as it goes, so
// the caller's compensator sees partial progress when a later row fails.
func (s *BookingService) createAttendees(
	ctx context.Context,
	booking *core.Record,
	event *core.Record,
	tier *models.TicketTier,
	attendees []models.Attendee,
	createdIDs *[]string,
) ([]string, error) {
	collection, err := s.app.FindCollectionByNameOrId("booking_attendees")
	if err != nil {
		return nil, fmt.Errorf("%w: booking_attendees collection: %v", status.ErrPersistence, err)
	}

	reference := booking.GetString("booking_reference")
	tokens := make([]string, 0, len(attendees))

	for i, a := range attendees {
		token, err := ticket.Encode(ticket.Claims{
			BookingID:     booking.Id,
			AttendeeIndex: i,
			EventID:       event.Id,
			AttendeeName:  a.Name,
			TierName:      tier.TicketName,
			BookingRef:    reference,
			IssuedAtMilli: time.Now().UnixMilli(),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: attendee %d: %v", status.ErrInvalidRequest, i, err)
		}

		record := core.NewRecord(collection)
		record.Set("booking_id", booking.Id)
		record.Set("name", a.Name)
		record.Set("email", a.Email)
		record.Set("phone", a.Phone)
		record.Set("dob", a.DOB)
		record.Set("qr_code", token)
		record.Set("qr_generated_at", time.Now().UTC())
		record.Set("checked_in", false)

		if err := s.app.Save(record); err != nil {
			return nil, fmt.Errorf("%w: create attendee %d: %v", status.ErrPersistence, i, err)
		}
		tokens = append(tokens, token)
		*createdIDs = append(*createdIDs, record.Id)
	}

	return tokens, nil
}

func (s *BookingService) createPaymentRecord(req *BookingRequest, booking *core.Record, total decimal.Decimal) (*core.Record, error) {
	collection, err := s.app.FindCollectionByNameOrId("payments")
	if err != nil {
		return nil, fmt.Errorf("%w: payments collection: %v", status.ErrPersistence, err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	gateway := req.Gateway
	if gateway == "" {
		gateway = "mock"
	}
	paymentRef := req.PaymentRef
	if paymentRef == "" {
		generated, err := utils.GenerateTransactionID()
		if err != nil {
			return nil, fmt.Errorf("%w: generate transaction id: %v", status.ErrPersistence, err)
		}
		paymentRef = generated
	}

	record := core.NewRecord(collection)
	record.Set("booking_id", booking.Id)
	record.Set("transaction_id", paymentRef)
	record.Set("amount", total.InexactFloat64())
	record.Set("currency", currency)
	record.Set("payment_gateway", gateway)
	record.Set("payment_status", models.PaymentSuccess)

	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("%w: create payment: %v", status.ErrPersistence, err)
	}
	return record, nil
}

// afterConfirm fans out to analytics, notifications and the email queue.
// Failures are logged and dropped; the sweeper picks up missed emails later.
func (s *BookingService) afterConfirm(booking *core.Record, event *core.Record, total decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.analytics != nil {
		if err := s.analytics.RecordBooking(ctx, event.Id, total); err != nil {
			slog.Error("analytics rollup failed", "booking", booking.Id, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.EmitBookingConfirmed(ctx,
			booking.GetString("user_id"), event.Id,
			event.GetString("title"), booking.GetString("booking_reference"),
		); err != nil {
			slog.Error("booking notification failed", "booking", booking.Id, "error", err)
		}
	}
	if s.outbox != nil {
		if err := s.outbox.Enqueue(ctx, booking.Id); err != nil {
			slog.Error("email enqueue failed", "booking", booking.Id, "error", err)
		}
	}
}

// GetBooking returns the booking detail with attendees and payment.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID string) (map[string]any, error) {
	booking, err := s.app.FindRecordById("bookings", bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking %s not found", status.ErrInvalidRequest, bookingID)
	}
	if userID != "" && booking.GetString("user_id") != userID {
		return nil, fmt.Errorf("%w: booking %s not found", status.ErrInvalidRequest, bookingID)
	}

	attendees, err := s.app.FindRecordsByFilter("booking_attendees",
		"booking_id = {:id}", "created", 0, 0,
		dbx.Params{"id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("%w: load attendees: %v", status.ErrPersistence, err)
	}

	attendeeViews := make([]map[string]any, 0, len(attendees))
	for _, a := range attendees {
		attendeeViews = append(attendeeViews, map[string]any{
			"id":            a.Id,
			"name":          a.GetString("name"),
			"qr_code":       a.GetString("qr_code"),
			"checked_in":    a.GetBool("checked_in"),
			"checked_in_at": a.GetDateTime("checked_in_at"),
		})
	}

	detail := map[string]any{
		"id":                booking.Id,
		"booking_reference": booking.GetString("booking_reference"),
		"event_id":          booking.GetString("event_id"),
		"ticket_id":         booking.GetString("ticket_id"),
		"quantity":          booking.GetInt("quantity"),
		"total_amount":      booking.GetFloat("total_amount"),
		"booking_status":    booking.GetString("booking_status"),
		"email_status":      booking.GetString("email_status"),
		"attendees":         attendeeViews,
	}

	if payment, err := s.app.FindFirstRecordByFilter("payments",
		"booking_id = {:id}", dbx.Params{"id": bookingID}); err == nil {
		detail["payment"] = map[string]any{
			"transaction_id":  payment.GetString("transaction_id"),
			"amount":          payment.GetFloat("amount"),
			"currency":        payment.GetString("currency"),
			"payment_status":  payment.GetString("payment_status"),
			"payment_gateway": payment.GetString("payment_gateway"),
		}
	}

	return detail, nil
}

// GetBookingHistory lists the user's bookings, newest first.
func (s *BookingService) GetBookingHistory(ctx context.Context, userID string, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	records, err := s.app.FindRecordsByFilter("bookings",
		"user_id = {:uid}", "-created", limit, 0,
		dbx.Params{"uid": userID})
	if err != nil {
		return nil, fmt.Errorf("%w: booking history: %v", status.ErrPersistence, err)
	}

	out := make([]map[string]any, 0, len(records))
	for _, b := range records {
		out = append(out, map[string]any{
			"id":                b.Id,
			"booking_reference": b.GetString("booking_reference"),
			"event_id":          b.GetString("event_id"),
			"quantity":          b.GetInt("quantity"),
			"total_amount":      b.GetFloat("total_amount"),
			"booking_status":    b.GetString("booking_status"),
			"created":           b.GetDateTime("created"),
		})
	}
	return out, nil
}
