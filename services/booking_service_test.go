package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/config"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	_ "github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/migrations"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/models"
)

func newTestApp(t *testing.T) *tests.TestApp {
	t.Helper()
	app, err := tests.NewTestApp(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)
	return app
}

func seedPublishedEvent(t *testing.T, app core.App) *core.Record {
	t.Helper()
	collection, err := app.FindCollectionByNameOrId("events")
	require.NoError(t, err)
	event := core.NewRecord(collection)
	event.Set("title", "Gopher Conf")
	event.Set("event_date", time.Now().AddDate(0, 1, 0).UTC())
	event.Set("status", "published")
	require.NoError(t, app.Save(event))
	return event
}

func seedTier(t *testing.T, app core.App, eventID string, quantity int, price float64) *core.Record {
	t.Helper()
	collection, err := app.FindCollectionByNameOrId("tickets")
	require.NoError(t, err)
	tier := core.NewRecord(collection)
	tier.Set("event_id", eventID)
	tier.Set("ticket_name", "Standard")
	tier.Set("price", price)
	tier.Set("quantity", quantity)
	require.NoError(t, app.Save(tier))
	return tier
}

func newTestBookingService(app core.App) *BookingService {
	return &BookingService{
		app:       app,
		inventory: NewInventoryService(app),
		cfg:       &config.Config{ReferenceRetries: 3},
	}
}

func TestCreateBooking_ConfirmsAndIssuesTickets(t *testing.T) {
	app := newTestApp(t)
	event := seedPublishedEvent(t, app)
	tier := seedTier(t, app, event.Id, 10, 150)
	svc := newTestBookingService(app)

	result, err := svc.CreateBooking(context.Background(), &BookingRequest{
		EventID:  event.Id,
		TicketID: tier.Id,
		UserID:   "user1",
		Attendees: []models.Attendee{
			{Name: "Ada", Email: "ada@example.com"},
			{Name: "Grace", Email: "grace@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, result.Status)
	assert.Len(t, result.Tokens, 2)
	assert.NotEmpty(t, result.Reference)
	assert.Equal(t, "300.00", result.TotalAmount)

	fresh, err := app.FindRecordById("tickets", tier.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.GetInt("sold"))
	assert.Equal(t, 0, fresh.GetInt("reserved"))

	attendees, err := app.CountRecords("booking_attendees",
		dbx.HashExp{"booking_id": result.BookingID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, attendees)

	payments, err := app.CountRecords("payments",
		dbx.HashExp{"booking_id": result.BookingID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, payments)
}

func TestCreateBooking_FailedAttemptLeavesNoAttendeeRows(t *testing.T) {
	app := newTestApp(t)
	event := seedPublishedEvent(t, app)
	tier := seedTier(t, app, event.Id, 10, 150)
	svc := newTestBookingService(app)

	// The second attendee's name carries the token delimiter, so minting
	// fails after the first attendee row was already saved.
	_, err := svc.CreateBooking(context.Background(), &BookingRequest{
		EventID:  event.Id,
		TicketID: tier.Id,
		UserID:   "user1",
		Attendees: []models.Attendee{
			{Name: "Ada", Email: "ada@example.com"},
			{Name: "Bob|Evil", Email: "bob@example.com"},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidRequest))

	attendees, err := app.CountRecords("booking_attendees")
	require.NoError(t, err)
	assert.EqualValues(t, 0, attendees, "no attendee ticket may outlive a failed attempt")

	payments, err := app.CountRecords("payments")
	require.NoError(t, err)
	assert.EqualValues(t, 0, payments)

	booking, err := app.FindFirstRecordByFilter("bookings",
		"user_id = {:uid}", dbx.Params{"uid": "user1"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingFailed, booking.GetString("booking_status"))

	fresh, err := app.FindRecordById("tickets", tier.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.GetInt("sold"))
	assert.Equal(t, 0, fresh.GetInt("reserved"), "capacity hold must be released")
}

func TestCreateBooking_RejectsWhenSoldOut(t *testing.T) {
	app := newTestApp(t)
	event := seedPublishedEvent(t, app)
	tier := seedTier(t, app, event.Id, 1, 150)
	svc := newTestBookingService(app)

	_, err := svc.CreateBooking(context.Background(), &BookingRequest{
		EventID:  event.Id,
		TicketID: tier.Id,
		UserID:   "user1",
		Attendees: []models.Attendee{
			{Name: "Ada", Email: "ada@example.com"},
			{Name: "Grace", Email: "grace@example.com"},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInsufficientStock))

	bookings, err := app.CountRecords("bookings")
	require.NoError(t, err)
	assert.EqualValues(t, 0, bookings)
}

func TestCreateBooking_RejectsAmountMismatch(t *testing.T) {
	app := newTestApp(t)
	event := seedPublishedEvent(t, app)
	tier := seedTier(t, app, event.Id, 10, 150)
	svc := newTestBookingService(app)

	_, err := svc.CreateBooking(context.Background(), &BookingRequest{
		EventID:  event.Id,
		TicketID: tier.Id,
		UserID:   "user1",
		Amount:   decimal.NewFromInt(1),
		Attendees: []models.Attendee{
			{Name: "Ada", Email: "ada@example.com"},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidRequest))
}
