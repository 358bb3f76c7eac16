package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/ticket"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/models"
)

func setupTestCheckInService() (*CheckInService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	service := &CheckInService{
		redis:    db,
		cooldown: 2 * time.Second,
	}
	return service, mock
}

func TestCheckInService_Cooldown_FirstScanClaims(t *testing.T) {
	service, mock := setupTestCheckInService()
	defer mock.ClearExpect()

	token := "bk1|0|ev1|Ada|Standard|BK123|1700000000000"
	mock.ExpectSetNX("scan:cooldown:"+token, "staff-1", 2*time.Second).SetVal(true)

	dup, err := service.withinCooldown(context.Background(), token, "staff-1")

	require.NoError(t, err)
	assert.False(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInService_Cooldown_RepeatScanIsDuplicate(t *testing.T) {
	service, mock := setupTestCheckInService()
	defer mock.ClearExpect()

	token := "bk1|0|ev1|Ada|Standard|BK123|1700000000000"
	mock.ExpectSetNX("scan:cooldown:"+token, "staff-1", 2*time.Second).SetVal(false)

	dup, err := service.withinCooldown(context.Background(), token, "staff-1")

	require.NoError(t, err)
	assert.True(t, dup)
}

func TestCheckInService_Cooldown_DisabledWithoutRedis(t *testing.T) {
	service := &CheckInService{redis: nil, cooldown: 2 * time.Second}

	dup, err := service.withinCooldown(context.Background(), "any", "staff-1")

	require.NoError(t, err)
	assert.False(t, dup)
}

func TestCheckInService_Cooldown_ZeroWindowDisables(t *testing.T) {
	db, _ := redismock.NewClientMock()
	service := &CheckInService{redis: db, cooldown: 0}

	dup, err := service.withinCooldown(context.Background(), "any", "staff-1")

	require.NoError(t, err)
	assert.False(t, dup)
}

// seedAdmittableAttendee creates a confirmed booking with one unscanned
// attendee and returns the attendee's token.
func seedAdmittableAttendee(t *testing.T, app core.App) string {
	t.Helper()
	event := seedPublishedEvent(t, app)
	tier := seedTier(t, app, event.Id, 10, 150)

	bookings, err := app.FindCollectionByNameOrId("bookings")
	require.NoError(t, err)
	booking := core.NewRecord(bookings)
	booking.Set("event_id", event.Id)
	booking.Set("ticket_id", tier.Id)
	booking.Set("user_id", "user1")
	booking.Set("quantity", 1)
	booking.Set("total_amount", 150)
	booking.Set("booking_status", models.BookingConfirmed)
	booking.Set("booking_reference", "BK1700000001abc")
	booking.Set("email_status", models.EmailPending)
	require.NoError(t, app.Save(booking))

	token, err := ticket.Encode(ticket.Claims{
		BookingID:     booking.Id,
		AttendeeIndex: 0,
		EventID:       event.Id,
		AttendeeName:  "Ada",
		TierName:      "Standard",
		BookingRef:    "BK1700000001abc",
		IssuedAtMilli: time.Now().UnixMilli(),
	})
	require.NoError(t, err)

	attendees, err := app.FindCollectionByNameOrId("booking_attendees")
	require.NoError(t, err)
	attendee := core.NewRecord(attendees)
	attendee.Set("booking_id", booking.Id)
	attendee.Set("name", "Ada")
	attendee.Set("email", "ada@example.com")
	attendee.Set("qr_code", token)
	attendee.Set("qr_generated_at", time.Now().UTC())
	attendee.Set("checked_in", false)
	require.NoError(t, app.Save(attendee))

	return token
}

func TestScan_AdmitsOnceThenReportsOriginalTime(t *testing.T) {
	app := newTestApp(t)
	token := seedAdmittableAttendee(t, app)

	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()
	service := NewCheckInService(app, db, 2*time.Second)

	// Only the admitting scan touches the cooldown; the re-scan must be
	// answered from the durable flag even inside the window.
	mock.ExpectSetNX("scan:cooldown:"+token, "gate-a", 2*time.Second).SetVal(true)

	first, err := service.Scan(context.Background(), token, "gate-a")
	require.NoError(t, err)
	assert.True(t, first.Accepted)
	require.NotNil(t, first.CheckedInAt)

	second, err := service.Scan(context.Background(), token, "gate-b")
	require.NoError(t, err)
	assert.False(t, second.Accepted)
	assert.Equal(t, "already checked in", second.Reason)
	require.NotNil(t, second.CheckedInAt)
	assert.WithinDuration(t, *first.CheckedInAt, *second.CheckedInAt, time.Second)

	assert.NoError(t, mock.ExpectationsWereMet())

	scans, err := app.CountRecords("qr_scans")
	require.NoError(t, err)
	assert.EqualValues(t, 2, scans)
}

func TestScan_RejectsUnissuedToken(t *testing.T) {
	app := newTestApp(t)
	service := NewCheckInService(app, nil, 0)

	result, err := service.Scan(context.Background(), "bk9|0|ev9|Ada|VIP|BK999|1700000000000", "gate-a")
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "invalid code", result.Reason)
}
