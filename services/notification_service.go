package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/models"
)

// NotificationService persists per-user notifications and pushes them over
// PubNub. The durable record is the contract; a dropped push only costs
// immediacy because clients reload the list on connect.
type NotificationService struct {
	app core.App
	pn  *pubnub.PubNub
}

func NewNotificationService(app core.App, pn *pubnub.PubNub) *NotificationService {
	return &NotificationService{app: app, pn: pn}
}

// EmitBookingConfirmed records and pushes the post-confirmation notification.
func (s *NotificationService) EmitBookingConfirmed(ctx context.Context, userID, eventID, eventTitle, reference string) error {
	if userID == "" {
		return nil
	}

	message := fmt.Sprintf("Your booking %s for %s is confirmed. Your tickets are ready.", reference, eventTitle)

	record, err := s.create(userID, eventID, models.NotificationBookingConfirmed, message)
	if err != nil {
		return err
	}

	s.push(userID, map[string]any{
		"id":                record.Id,
		"type":              models.NotificationBookingConfirmed,
		"message":           message,
		"event_id":          eventID,
		"booking_reference": reference,
		"created_at":        time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

func (s *NotificationService) create(userID, eventID, notifType, message string) (*core.Record, error) {
	collection, err := s.app.FindCollectionByNameOrId("notifications")
	if err != nil {
		return nil, fmt.Errorf("%w: notifications collection: %v", status.ErrPersistence, err)
	}
	record := core.NewRecord(collection)
	record.Set("user_id", userID)
	record.Set("event_id", eventID)
	record.Set("type", notifType)
	record.Set("message", message)
	record.Set("read", false)
	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("%w: create notification: %v", status.ErrPersistence, err)
	}
	return record, nil
}

// push publishes to the user's private channel. Errors are logged only.
func (s *NotificationService) push(userID string, payload map[string]any) {
	if s.pn == nil {
		return
	}
	channel := fmt.Sprintf("user-%s", userID)
	_, pubStatus, err := s.pn.Publish().
		Channel(channel).
		Message(payload).
		Execute()
	if err != nil {
		slog.Error("notification push failed", "channel", channel, "error", err)
		return
	}
	if pubStatus.Error != nil {
		slog.Error("notification push rejected",
			"channel", channel, "status", pubStatus.StatusCode, "error", pubStatus.Error)
	}
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	records, err := s.app.FindRecordsByFilter("notifications",
		"user_id = {:uid}", "-created", limit, 0,
		dbx.Params{"uid": userID})
	if err != nil {
		return nil, fmt.Errorf("%w: list notifications: %v", status.ErrPersistence, err)
	}

	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, map[string]any{
			"id":       r.Id,
			"type":     r.GetString("type"),
			"message":  r.GetString("message"),
			"event_id": r.GetString("event_id"),
			"read":     r.GetBool("read"),
			"created":  r.GetDateTime("created"),
		})
	}
	return out, nil
}

// MarkRead flips a single notification owned by the user.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	record, err := s.app.FindRecordById("notifications", notificationID)
	if err != nil {
		return fmt.Errorf("%w: notification %s not found", status.ErrInvalidRequest, notificationID)
	}
	if record.GetString("user_id") != userID {
		return fmt.Errorf("%w: notification %s not found", status.ErrInvalidRequest, notificationID)
	}
	record.Set("read", true)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("%w: mark notification read: %v", status.ErrPersistence, err)
	}
	return nil
}
