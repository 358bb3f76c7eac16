package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/config"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/models"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/utils"
)

// Mailer delivers the ticket bundle for a confirmed booking. The concrete
// sender lives behind this interface so delivery failures can be absorbed by
// the circuit breaker without the outbox knowing the transport.
type Mailer interface {
	SendTicketBundle(ctx context.Context, bookingID string) error
}

// LogMailer is the default delivery stand-in. It records the handoff so the
// pipeline is observable end to end even without an SMTP account configured.
type LogMailer struct{}

func (LogMailer) SendTicketBundle(ctx context.Context, bookingID string) error {
	slog.Info("ticket email handed off", "booking", bookingID)
	return nil
}

type emailJob struct {
	BookingID string `json:"booking_id"`
}

// EmailOutbox decouples ticket email delivery from booking confirmation.
// Confirmed bookings enqueue a job on a durable queue; a consumer worker
// delivers through the mailer behind a circuit breaker; a periodic sweeper
// re-enqueues bookings whose email never made it out.
type EmailOutbox struct {
	app     core.App
	cfg     *config.Config
	mailer  Mailer
	breaker *utils.CircuitBreaker

	// Publishing reuses one connection and channel across bookings; the
	// pair is redialed lazily when the broker drops it.
	pubMu   sync.Mutex
	pubConn *amqp.Connection
	pubCh   *amqp.Channel
}

func NewEmailOutbox(app core.App, cfg *config.Config, mailer Mailer) *EmailOutbox {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &EmailOutbox{
		app:     app,
		cfg:     cfg,
		mailer:  mailer,
		breaker: utils.NewCircuitBreaker("email-delivery", utils.Settings{}),
	}
}

// Enqueue publishes a delivery job for the booking. Messages are persistent
// so a broker restart does not lose them.
func (o *EmailOutbox) Enqueue(ctx context.Context, bookingID string) error {
	body, err := json.Marshal(emailJob{BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	o.pubMu.Lock()
	defer o.pubMu.Unlock()

	ch, err := o.publisherChannel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", o.cfg.EmailQueueName, false, false, msg); err != nil {
		// The channel may have died since the last publish; one redial
		// covers that before giving up.
		o.closePublisher()
		if ch, err = o.publisherChannel(); err != nil {
			return err
		}
		if err := ch.PublishWithContext(ctx, "", o.cfg.EmailQueueName, false, false, msg); err != nil {
			o.closePublisher()
			return fmt.Errorf("amqp publish: %w", err)
		}
	}
	return nil
}

// publisherChannel returns the shared publish channel, dialing when there is
// none or the previous one is closed. Callers must hold pubMu.
func (o *EmailOutbox) publisherChannel() (*amqp.Channel, error) {
	if o.pubCh != nil && !o.pubCh.IsClosed() {
		return o.pubCh, nil
	}
	o.closePublisher()

	conn, err := amqp.Dial(o.cfg.AmqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(o.cfg.EmailQueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	o.pubConn = conn
	o.pubCh = ch
	return ch, nil
}

// closePublisher drops the cached connection pair. Callers must hold pubMu.
func (o *EmailOutbox) closePublisher() {
	if o.pubCh != nil {
		_ = o.pubCh.Close()
		o.pubCh = nil
	}
	if o.pubConn != nil {
		_ = o.pubConn.Close()
		o.pubConn = nil
	}
}

// StartConsumer runs the delivery worker with a reconnect loop until the
// context is cancelled.
func (o *EmailOutbox) StartConsumer(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := amqp.Dial(o.cfg.AmqpURL)
		if err != nil {
			slog.Error("email consumer dial failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := o.consumeLoop(ctx, conn); err != nil {
			slog.Error("email consume loop ended", "error", err)
		}
		conn.Close()
	}
}

func (o *EmailOutbox) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		slog.Warn("email consumer qos failed", "error", err)
	}

	if _, err := ch.QueueDeclare(o.cfg.EmailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	msgs, err := ch.Consume(o.cfg.EmailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			var job emailJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				slog.Error("email job unmarshal failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := o.dispatch(ctx, job.BookingID); err != nil {
				slog.Error("email dispatch failed", "booking", job.BookingID, "error", err)
				// The sweeper retries failed bookings; requeueing here
				// would tight-loop against an open breaker.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// dispatch delivers one booking's tickets and records the outcome on the
// booking row. Bookings that are no longer confirmed are skipped.
func (o *EmailOutbox) dispatch(ctx context.Context, bookingID string) error {
	booking, err := o.app.FindRecordById("bookings", bookingID)
	if err != nil {
		return fmt.Errorf("%w: booking %s not found", status.ErrInvalidRequest, bookingID)
	}
	if booking.GetString("booking_status") != models.BookingConfirmed {
		slog.Info("skipping email for non-confirmed booking",
			"booking", bookingID, "status", booking.GetString("booking_status"))
		return nil
	}
	if booking.GetString("email_status") == models.EmailSent {
		return nil
	}

	err = o.breaker.Execute(ctx, func(cctx context.Context) error {
		return o.mailer.SendTicketBundle(cctx, bookingID)
	})
	if err != nil {
		booking.Set("email_status", models.EmailFailed)
		if serr := o.app.Save(booking); serr != nil {
			slog.Error("email status update failed", "booking", bookingID, "error", serr)
		}
		return err
	}

	booking.Set("email_status", models.EmailSent)
	if err := o.app.Save(booking); err != nil {
		return fmt.Errorf("%w: record email sent: %v", status.ErrPersistence, err)
	}
	return nil
}

// StartSweeper periodically re-enqueues confirmed bookings whose email is
// still pending or failed, so a dropped enqueue or an open breaker window is
// eventually healed.
func (o *EmailOutbox) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("email sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.sweep(ctx); err != nil {
				slog.Error("email sweep failed", "error", err)
			}
		}
	}
}

func (o *EmailOutbox) sweep(ctx context.Context) error {
	// created is stored in the types.DateTime layout; the cutoff has to use
	// the same layout for the string comparison to respect time of day.
	cutoff := types.NowDateTime().Add(-interval(o.cfg.EmailSweepInterval))
	records, err := o.app.FindRecordsByFilter("bookings",
		"booking_status = {:confirmed} && email_status != {:sent} && created < {:cutoff}",
		"created", 100, 0,
		dbx.Params{
			"confirmed": models.BookingConfirmed,
			"sent":      models.EmailSent,
			"cutoff":    cutoff.String(),
		})
	if err != nil {
		return fmt.Errorf("%w: sweep query: %v", status.ErrPersistence, err)
	}

	for _, booking := range records {
		if err := o.Enqueue(ctx, booking.Id); err != nil {
			return err
		}
		slog.Info("re-enqueued stale email", "booking", booking.Id)
	}
	return nil
}

// interval guards against a zero sweep window leaving fresh bookings
// permanently invisible to the sweeper.
func interval(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Minute
	}
	return d
}
