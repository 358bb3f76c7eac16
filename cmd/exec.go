package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/config"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/handlers"
	_ "github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/migrations"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/monitoring"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/security"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/services"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/utils"
)

func Start() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment")
	}

	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		slog.Warn("pubnub keys not configured, realtime pushes disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	inventoryService := services.NewInventoryService(app)
	analyticsService := services.NewAnalyticsService(app, redisClient)
	notificationService := services.NewNotificationService(app, pn)
	emailOutbox := services.NewEmailOutbox(app, cfg, services.LogMailer{})
	bookingService := services.NewBookingService(app, inventoryService, analyticsService, notificationService, emailOutbox, cfg)
	checkinService := services.NewCheckInService(app, redisClient, cfg.ScanCooldown)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(app, bookingService, inventoryService)
	checkinHandler := handlers.NewCheckInHandler(app, checkinService)
	analyticsHandler := handlers.NewAnalyticsHandler(app, analyticsService)
	notificationHandler := handlers.NewNotificationHandler(app, notificationService)

	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go analyticsService.StartViewFlusher(ctx, cfg.ViewFlushInterval)
	go emailOutbox.StartConsumer(ctx)
	go emailOutbox.StartSweeper(ctx, cfg.EmailSweepInterval)
	monitoring.NewMonitor(app, redisClient)

	if cfg.EnableMetrics {
		go serveMetrics(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Booking endpoints
		e.Router.POST("/api/v1/bookings", bookingHandler.CreateBooking).
			BindFunc(rateLimiter.Limit("booking", 10, time.Minute))
		e.Router.GET("/api/v1/bookings", bookingHandler.GetBookingHistory)
		e.Router.GET("/api/v1/bookings/{bookingId}", bookingHandler.GetBooking)
		e.Router.GET("/api/v1/tickets/{ticketId}/availability", bookingHandler.GetAvailability)

		// Check-in endpoints
		e.Router.POST("/api/v1/checkin/scan", checkinHandler.Scan).
			BindFunc(rateLimiter.Limit("scan", 120, time.Minute))

		// Analytics endpoints
		e.Router.GET("/api/v1/events/{eventId}/analytics", analyticsHandler.GetEventAnalytics)
		e.Router.POST("/api/v1/events/{eventId}/view", analyticsHandler.RecordView).
			BindFunc(rateLimiter.Limit("view", 60, time.Minute))

		// Notification endpoints
		e.Router.GET("/api/v1/notifications", notificationHandler.ListNotifications)
		e.Router.POST("/api/v1/notifications/{notificationId}/read", notificationHandler.MarkRead)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupEventHooks(app, analyticsService)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// setupEventHooks seeds a zero analytics rollup when an event goes live so
// dashboard reads never miss the row.
func setupEventHooks(app *pocketbase.PocketBase, analytics *services.AnalyticsService) {
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		if e.Record.GetString("status") == "published" {
			if err := analytics.EnsureRollup(e.Request.Context(), e.Record.Id); err != nil {
				slog.Error("analytics rollup seed failed", "event", e.Record.Id, "error", err)
			}
		}
		return nil
	})

	app.OnRecordUpdateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		if e.Record.GetString("status") == "published" {
			if err := analytics.EnsureRollup(e.Request.Context(), e.Record.Id); err != nil {
				slog.Error("analytics rollup seed failed", "event", e.Record.Id, "error", err)
			}
		}
		return nil
	})
}

// serveMetrics exposes the Prometheus registry on its own listener so the
// scrape surface stays off the public API port.
func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics listener started", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("metrics listener stopped", "error", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
