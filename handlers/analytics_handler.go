package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/services"
)

type AnalyticsHandler struct {
	app       *pocketbase.PocketBase
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(app *pocketbase.PocketBase, analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{app: app, analytics: analytics}
}

// GetEventAnalytics - rollup snapshot for one event
func (h *AnalyticsHandler) GetEventAnalytics(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	snapshot, err := h.analytics.Snapshot(e.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, status.ErrInvalidRequest) {
			return apis.NewNotFoundError("Event not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to load analytics", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":       snapshot.EventID,
		"total_views":    snapshot.TotalViews,
		"total_bookings": snapshot.TotalBookings,
		"total_revenue":  snapshot.TotalRevenue.StringFixed(2),
		"last_updated":   snapshot.LastUpdated,
	})
}

// RecordView - buffer one event page view
func (h *AnalyticsHandler) RecordView(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	if err := h.analytics.RecordView(e.Request.Context(), eventID); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to record view", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"recorded": true})
}
