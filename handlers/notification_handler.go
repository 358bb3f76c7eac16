package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/services"
)

type NotificationHandler struct {
	app      *pocketbase.PocketBase
	notifier *services.NotificationService
}

func NewNotificationHandler(app *pocketbase.PocketBase, notifier *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{app: app, notifier: notifier}
}

// ListNotifications - the user's notifications, newest first
func (h *NotificationHandler) ListNotifications(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	limit, _ := strconv.Atoi(e.Request.URL.Query().Get("limit"))
	notifications, err := h.notifier.ListForUser(e.Request.Context(), e.Auth.Id, limit)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to load notifications", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"notifications": notifications})
}

// MarkRead - flip one notification owned by the user
func (h *NotificationHandler) MarkRead(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	notificationID := e.Request.PathValue("notificationId")
	if err := h.notifier.MarkRead(e.Request.Context(), notificationID, e.Auth.Id); err != nil {
		if errors.Is(err, status.ErrInvalidRequest) {
			return apis.NewNotFoundError("Notification not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to update notification", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"read": true})
}
