package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/services"
)

type CheckInHandler struct {
	app            *pocketbase.PocketBase
	checkinService *services.CheckInService
}

func NewCheckInHandler(app *pocketbase.PocketBase, checkinService *services.CheckInService) *CheckInHandler {
	return &CheckInHandler{
		app:            app,
		checkinService: checkinService,
	}
}

type scanRequest struct {
	QRCode string `json:"qr_code"`
}

// Scan - gate decision for a presented ticket token
func (h *CheckInHandler) Scan(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	var req scanRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if strings.TrimSpace(req.QRCode) == "" {
		return apis.NewBadRequestError("qr_code is required", nil)
	}

	result, err := h.checkinService.Scan(e.Request.Context(), req.QRCode, e.Auth.Id)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Scan failed", err)
	}

	// Rejections are a normal outcome for the gate, not an API error.
	return e.JSON(http.StatusOK, result)
}
