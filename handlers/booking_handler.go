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

type BookingHandler struct {
	app            *pocketbase.PocketBase
	bookingService *services.BookingService
	inventory      *services.InventoryService
}

func NewBookingHandler(app *pocketbase.PocketBase, bookingService *services.BookingService, inventory *services.InventoryService) *BookingHandler {
	return &BookingHandler{
		app:            app,
		bookingService: bookingService,
		inventory:      inventory,
	}
}

// CreateBooking - run the fulfillment flow for an authenticated user
func (h *BookingHandler) CreateBooking(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	var req services.BookingRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	req.UserID = e.Auth.Id

	result, err := h.bookingService.CreateBooking(e.Request.Context(), &req)
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusCreated, result)
}

// GetBooking - booking detail with attendees and payment
func (h *BookingHandler) GetBooking(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	bookingID := e.Request.PathValue("bookingId")
	detail, err := h.bookingService.GetBooking(e.Request.Context(), bookingID, e.Auth.Id)
	if err != nil {
		if errors.Is(err, status.ErrInvalidRequest) {
			return apis.NewNotFoundError("Booking not found", nil)
		}
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, detail)
}

// GetBookingHistory - the user's bookings, newest first
func (h *BookingHandler) GetBookingHistory(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	limit, _ := strconv.Atoi(e.Request.URL.Query().Get("limit"))
	bookings, err := h.bookingService.GetBookingHistory(e.Request.Context(), e.Auth.Id, limit)
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"bookings": bookings})
}

// GetAvailability - remaining sellable units for a ticket tier
func (h *BookingHandler) GetAvailability(e *core.RequestEvent) error {
	tierID := e.Request.PathValue("ticketId")
	remaining, err := h.inventory.Availability(e.Request.Context(), tierID)
	if err != nil {
		return apis.NewNotFoundError("Ticket tier not found", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": tierID,
		"available": remaining,
	})
}

// mapServiceError translates service sentinels into API responses.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, status.ErrInsufficientStock):
		return apis.NewApiError(http.StatusConflict, "Not enough tickets available", nil)
	case errors.Is(err, status.ErrInvalidRequest):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrRefCollision):
		return apis.NewApiError(http.StatusServiceUnavailable, "Could not allocate a booking reference, please retry", nil)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
}
