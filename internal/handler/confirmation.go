package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// ConfirmationHandler handles pickup confirmations.
type ConfirmationHandler struct {
	confirmationService *service.ConfirmationService
}

// NewConfirmationHandler creates a new ConfirmationHandler.
func NewConfirmationHandler(confirmationService *service.ConfirmationService) *ConfirmationHandler {
	return &ConfirmationHandler{confirmationService: confirmationService}
}

// ConfirmRequest is the HTTP request body for a confirmation. A missing
// is_confirmed counts as true.
type ConfirmRequest struct {
	IsConfirmed *bool `json:"is_confirmed"`
}

// ConfirmationResponse is a recorded confirmation.
type ConfirmationResponse struct {
	ID          string `json:"id"`
	TripID      string `json:"trip_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	IsConfirmed bool   `json:"is_confirmed"`
	ConfirmedAt string `json:"confirmed_at"`
}

// ConfirmResponse is the HTTP response for a confirmation.
type ConfirmResponse struct {
	Message       string               `json:"message"`
	Confirmation  ConfirmationResponse `json:"confirmation"`
	TripStatus    string               `json:"trip_status"`
	TripCompleted bool                 `json:"trip_completed"`
}

// ConfirmAsDriver handles POST /api/trips/:tripId/confirm-driver
func (h *ConfirmationHandler) ConfirmAsDriver(c *gin.Context) {
	h.confirm(c, domain.RoleDriver)
}

// ConfirmAsPassenger handles POST /api/trips/:tripId/confirm-passenger
func (h *ConfirmationHandler) ConfirmAsPassenger(c *gin.Context) {
	h.confirm(c, domain.RolePassenger)
}

func (h *ConfirmationHandler) confirm(c *gin.Context, role domain.Role) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	isConfirmed := true
	if req.IsConfirmed != nil {
		isConfirmed = *req.IsConfirmed
	}

	result, err := h.confirmationService.Confirm(c.Request.Context(), service.ConfirmRequest{
		TripID:      c.Param("tripId"),
		UserID:      userID,
		Role:        role,
		IsConfirmed: isConfirmed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ConfirmResponse{
		Message:       "pickup confirmed",
		Confirmation:  toConfirmationResponse(result.Confirmation),
		TripStatus:    string(result.Trip.Status),
		TripCompleted: result.TripCompleted,
	})
}

func toConfirmationResponse(c *domain.Confirmation) ConfirmationResponse {
	return ConfirmationResponse{
		ID:          c.ID,
		TripID:      c.TripID,
		UserID:      c.UserID,
		Role:        string(c.Role),
		IsConfirmed: c.IsConfirmed,
		ConfirmedAt: formatTime(c.ConfirmedAt),
	}
}
