package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// RequestHandler handles HTTP requests for passenger requests.
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// DecideRequestRequest is the HTTP request body for a driver's decision.
type DecideRequestRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected accept reject"`
}

// PassengerRequestResponse is a passenger's request with its trip.
type PassengerRequestResponse struct {
	Request TripRequestResponse `json:"request"`
	Trip    TripResponse        `json:"trip"`
}

// ApplyForTrip handles POST /api/trips/:tripId/requests
func (h *RequestHandler) ApplyForTrip(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	trip, req, err := h.requestService.ApplyForTrip(c.Request.Context(), c.Param("tripId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, PassengerRequestResponse{
		Request: toTripRequestResponse(*req),
		Trip:    toTripResponse(trip),
	})
}

// ListTripRequests handles GET /api/trips/:tripId/requests
func (h *RequestHandler) ListTripRequests(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	requests, err := h.requestService.ListRequests(c.Request.Context(), c.Param("tripId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripRequestResponse, 0, len(requests))
	for _, r := range requests {
		response = append(response, toTripRequestResponse(r))
	}
	respondJSON(c, http.StatusOK, response)
}

// DecideRequest handles PUT /api/trips/:tripId/requests/:requestId
func (h *RequestHandler) DecideRequest(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req DecideRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "status must be accepted or rejected"})
		return
	}

	trip, err := h.requestService.DecideRequest(c.Request.Context(), service.DecideRequestRequest{
		TripID:    c.Param("tripId"),
		RequestID: c.Param("requestId"),
		DriverID:  userID,
		Decision:  parseDecision(req.Status),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ListMyRequests handles GET /api/users/requests
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	items, err := h.requestService.ListMyRequests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PassengerRequestResponse, 0, len(items))
	for _, item := range items {
		response = append(response, PassengerRequestResponse{
			Request: toTripRequestResponse(item.Request),
			Trip:    toTripResponse(item.Trip),
		})
	}
	respondJSON(c, http.StatusOK, response)
}

// parseDecision accepts both the request status and the verb.
func parseDecision(status string) domain.Decision {
	switch status {
	case "accepted", "accept":
		return domain.DecisionAccept
	case "rejected", "reject":
		return domain.DecisionReject
	default:
		return domain.Decision(status)
	}
}
