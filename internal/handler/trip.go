package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// CreateTripRequest is the HTTP request body for offering a trip.
type CreateTripRequest struct {
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	ArrivalTime string `json:"arrival_time"`
	Distance    string `json:"distance"`
	Duration    string `json:"duration"`
	Vehicle     string `json:"vehicle,omitempty"`
	Seats       int    `json:"seats"`
}

// UpdateTripRequest is the HTTP request body for editing a trip. Absent
// fields are left unchanged.
type UpdateTripRequest struct {
	Departure   *string `json:"departure"`
	Arrival     *string `json:"arrival"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	ArrivalTime *string `json:"arrival_time"`
	Distance    *string `json:"distance"`
	Duration    *string `json:"duration"`
	Vehicle     *string `json:"vehicle"`
	Seats       *int    `json:"seats"`
}

// TripRequestResponse is a passenger request in responses.
type TripRequestResponse struct {
	ID                           string `json:"id"`
	PassengerID                  string `json:"passenger_id"`
	Status                       string `json:"status"`
	CreatedAt                    string `json:"created_at"`
	DecidedAt                    string `json:"decided_at,omitempty"`
	IsPickedUp                   bool   `json:"is_picked_up"`
	PickedUpAt                   string `json:"picked_up_at,omitempty"`
	PickupConfirmedByPassenger   bool   `json:"pickup_confirmed_by_passenger"`
	PickupConfirmedByPassengerAt string `json:"pickup_confirmed_by_passenger_at,omitempty"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID               string                `json:"id"`
	DriverID         string                `json:"driver_id"`
	Departure        string                `json:"departure"`
	Arrival          string                `json:"arrival"`
	Date             string                `json:"date"`
	Time             string                `json:"time"`
	ArrivalTime      string                `json:"arrival_time"`
	Distance         string                `json:"distance"`
	Duration         string                `json:"duration"`
	Vehicle          string                `json:"vehicle"`
	IsElectric       bool                  `json:"is_electric"`
	Seats            int                   `json:"seats"`
	AvailableSeats   int                   `json:"available_seats"`
	Status           string                `json:"status"`
	CompletionReason string                `json:"completion_reason,omitempty"`
	Requests         []TripRequestResponse `json:"requests"`
	CreatedAt        string                `json:"created_at"`
	UpdatedAt        string                `json:"updated_at"`
	CompletedAt      string                `json:"completed_at,omitempty"`
}

// MyTripResponse is a trip as seen by the caller.
type MyTripResponse struct {
	TripResponse
	Role        string               `json:"role"`
	NeedsRating bool                 `json:"needs_rating"`
	MyRequest   *TripRequestResponse `json:"my_request,omitempty"`
}

// CreateTrip handles POST /api/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), service.CreateTripRequest{
		DriverID:    userID,
		Departure:   req.Departure,
		Arrival:     req.Arrival,
		Date:        req.Date,
		Time:        req.Time,
		ArrivalTime: req.ArrivalTime,
		Distance:    req.Distance,
		Duration:    req.Duration,
		Vehicle:     req.Vehicle,
		Seats:       req.Seats,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// ListTrips handles GET /api/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	trips, err := h.tripService.ListTrips(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, toTripResponse(trip))
	}
	respondJSON(c, http.StatusOK, response)
}

// SearchTrips handles GET /api/trips/search?departure=&arrival=&date=
func (h *TripHandler) SearchTrips(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	trips, err := h.tripService.SearchTrips(c.Request.Context(), service.SearchTripsRequest{
		Departure: c.Query("departure"),
		Arrival:   c.Query("arrival"),
		Date:      c.Query("date"),
		UserID:    userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, toTripResponse(trip))
	}
	respondJSON(c, http.StatusOK, response)
}

// MyTrips handles GET /api/trips/my-trips
func (h *TripHandler) MyTrips(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	views, err := h.tripService.MyTrips(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]MyTripResponse, 0, len(views))
	for _, v := range views {
		item := MyTripResponse{
			TripResponse: toTripResponse(v.Trip),
			Role:         string(v.Role),
			NeedsRating:  v.NeedsRating,
		}
		item.Status = string(v.Status)
		if v.MyRequest != nil {
			r := toTripRequestResponse(*v.MyRequest)
			item.MyRequest = &r
		}
		response = append(response, item)
	}
	respondJSON(c, http.StatusOK, response)
}

// GetTrip handles GET /api/trips/:tripId
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("tripId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// UpdateTrip handles PUT /api/trips/:tripId
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	patch := domain.TripPatch{
		Departure:   req.Departure,
		Arrival:     req.Arrival,
		Time:        req.Time,
		ArrivalTime: req.ArrivalTime,
		Distance:    req.Distance,
		Duration:    req.Duration,
		Vehicle:     req.Vehicle,
		Seats:       req.Seats,
	}
	if req.Date != nil {
		date, err := domain.ParseDate(*req.Date)
		if err != nil {
			respondError(c, err)
			return
		}
		patch.Date = &date
	}

	trip, err := h.tripService.UpdateTrip(c.Request.Context(), service.UpdateTripRequest{
		TripID:   c.Param("tripId"),
		DriverID: userID,
		Patch:    patch,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// DeleteTrip handles DELETE /api/trips/:tripId
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.tripService.DeleteTrip(c.Request.Context(), c.Param("tripId"), userID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "trip deleted"})
}

func toTripResponse(trip *domain.Trip) TripResponse {
	requests := make([]TripRequestResponse, 0, len(trip.Requests))
	for _, r := range trip.Requests {
		requests = append(requests, toTripRequestResponse(r))
	}

	return TripResponse{
		ID:               trip.ID,
		DriverID:         trip.DriverID,
		Departure:        trip.Departure,
		Arrival:          trip.Arrival,
		Date:             trip.Date.Format(domain.DateLayout),
		Time:             trip.Time,
		ArrivalTime:      trip.ArrivalTime,
		Distance:         trip.Distance,
		Duration:         trip.Duration,
		Vehicle:          trip.Vehicle,
		IsElectric:       trip.IsElectric(),
		Seats:            trip.Seats,
		AvailableSeats:   trip.AvailableSeats,
		Status:           string(trip.Status),
		CompletionReason: string(trip.CompletionReason),
		Requests:         requests,
		CreatedAt:        formatTime(trip.CreatedAt),
		UpdatedAt:        formatTime(trip.UpdatedAt),
		CompletedAt:      formatTimePtr(trip.CompletedAt),
	}
}

func toTripRequestResponse(r domain.TripRequest) TripRequestResponse {
	return TripRequestResponse{
		ID:                           r.ID,
		PassengerID:                  r.PassengerID,
		Status:                       string(r.Status),
		CreatedAt:                    formatTime(r.CreatedAt),
		DecidedAt:                    formatTimePtr(r.DecidedAt),
		IsPickedUp:                   r.IsPickedUp,
		PickedUpAt:                   formatTimePtr(r.PickedUpAt),
		PickupConfirmedByPassenger:   r.PickupConfirmedByPassenger,
		PickupConfirmedByPassengerAt: formatTimePtr(r.PickupConfirmedByPassengerAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
