package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// RatingHandler handles ratings between trip participants.
type RatingHandler struct {
	ratingService *service.RatingService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratingService *service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// RateRequest is the HTTP request body for a rating. PassengerID is only
// read when a driver rates a passenger.
type RateRequest struct {
	PassengerID string `json:"passenger_id"`
	Rating      int    `json:"rating"`
	IsConfirmed bool   `json:"is_confirmed"`
}

// PersonNameResponse is a name snapshot.
type PersonNameResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RatingResponse is a stored rating.
type RatingResponse struct {
	ID           string             `json:"id"`
	TripID       string             `json:"trip_id"`
	FromUserID   string             `json:"from_user_id"`
	FromUserName PersonNameResponse `json:"from_user_name"`
	ToUserID     string             `json:"to_user_id"`
	ToUserName   PersonNameResponse `json:"to_user_name"`
	Rating       int                `json:"rating"`
	Role         string             `json:"role"`
	CreatedAt    string             `json:"created_at"`
}

// RateResponse is the HTTP response for a rating.
type RateResponse struct {
	Message       string         `json:"message"`
	Rating        RatingResponse `json:"rating"`
	AverageRating float64        `json:"average_rating"`
	TripCompleted bool           `json:"trip_completed"`
}

// RoleStatsResponse summarizes ratings received in one role.
type RoleStatsResponse struct {
	Count          int     `json:"count"`
	Average        float64 `json:"average"`
	ConfirmedTrips int     `json:"confirmed_trips"`
}

// UserRatingsResponse is the HTTP response for a user's ratings.
type UserRatingsResponse struct {
	UserID      string            `json:"user_id"`
	Ratings     []RatingResponse  `json:"ratings"`
	AsDriver    RoleStatsResponse `json:"as_driver"`
	AsPassenger RoleStatsResponse `json:"as_passenger"`
}

// RateDriver handles POST /api/trips/:tripId/rate-driver
func (h *RatingHandler) RateDriver(c *gin.Context) {
	h.rate(c, domain.RolePassenger)
}

// RatePassenger handles POST /api/trips/:tripId/rate-passenger
func (h *RatingHandler) RatePassenger(c *gin.Context) {
	h.rate(c, domain.RoleDriver)
}

// rate records a rating given by a rater acting in role.
func (h *RatingHandler) rate(c *gin.Context, role domain.Role) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.ratingService.Rate(c.Request.Context(), service.RateRequest{
		TripID:       c.Param("tripId"),
		RaterID:      userID,
		Role:         role,
		TargetUserID: req.PassengerID,
		Value:        req.Rating,
		IsConfirmed:  req.IsConfirmed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RateResponse{
		Message:       "rating recorded",
		Rating:        toRatingResponse(*result.Rating),
		AverageRating: result.Average,
		TripCompleted: result.TripCompleted,
	})
}

// UserRatings handles GET /api/users/:userId/ratings
func (h *RatingHandler) UserRatings(c *gin.Context) {
	summary, err := h.ratingService.UserRatings(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	ratings := make([]RatingResponse, 0, len(summary.Ratings))
	for _, r := range summary.Ratings {
		ratings = append(ratings, toRatingResponse(r))
	}

	respondJSON(c, http.StatusOK, UserRatingsResponse{
		UserID:      summary.UserID,
		Ratings:     ratings,
		AsDriver:    RoleStatsResponse(summary.AsDriver),
		AsPassenger: RoleStatsResponse(summary.AsPassenger),
	})
}

func toRatingResponse(r domain.Rating) RatingResponse {
	return RatingResponse{
		ID:           r.ID,
		TripID:       r.TripID,
		FromUserID:   r.FromUserID,
		FromUserName: PersonNameResponse(r.FromUserName),
		ToUserID:     r.ToUserID,
		ToUserName:   PersonNameResponse(r.ToUserName),
		Rating:       r.Value,
		Role:         string(r.Role),
		CreatedAt:    formatTime(r.CreatedAt),
	}
}
