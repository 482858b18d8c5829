package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/middleware"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// errUnauthorized is returned when a protected handler runs without a
// verified caller.
var errUnauthorized = errors.New("authentication required")

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// callerID returns the authenticated user's ID or responds 401.
func callerID(c *gin.Context) (string, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.ID == "" {
		respondError(c, errUnauthorized)
		return "", false
	}
	return p.ID, true
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRequestNotFound):
		return http.StatusNotFound

	// Authentication
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized

	// Forbidden errors
	case errors.Is(err, service.ErrNotTripOwner),
		errors.Is(err, service.ErrNotAcceptedPassenger):
		return http.StatusForbidden

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidSeats),
		errors.Is(err, service.ErrSeatsBelowAccepted),
		errors.Is(err, service.ErrInvalidClock),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrSelfRating),
		errors.Is(err, service.ErrTargetNotPassenger),
		errors.Is(err, service.ErrOwnTrip):
		return http.StatusBadRequest

	// Business rule conflicts are reported as Bad Request
	case errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrNoSeatsAvailable),
		errors.Is(err, service.ErrTripClosed),
		errors.Is(err, service.ErrAlreadyConfirmed),
		errors.Is(err, service.ErrAlreadyRated),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusBadRequest

	// Lost every optimistic write attempt
	case errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
