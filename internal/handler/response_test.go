package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"carpool/internal/repository"
	"carpool/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{service.ErrRequestNotFound, http.StatusNotFound},
		{errUnauthorized, http.StatusUnauthorized},
		{service.ErrNotTripOwner, http.StatusForbidden},
		{service.ErrNotAcceptedPassenger, http.StatusForbidden},
		{service.ErrMissingFields, http.StatusBadRequest},
		{service.ErrInvalidRating, http.StatusBadRequest},
		{service.ErrOwnTrip, http.StatusBadRequest},
		{service.ErrSelfRating, http.StatusBadRequest},
		{service.ErrDuplicateRequest, http.StatusBadRequest},
		{service.ErrNoSeatsAvailable, http.StatusBadRequest},
		{service.ErrAlreadyConfirmed, http.StatusBadRequest},
		{service.ErrAlreadyRated, http.StatusBadRequest},
		{service.ErrTripClosed, http.StatusBadRequest},
		{service.ErrConcurrentUpdate, http.StatusConflict},
		{fmt.Errorf("load trip: %w", repository.ErrNotFound), http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapErrorToHTTPStatus(tt.err); got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, got)
		}
	}
}

func TestParseDecision(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"accepted": "accept",
		"accept":   "accept",
		"rejected": "reject",
		"reject":   "reject",
	}
	for in, want := range tests {
		if got := string(parseDecision(in)); got != want {
			t.Errorf("parseDecision(%q) = %q, want %q", in, got, want)
		}
	}
}
