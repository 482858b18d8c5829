package service

import (
	"errors"

	"carpool/internal/domain"
)

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidUserID is returned when the caller or target user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrMissingFields is returned when a required trip field is empty.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidRole is returned when a role is neither driver nor passenger.
	ErrInvalidRole = errors.New("role must be driver or passenger")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be an integer between 1 and 5")

	// ErrNotTripOwner is returned when a driver-only action is attempted by someone else.
	ErrNotTripOwner = errors.New("only the trip driver can perform this action")

	// ErrNotAcceptedPassenger is returned when a passenger-only action is attempted by
	// someone without an accepted request.
	ErrNotAcceptedPassenger = errors.New("you are not an accepted passenger of this trip")

	// ErrAlreadyConfirmed is returned on a second confirmation for (trip, user, role).
	ErrAlreadyConfirmed = errors.New("you have already confirmed this trip")

	// ErrAlreadyRated is returned on a second rating for (trip, rater, role).
	ErrAlreadyRated = errors.New("you have already rated this trip")

	// ErrSelfRating is returned when a user rates themselves.
	ErrSelfRating = errors.New("you cannot rate yourself")

	// ErrTargetNotPassenger is returned when a driver rates someone who did not ride.
	ErrTargetNotPassenger = errors.New("rated user is not an accepted passenger of this trip")

	// ErrConcurrentUpdate is returned when a trip kept changing under every
	// attempt of a conditional write.
	ErrConcurrentUpdate = errors.New("trip was modified concurrently, please retry")
)

// Trip transition errors.
var (
	ErrOwnTrip            = domain.ErrOwnTrip
	ErrDuplicateRequest   = domain.ErrDuplicateRequest
	ErrNoSeatsAvailable   = domain.ErrNoSeatsAvailable
	ErrTripClosed         = domain.ErrTripClosed
	ErrRequestNotFound    = domain.ErrRequestNotFound
	ErrInvalidDecision    = domain.ErrInvalidDecision
	ErrInvalidSeats       = domain.ErrInvalidSeats
	ErrSeatsBelowAccepted = domain.ErrSeatsBelowAccepted
	ErrInvalidClock       = domain.ErrInvalidClock
	ErrInvalidDate        = domain.ErrInvalidDate
)
