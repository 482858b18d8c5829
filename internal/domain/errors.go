package domain

import "errors"

// Errors returned by the pure trip transitions. The service layer re-exports
// them so handlers only need to know one package.
var (
	ErrOwnTrip            = errors.New("cannot request your own trip")
	ErrDuplicateRequest   = errors.New("you already requested this trip")
	ErrNoSeatsAvailable   = errors.New("no seats available")
	ErrTripClosed         = errors.New("trip is closed")
	ErrRequestNotFound    = errors.New("request not found")
	ErrInvalidDecision    = errors.New("action must be accept or reject")
	ErrInvalidSeats       = errors.New("seats must be at least 1")
	ErrSeatsBelowAccepted = errors.New("seats cannot be lower than the number of accepted passengers")
	ErrInvalidClock       = errors.New("time must be formatted as HH:MM")
	ErrInvalidDate        = errors.New("date must be formatted as YYYY-MM-DD")
)
