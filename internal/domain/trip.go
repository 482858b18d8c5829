package domain

import (
	"strings"
	"time"
)

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// CompletionReason records why a trip left the active state.
type CompletionReason string

const (
	CompletionNone           CompletionReason = ""
	CompletionSeatsExhausted CompletionReason = "seats_exhausted"
	CompletionConfirmed      CompletionReason = "confirmed"
	CompletionLapsed         CompletionReason = "lapsed"
)

// RequestStatus represents the state of a passenger request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Decision is the driver's verdict on a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ClockLayout is the layout of Trip.Time and Trip.ArrivalTime.
const ClockLayout = "15:04"

// DateLayout is the layout of Trip.Date on the wire.
const DateLayout = "2006-01-02"

// Trip is a driver's ride offer with a fixed seat capacity.
type Trip struct {
	ID          string
	DriverID    string
	Departure   string
	Arrival     string
	Date        time.Time // calendar day, midnight UTC
	Time        string    // departure clock time, HH:MM
	ArrivalTime string    // HH:MM, may roll over to the next day
	Distance    string
	Duration    string
	Vehicle     string

	Seats            int
	AvailableSeats   int
	Status           TripStatus
	CompletionReason CompletionReason

	Requests []TripRequest

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// Version is the optimistic concurrency token; every Save bumps it.
	Version int64
}

// TripRequest is one passenger's application to join a trip.
type TripRequest struct {
	ID          string
	PassengerID string
	Status      RequestStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time

	IsPickedUp                   bool
	PickedUpAt                   *time.Time
	PickupConfirmedByPassenger   bool
	PickupConfirmedByPassengerAt *time.Time
}

// TripPatch lists the fields a driver may change. Nil fields are left alone.
type TripPatch struct {
	Departure   *string
	Arrival     *string
	Date        *time.Time
	Time        *string
	ArrivalTime *string
	Distance    *string
	Duration    *string
	Vehicle     *string
	Seats       *int
}

// IsElectric reports whether the vehicle descriptor names an electric car.
func (t *Trip) IsElectric() bool {
	v := strings.ToLower(t.Vehicle)
	return strings.Contains(v, "electrique") || strings.Contains(v, "électrique") || strings.Contains(v, "electric")
}

// IsClosed reports whether the trip was completed by confirmation or lapse.
// Such trips no longer accept decisions or edits. A trip that is only full
// is not closed.
func (t *Trip) IsClosed() bool {
	return t.Status == TripStatusCompleted &&
		(t.CompletionReason == CompletionConfirmed || t.CompletionReason == CompletionLapsed)
}

// AcceptedCount returns the number of accepted requests.
func (t *Trip) AcceptedCount() int {
	n := 0
	for _, r := range t.Requests {
		if r.Status == RequestStatusAccepted {
			n++
		}
	}
	return n
}

// AcceptedPassengerIDs returns the passengers whose requests were accepted.
func (t *Trip) AcceptedPassengerIDs() []string {
	ids := make([]string, 0, len(t.Requests))
	for _, r := range t.Requests {
		if r.Status == RequestStatusAccepted {
			ids = append(ids, r.PassengerID)
		}
	}
	return ids
}

// IsAcceptedPassenger reports whether userID holds an accepted request.
func (t *Trip) IsAcceptedPassenger(userID string) bool {
	r := t.RequestByPassenger(userID)
	return r != nil && r.Status == RequestStatusAccepted
}

// FindRequest returns the request with the given id, or nil.
func (t *Trip) FindRequest(requestID string) *TripRequest {
	for i := range t.Requests {
		if t.Requests[i].ID == requestID {
			return &t.Requests[i]
		}
	}
	return nil
}

// RequestByPassenger returns the passenger's request, or nil.
func (t *Trip) RequestByPassenger(passengerID string) *TripRequest {
	for i := range t.Requests {
		if t.Requests[i].PassengerID == passengerID {
			return &t.Requests[i]
		}
	}
	return nil
}

// Apply appends a pending request for passengerID.
func (t *Trip) Apply(requestID, passengerID string, now time.Time) (*TripRequest, error) {
	if passengerID == t.DriverID {
		return nil, ErrOwnTrip
	}
	if t.RequestByPassenger(passengerID) != nil {
		return nil, ErrDuplicateRequest
	}
	if t.IsClosed() {
		return nil, ErrTripClosed
	}
	if t.AvailableSeats <= 0 {
		return nil, ErrNoSeatsAvailable
	}

	t.Requests = append(t.Requests, TripRequest{
		ID:          requestID,
		PassengerID: passengerID,
		Status:      RequestStatusPending,
		CreatedAt:   now,
	})
	return &t.Requests[len(t.Requests)-1], nil
}

// Decide applies an accept or reject decision to a request. It reports
// whether the trip changed; an accept of an accepted request and a reject
// of a rejected one are no-ops.
func (t *Trip) Decide(requestID string, decision Decision, now time.Time) (bool, error) {
	req := t.FindRequest(requestID)
	if req == nil {
		return false, ErrRequestNotFound
	}

	switch decision {
	case DecisionAccept:
		if req.Status == RequestStatusAccepted {
			return false, nil
		}
		if t.IsClosed() {
			return false, ErrTripClosed
		}
		if t.AvailableSeats <= 0 {
			return false, ErrNoSeatsAvailable
		}
		req.Status = RequestStatusAccepted
		req.DecidedAt = &now
		t.AvailableSeats--
		if t.AvailableSeats == 0 && t.Status == TripStatusActive {
			t.Status = TripStatusCompleted
			t.CompletionReason = CompletionSeatsExhausted
		}
		return true, nil

	case DecisionReject:
		if req.Status == RequestStatusRejected {
			return false, nil
		}
		if t.IsClosed() {
			return false, ErrTripClosed
		}
		wasAccepted := req.Status == RequestStatusAccepted
		req.Status = RequestStatusRejected
		req.DecidedAt = &now
		if wasAccepted {
			t.AvailableSeats++
			if t.CompletionReason == CompletionSeatsExhausted {
				t.reopen()
			}
		}
		return true, nil

	default:
		return false, ErrInvalidDecision
	}
}

// ApplyPatch updates the editable fields and recomputes seat availability.
func (t *Trip) ApplyPatch(p TripPatch) error {
	if t.IsClosed() {
		return ErrTripClosed
	}

	if p.Time != nil {
		if _, err := time.Parse(ClockLayout, *p.Time); err != nil {
			return ErrInvalidClock
		}
	}
	if p.ArrivalTime != nil {
		if _, err := time.Parse(ClockLayout, *p.ArrivalTime); err != nil {
			return ErrInvalidClock
		}
	}
	if p.Seats != nil {
		if *p.Seats < 1 {
			return ErrInvalidSeats
		}
		if *p.Seats < t.AcceptedCount() {
			return ErrSeatsBelowAccepted
		}
	}

	if p.Departure != nil {
		t.Departure = *p.Departure
	}
	if p.Arrival != nil {
		t.Arrival = *p.Arrival
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.ArrivalTime != nil {
		t.ArrivalTime = *p.ArrivalTime
	}
	if p.Distance != nil {
		t.Distance = *p.Distance
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Vehicle != nil {
		t.Vehicle = *p.Vehicle
	}
	if p.Seats != nil {
		t.Seats = *p.Seats
		t.AvailableSeats = t.Seats - t.AcceptedCount()
		switch {
		case t.AvailableSeats == 0 && t.Status == TripStatusActive:
			t.Status = TripStatusCompleted
			t.CompletionReason = CompletionSeatsExhausted
		case t.AvailableSeats > 0 && t.CompletionReason == CompletionSeatsExhausted:
			t.reopen()
		}
	}
	return nil
}

func (t *Trip) reopen() {
	t.Status = TripStatusActive
	t.CompletionReason = CompletionNone
	t.CompletedAt = nil
}

// DayWindow returns the inclusive bounds of the calendar day containing d.
func DayWindow(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

// ParseDate accepts either YYYY-MM-DD or an RFC 3339 timestamp and returns
// the calendar day at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}
