package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func newTrip(seats int) *Trip {
	return &Trip{
		ID:             "trip-1",
		DriverID:       "driver-1",
		Departure:      "Campus Nord",
		Arrival:        "Gare",
		Date:           time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Time:           "08:00",
		ArrivalTime:    "08:45",
		Seats:          seats,
		AvailableSeats: seats,
		Status:         TripStatusActive,
	}
}

func mustApply(t *testing.T, trip *Trip, reqID, passengerID string) {
	t.Helper()
	if _, err := trip.Apply(reqID, passengerID, testNow); err != nil {
		t.Fatalf("apply %s: %v", passengerID, err)
	}
}

func mustDecide(t *testing.T, trip *Trip, reqID string, d Decision) bool {
	t.Helper()
	changed, err := trip.Decide(reqID, d, testNow)
	if err != nil {
		t.Fatalf("decide %s %s: %v", reqID, d, err)
	}
	return changed
}

func assertSeatInvariant(t *testing.T, trip *Trip) {
	t.Helper()
	if trip.AvailableSeats < 0 {
		t.Fatalf("available seats negative: %d", trip.AvailableSeats)
	}
	if trip.AvailableSeats != trip.Seats-trip.AcceptedCount() {
		t.Fatalf("available seats %d != seats %d - accepted %d", trip.AvailableSeats, trip.Seats, trip.AcceptedCount())
	}
}

// ──────────────────────────────────────────────
// 1. APPLY
// ──────────────────────────────────────────────

func TestApply_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(trip *Trip)
		user    string
		wantErr error
	}{
		{name: "pending request created", setup: func(*Trip) {}, user: "p-1"},
		{name: "own trip", setup: func(*Trip) {}, user: "driver-1", wantErr: ErrOwnTrip},
		{
			name:    "duplicate request",
			setup:   func(tr *Trip) { tr.Requests = []TripRequest{{ID: "r-0", PassengerID: "p-1", Status: RequestStatusRejected}} },
			user:    "p-1",
			wantErr: ErrDuplicateRequest,
		},
		{name: "no seats", setup: func(tr *Trip) { tr.AvailableSeats = 0 }, user: "p-1", wantErr: ErrNoSeatsAvailable},
		{
			name: "closed trip",
			setup: func(tr *Trip) {
				tr.Status = TripStatusCompleted
				tr.CompletionReason = CompletionLapsed
			},
			user:    "p-1",
			wantErr: ErrTripClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := newTrip(2)
			tt.setup(trip)
			before := len(trip.Requests)

			req, err := trip.Apply("r-new", tt.user, testNow)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				if len(trip.Requests) != before {
					t.Errorf("request list changed on failure")
				}
				return
			}
			if req.Status != RequestStatusPending || req.PassengerID != tt.user {
				t.Errorf("unexpected request %+v", req)
			}
		})
	}
}

// ──────────────────────────────────────────────
// 2. DECIDE
// ──────────────────────────────────────────────

func TestDecide_AcceptLastSeatCompletesTrip(t *testing.T) {
	t.Parallel()

	trip := newTrip(1)
	mustApply(t, trip, "r-a", "p-a")
	mustDecide(t, trip, "r-a", DecisionAccept)

	if trip.AvailableSeats != 0 || trip.Status != TripStatusCompleted {
		t.Fatalf("expected full completed trip, got seats=%d status=%s", trip.AvailableSeats, trip.Status)
	}
	if trip.CompletionReason != CompletionSeatsExhausted {
		t.Errorf("expected seats_exhausted, got %q", trip.CompletionReason)
	}
	if trip.CompletedAt != nil {
		t.Errorf("seat exhaustion must not stamp completedAt")
	}
	assertSeatInvariant(t, trip)

	if _, err := trip.Apply("r-b", "p-b", testNow); !errors.Is(err, ErrNoSeatsAvailable) {
		t.Fatalf("expected ErrNoSeatsAvailable for second passenger, got %v", err)
	}
}

func TestDecide_AcceptIsIdempotent(t *testing.T) {
	t.Parallel()

	trip := newTrip(2)
	mustApply(t, trip, "r-a", "p-a")
	mustDecide(t, trip, "r-a", DecisionAccept)
	seats, status := trip.AvailableSeats, trip.Status

	if changed := mustDecide(t, trip, "r-a", DecisionAccept); changed {
		t.Error("second accept should report no change")
	}
	if trip.AvailableSeats != seats || trip.Status != status {
		t.Errorf("state changed on re-accept: seats=%d status=%s", trip.AvailableSeats, trip.Status)
	}
}

func TestDecide_RejectAfterAcceptReopensFullTrip(t *testing.T) {
	t.Parallel()

	trip := newTrip(1)
	mustApply(t, trip, "r-a", "p-a")
	mustDecide(t, trip, "r-a", DecisionAccept)
	mustDecide(t, trip, "r-a", DecisionReject)

	if trip.Status != TripStatusActive || trip.CompletionReason != CompletionNone {
		t.Fatalf("expected reopened trip, got status=%s reason=%q", trip.Status, trip.CompletionReason)
	}
	if trip.AvailableSeats != 1 {
		t.Errorf("expected 1 seat restored, got %d", trip.AvailableSeats)
	}
	assertSeatInvariant(t, trip)
}

func TestDecide_ClosedTripRefusesChanges(t *testing.T) {
	t.Parallel()

	trip := newTrip(2)
	mustApply(t, trip, "r-a", "p-a")
	mustApply(t, trip, "r-b", "p-b")
	mustDecide(t, trip, "r-a", DecisionAccept)
	trip.Close(testNow)

	if _, err := trip.Decide("r-a", DecisionReject, testNow); !errors.Is(err, ErrTripClosed) {
		t.Fatalf("expected ErrTripClosed on reject, got %v", err)
	}
	if _, err := trip.Decide("r-b", DecisionAccept, testNow); !errors.Is(err, ErrTripClosed) {
		t.Fatalf("expected ErrTripClosed on accept, got %v", err)
	}
	if changed := mustDecide(t, trip, "r-a", DecisionAccept); changed {
		t.Error("re-accept on closed trip should be a no-op")
	}
}

func TestDecide_Errors(t *testing.T) {
	t.Parallel()

	trip := newTrip(1)
	mustApply(t, trip, "r-a", "p-a")
	mustApply(t, trip, "r-b", "p-b")
	mustDecide(t, trip, "r-a", DecisionAccept)

	if _, err := trip.Decide("missing", DecisionAccept, testNow); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
	if _, err := trip.Decide("r-b", DecisionAccept, testNow); !errors.Is(err, ErrNoSeatsAvailable) {
		t.Errorf("expected ErrNoSeatsAvailable, got %v", err)
	}
	if _, err := trip.Decide("r-b", Decision("maybe"), testNow); !errors.Is(err, ErrInvalidDecision) {
		t.Errorf("expected ErrInvalidDecision, got %v", err)
	}
}

func TestDecide_SeatInvariantOverSequence(t *testing.T) {
	t.Parallel()

	trip := newTrip(3)
	for _, p := range []string{"a", "b", "c", "d"} {
		mustApply(t, trip, "r-"+p, "p-"+p)
	}

	steps := []struct {
		req string
		d   Decision
	}{
		{"r-a", DecisionAccept},
		{"r-b", DecisionAccept},
		{"r-b", DecisionReject},
		{"r-c", DecisionAccept},
		{"r-d", DecisionAccept},
		{"r-a", DecisionReject},
		{"r-b", DecisionReject},
	}
	for _, s := range steps {
		if _, err := trip.Decide(s.req, s.d, testNow); err != nil {
			t.Fatalf("%s %s: %v", s.d, s.req, err)
		}
		assertSeatInvariant(t, trip)
		if (trip.AvailableSeats == 0) != (trip.Status == TripStatusCompleted) {
			t.Fatalf("status %s inconsistent with %d seats", trip.Status, trip.AvailableSeats)
		}
	}
}

// ──────────────────────────────────────────────
// 3. PATCH
// ──────────────────────────────────────────────

func TestApplyPatch_Seats(t *testing.T) {
	t.Parallel()

	trip := newTrip(2)
	mustApply(t, trip, "r-a", "p-a")
	mustDecide(t, trip, "r-a", DecisionAccept)

	one := 1
	if err := trip.ApplyPatch(TripPatch{Seats: &one}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != TripStatusCompleted || trip.CompletionReason != CompletionSeatsExhausted {
		t.Fatalf("shrinking to accepted count should fill the trip, got %s/%q", trip.Status, trip.CompletionReason)
	}

	three := 3
	if err := trip.ApplyPatch(TripPatch{Seats: &three}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != TripStatusActive || trip.AvailableSeats != 2 {
		t.Fatalf("growing seats should reopen, got %s with %d seats", trip.Status, trip.AvailableSeats)
	}

	zero := 0
	if err := trip.ApplyPatch(TripPatch{Seats: &zero}); !errors.Is(err, ErrInvalidSeats) {
		t.Errorf("expected ErrInvalidSeats, got %v", err)
	}
	assertSeatInvariant(t, trip)
}

func TestApplyPatch_RejectsBelowAcceptedAndBadClock(t *testing.T) {
	t.Parallel()

	trip := newTrip(3)
	mustApply(t, trip, "r-a", "p-a")
	mustApply(t, trip, "r-b", "p-b")
	mustDecide(t, trip, "r-a", DecisionAccept)
	mustDecide(t, trip, "r-b", DecisionAccept)

	one := 1
	if err := trip.ApplyPatch(TripPatch{Seats: &one}); !errors.Is(err, ErrSeatsBelowAccepted) {
		t.Errorf("expected ErrSeatsBelowAccepted, got %v", err)
	}

	bad := "8h30"
	dep := "Somewhere"
	if err := trip.ApplyPatch(TripPatch{Time: &bad, Departure: &dep}); !errors.Is(err, ErrInvalidClock) {
		t.Errorf("expected ErrInvalidClock, got %v", err)
	}
	if trip.Departure == dep {
		t.Error("failed patch must not be partially applied")
	}
}

func TestIsElectric(t *testing.T) {
	t.Parallel()

	for vehicle, want := range map[string]bool{
		"Zoe Électrique":  true,
		"Tesla electric":  true,
		"voiture ELECTRIQUE": true,
		"Clio diesel":     false,
		"":                false,
	} {
		trip := &Trip{Vehicle: vehicle}
		if got := trip.IsElectric(); got != want {
			t.Errorf("IsElectric(%q) = %v, want %v", vehicle, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-03-12", "2026-03-12T17:30:00+01:00"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseDate("12/03/2026"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}
