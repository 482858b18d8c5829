package domain

import (
	"errors"
	"testing"
	"time"
)

func confirmation(userID string, role Role, ok bool) Confirmation {
	return Confirmation{TripID: "trip-1", UserID: userID, Role: role, IsConfirmed: ok}
}

func TestCanClose(t *testing.T) {
	t.Parallel()

	accepted := []string{"p-1", "p-2"}

	tests := []struct {
		name string
		cs   []Confirmation
		want bool
	}{
		{name: "nothing confirmed", want: false},
		{name: "driver only", cs: []Confirmation{confirmation("driver-1", RoleDriver, true)}, want: false},
		{
			name: "driver and one of two passengers",
			cs: []Confirmation{
				confirmation("driver-1", RoleDriver, true),
				confirmation("p-1", RolePassenger, true),
			},
			want: false,
		},
		{
			name: "everyone",
			cs: []Confirmation{
				confirmation("driver-1", RoleDriver, true),
				confirmation("p-1", RolePassenger, true),
				confirmation("p-2", RolePassenger, true),
			},
			want: true,
		},
		{
			name: "passengers only",
			cs: []Confirmation{
				confirmation("p-1", RolePassenger, true),
				confirmation("p-2", RolePassenger, true),
			},
			want: false,
		},
		{
			name: "negative confirmation does not count",
			cs: []Confirmation{
				confirmation("driver-1", RoleDriver, true),
				confirmation("p-1", RolePassenger, true),
				confirmation("p-2", RolePassenger, false),
			},
			want: false,
		},
		{
			name: "stranger confirmation does not replace an accepted passenger",
			cs: []Confirmation{
				confirmation("driver-1", RoleDriver, true),
				confirmation("p-1", RolePassenger, true),
				confirmation("p-9", RolePassenger, true),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanClose("driver-1", accepted, tt.cs); got != tt.want {
				t.Errorf("CanClose = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReevaluate_ClosesOnlyAfterLastPassenger(t *testing.T) {
	t.Parallel()

	trip := newTrip(3)
	mustApply(t, trip, "r-1", "p-1")
	mustApply(t, trip, "r-2", "p-2")
	mustDecide(t, trip, "r-1", DecisionAccept)
	mustDecide(t, trip, "r-2", DecisionAccept)

	var ledger []Confirmation
	steps := []Confirmation{
		confirmation("driver-1", RoleDriver, true),
		confirmation("p-1", RolePassenger, true),
	}
	for _, c := range steps {
		ledger = append(ledger, c)
		if trip.Reevaluate(ledger, testNow) {
			t.Fatalf("trip closed early after %s confirmed", c.UserID)
		}
		if trip.Status != TripStatusActive {
			t.Fatalf("expected active, got %s", trip.Status)
		}
	}

	ledger = append(ledger, confirmation("p-2", RolePassenger, true))
	if !trip.Reevaluate(ledger, testNow) {
		t.Fatal("expected trip to close after the last passenger confirmed")
	}
	if trip.Status != TripStatusCompleted || trip.CompletionReason != CompletionConfirmed {
		t.Fatalf("expected completed/confirmed, got %s/%q", trip.Status, trip.CompletionReason)
	}
	if trip.CompletedAt == nil || !trip.CompletedAt.Equal(testNow) {
		t.Errorf("expected completedAt stamped at %v, got %v", testNow, trip.CompletedAt)
	}
	if trip.Reevaluate(ledger, testNow.Add(time.Hour)) {
		t.Error("closing twice should report no change")
	}
}

func TestClose_KeepsLapseTimestamp(t *testing.T) {
	t.Parallel()

	trip := newTrip(1)
	lapsedAt := testNow.Add(-time.Hour)
	trip.Status = TripStatusCompleted
	trip.CompletionReason = CompletionLapsed
	trip.CompletedAt = &lapsedAt

	if !trip.Close(testNow) {
		t.Fatal("expected reason upgrade to confirmed")
	}
	if !trip.CompletedAt.Equal(lapsedAt) {
		t.Errorf("completedAt overwritten: %v", trip.CompletedAt)
	}
}

func TestArrivalAt_RollsOverMidnight(t *testing.T) {
	t.Parallel()

	trip := newTrip(1)
	trip.Time = "23:30"
	trip.ArrivalTime = "00:15"

	at, ok := trip.ArrivalAt(time.UTC)
	if !ok {
		t.Fatal("expected arrival to parse")
	}
	want := time.Date(2026, 3, 13, 0, 15, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("ArrivalAt = %v, want %v", at, want)
	}
}

func TestLapse(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// Trip arrives 2026-03-12 08:45 Paris time, i.e. 07:45 UTC.
	before := time.Date(2026, 3, 12, 7, 44, 0, 0, time.UTC)
	after := time.Date(2026, 3, 12, 7, 46, 0, 0, time.UTC)

	trip := newTrip(2)
	if EffectiveStatus(trip, before, paris) != TripStatusActive {
		t.Error("trip should still be active before arrival")
	}
	if trip.Lapse(before, paris) {
		t.Error("lapse before arrival")
	}

	if EffectiveStatus(trip, after, paris) != TripStatusCompleted {
		t.Error("trip should read as completed after arrival")
	}
	if !trip.Lapse(after, paris) {
		t.Fatal("expected lapse after arrival")
	}
	if trip.CompletionReason != CompletionLapsed || trip.CompletedAt == nil {
		t.Errorf("unexpected lapse state: %q %v", trip.CompletionReason, trip.CompletedAt)
	}
	if !trip.IsClosed() {
		t.Error("lapsed trip should be closed")
	}
	if trip.Lapse(after.Add(time.Hour), paris) {
		t.Error("second lapse should be a no-op")
	}
}

func TestLapse_ClosesFullTrips(t *testing.T) {
	t.Parallel()

	trip := newTrip(1)
	mustApply(t, trip, "r-1", "p-1")
	mustDecide(t, trip, "r-1", DecisionAccept)

	if trip.Lapse(testNow, time.UTC) {
		t.Error("full trip lapsed before arrival")
	}
	if trip.IsClosed() {
		t.Error("a trip that is only full must not be closed")
	}

	after := testNow.AddDate(0, 1, 0)
	if !trip.Lapse(after, time.UTC) {
		t.Fatal("expected a full trip to lapse after arrival")
	}
	if trip.CompletionReason != CompletionLapsed {
		t.Errorf("expected reason lapsed, got %q", trip.CompletionReason)
	}
	if trip.CompletedAt == nil || !trip.CompletedAt.Equal(after) {
		t.Errorf("expected completedAt %v, got %v", after, trip.CompletedAt)
	}
	if !trip.IsClosed() {
		t.Error("lapsed full trip should be closed")
	}
	if _, err := trip.Decide("r-1", DecisionReject, after); !errors.Is(err, ErrTripClosed) {
		t.Errorf("expected ErrTripClosed on reject, got %v", err)
	}
}

func TestMarkPickup(t *testing.T) {
	t.Parallel()

	trip := newTrip(3)
	mustApply(t, trip, "r-1", "p-1")
	mustApply(t, trip, "r-2", "p-2")
	mustApply(t, trip, "r-3", "p-3")
	mustDecide(t, trip, "r-1", DecisionAccept)
	mustDecide(t, trip, "r-2", DecisionAccept)

	if !trip.MarkPickup("driver-1", RoleDriver, testNow) {
		t.Fatal("driver confirmation should mark pickups")
	}
	if !trip.FindRequest("r-1").IsPickedUp || !trip.FindRequest("r-2").IsPickedUp {
		t.Error("accepted passengers should be picked up")
	}
	if trip.FindRequest("r-3").IsPickedUp {
		t.Error("pending passenger must not be marked")
	}

	if !trip.MarkPickup("p-2", RolePassenger, testNow) {
		t.Fatal("passenger confirmation should mark their request")
	}
	if trip.FindRequest("r-1").PickupConfirmedByPassenger {
		t.Error("another passenger's request was marked")
	}
	if !trip.FindRequest("r-2").PickupConfirmedByPassenger {
		t.Error("passenger's own request not marked")
	}
}

func TestNeedsRating(t *testing.T) {
	t.Parallel()

	trip := newTrip(2)
	mustApply(t, trip, "r-1", "p-1")
	mustDecide(t, trip, "r-1", DecisionAccept)

	confirmed := []Confirmation{confirmation("p-1", RolePassenger, true)}
	rated := []Rating{{TripID: "trip-1", FromUserID: "p-1", Role: RolePassenger, Value: 4}}

	tests := []struct {
		name   string
		status TripStatus
		user   string
		cs     []Confirmation
		rs     []Rating
		want   bool
	}{
		{name: "active trip", status: TripStatusActive, user: "p-1", want: false},
		{name: "neither step done", status: TripStatusCompleted, user: "p-1", want: true},
		{name: "confirmed not rated", status: TripStatusCompleted, user: "p-1", cs: confirmed, want: true},
		{name: "both done", status: TripStatusCompleted, user: "p-1", cs: confirmed, rs: rated, want: false},
		{name: "driver owes both", status: TripStatusCompleted, user: "driver-1", cs: confirmed, rs: rated, want: true},
		{name: "outsider", status: TripStatusCompleted, user: "p-9", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsRating(trip, tt.status, tt.user, tt.cs, tt.rs); got != tt.want {
				t.Errorf("NeedsRating = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAverage(t *testing.T) {
	t.Parallel()

	if Average(nil) != 0 {
		t.Error("empty average should be 0")
	}
	got := Average([]Rating{{Value: 5}, {Value: 4}, {Value: 4}})
	if got < 4.333 || got > 4.334 {
		t.Errorf("Average = %v, want 4.333...", got)
	}
}
