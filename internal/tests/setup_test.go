package tests

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// testNow is the fixed clock for all scenarios: two days before the
// default trip date.
var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

// tripDay is the default trip date.
var tripDay = time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

// harness wires the real services over the mocks.
type harness struct {
	trips         *MockTripRepository
	confirmations *MockConfirmationRepository
	ratings       *MockRatingRepository
	users         *MockUserRepository
	cache         *MockRatingCache
	publisher     *MockPublisher
	logs          *logtest.Hook

	now time.Time

	lifecycle           *service.Lifecycle
	tripService         *service.TripService
	requestService      *service.RequestService
	confirmationService *service.ConfirmationService
	ratingService       *service.RatingService
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithAttempts(t, 5)
}

func newHarnessWithAttempts(t *testing.T, attempts int) *harness {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		trips:         NewMockTripRepository(),
		confirmations: NewMockConfirmationRepository(),
		ratings:       NewMockRatingRepository(),
		users:         NewMockUserRepository(),
		cache:         NewMockRatingCache(),
		publisher:     NewMockPublisher(),
		logs:          hook,
		now:           testNow,
	}

	h.lifecycle = service.NewLifecycle(h.trips, h.confirmations, service.LifecycleConfig{
		Location:    time.UTC,
		MaxAttempts: attempts,
		Now:         func() time.Time { return h.now },
	}, logger)

	notifications := service.NewNotificationService(h.publisher, logger)
	h.tripService = service.NewTripService(h.lifecycle, h.trips, h.confirmations, h.ratings, notifications, logger)
	h.requestService = service.NewRequestService(h.lifecycle, h.trips, notifications, logger)
	h.confirmationService = service.NewConfirmationService(h.lifecycle, h.confirmations, h.cache, notifications, logger)
	h.ratingService = service.NewRatingService(h.lifecycle, h.ratings, h.confirmations, h.users, h.cache, notifications, logger)

	return h
}

// newTrip returns an active trip on tripDay, 08:00 to 08:45.
func newTrip(id, driverID string, seats int) *domain.Trip {
	return &domain.Trip{
		ID:             id,
		DriverID:       driverID,
		Departure:      "Campus Nord",
		Arrival:        "Gare Centrale",
		Date:           tripDay,
		Time:           "08:00",
		ArrivalTime:    "08:45",
		Distance:       "12 km",
		Duration:       "45 min",
		Vehicle:        "Renault Zoe",
		Seats:          seats,
		AvailableSeats: seats,
		Status:         domain.TripStatusActive,
		Requests:       []domain.TripRequest{},
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

// seedTrip stores a trip whose passengers are already accepted. Requests
// are named "req-<passenger>". One seat is left free.
func (h *harness) seedTrip(id, driverID string, passengers ...string) *domain.Trip {
	trip := newTrip(id, driverID, len(passengers)+1)
	for _, p := range passengers {
		trip.Requests = append(trip.Requests, domain.TripRequest{
			ID:          "req-" + p,
			PassengerID: p,
			Status:      domain.RequestStatusAccepted,
			CreatedAt:   testNow,
		})
	}
	trip.AvailableSeats = 1
	h.trips.AddTrip(trip)
	return trip
}

// seedPending adds a pending request to a stored trip.
func (h *harness) seedPending(t *testing.T, tripID, passengerID string) {
	t.Helper()
	trip := h.trips.GetTrip(tripID)
	if trip == nil {
		t.Fatalf("trip %s not seeded", tripID)
	}
	trip.Requests = append(trip.Requests, domain.TripRequest{
		ID:          "req-" + passengerID,
		PassengerID: passengerID,
		Status:      domain.RequestStatusPending,
		CreatedAt:   testNow,
	})
	h.trips.AddTrip(trip)
}

// hasLog reports whether a log entry at level carries msg.
func (h *harness) hasLog(level logrus.Level, msg string) bool {
	for _, e := range h.logs.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
