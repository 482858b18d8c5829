package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/observability"
	"carpool/internal/repository"
)

// RequestService handles passenger requests embedded in trips.
type RequestService struct {
	lifecycle           *Lifecycle
	tripRepo            repository.TripRepository
	notificationService *NotificationService
	logger              logrus.FieldLogger
}

// NewRequestService creates a new RequestService.
func NewRequestService(
	lifecycle *Lifecycle,
	tripRepo repository.TripRepository,
	notificationService *NotificationService,
	logger logrus.FieldLogger,
) *RequestService {
	return &RequestService{
		lifecycle:           lifecycle,
		tripRepo:            tripRepo,
		notificationService: notificationService,
		logger:              logger,
	}
}

// ApplyForTrip appends a pending request for the passenger.
func (s *RequestService) ApplyForTrip(ctx context.Context, tripID, passengerID string) (*domain.Trip, *domain.TripRequest, error) {
	if passengerID == "" {
		return nil, nil, ErrInvalidUserID
	}

	var created domain.TripRequest
	trip, err := s.lifecycle.mutate(ctx, "apply", tripID, func(trip *domain.Trip, now time.Time) (bool, error) {
		req, err := trip.Apply(uuid.New().String(), passengerID, now)
		if err != nil {
			return false, err
		}
		created = *req
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	observability.TripRequests.Inc()

	s.logger.WithFields(logrus.Fields{
		"trip_id":      trip.ID,
		"request_id":   created.ID,
		"passenger_id": passengerID,
	}).Info("trip requested")

	_ = s.notificationService.NotifyTripRequested(ctx, trip, created)

	return trip, &created, nil
}

// DecideRequestRequest contains the parameters for a driver's decision.
type DecideRequestRequest struct {
	TripID    string
	RequestID string
	DriverID  string
	Decision  domain.Decision
}

// DecideRequest accepts or rejects a pending request. Repeating the current
// decision returns the trip unchanged.
func (s *RequestService) DecideRequest(ctx context.Context, req DecideRequestRequest) (*domain.Trip, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidUserID
	}

	if req.Decision != domain.DecisionAccept && req.Decision != domain.DecisionReject {
		return nil, ErrInvalidDecision
	}

	var changed bool
	trip, err := s.lifecycle.mutate(ctx, "decide", req.TripID, func(trip *domain.Trip, now time.Time) (bool, error) {
		if trip.DriverID != req.DriverID {
			return false, ErrNotTripOwner
		}
		var err error
		changed, err = trip.Decide(req.RequestID, req.Decision, now)
		return changed, err
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return trip, nil
	}

	observability.RequestDecisions.WithLabelValues(string(req.Decision)).Inc()
	if trip.CompletionReason == domain.CompletionSeatsExhausted && req.Decision == domain.DecisionAccept {
		observability.TripCompletions.WithLabelValues(string(domain.CompletionSeatsExhausted)).Inc()
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":         trip.ID,
		"request_id":      req.RequestID,
		"decision":        req.Decision,
		"available_seats": trip.AvailableSeats,
		"status":          trip.Status,
	}).Info("trip request decided")

	if decided := trip.FindRequest(req.RequestID); decided != nil {
		_ = s.notificationService.NotifyRequestDecided(ctx, trip, *decided)
	}

	return trip, nil
}

// ListRequests returns a trip's requests to its driver.
func (s *RequestService) ListRequests(ctx context.Context, tripID, driverID string) ([]domain.TripRequest, error) {
	trip, err := s.lifecycle.load(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.DriverID != driverID {
		return nil, ErrNotTripOwner
	}

	return trip.Requests, nil
}

// PassengerRequest is one of a passenger's requests with its trip.
type PassengerRequest struct {
	Trip    *domain.Trip
	Request domain.TripRequest
}

// ListMyRequests returns every request the passenger made, newest trip first.
func (s *RequestService) ListMyRequests(ctx context.Context, passengerID string) ([]PassengerRequest, error) {
	if passengerID == "" {
		return nil, ErrInvalidUserID
	}

	trips, err := s.tripRepo.ListByParticipant(ctx, passengerID)
	if err != nil {
		return nil, err
	}

	result := make([]PassengerRequest, 0, len(trips))
	for _, trip := range trips {
		req := trip.RequestByPassenger(passengerID)
		if req == nil {
			continue
		}
		trip = s.lifecycle.observe(ctx, trip)
		result = append(result, PassengerRequest{Trip: trip, Request: *req})
	}
	return result, nil
}
