package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/observability"
)

// NotificationService turns trip lifecycle changes into events for
// downstream consumers. Delivery happens after the trip write committed;
// a failed publish is logged and never undoes or fails the operation.
type NotificationService struct {
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher events.Publisher, logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{publisher: publisher, logger: logger}
}

// NotifyTripCreated announces a new trip offer.
func (s *NotificationService) NotifyTripCreated(ctx context.Context, trip *domain.Trip) error {
	return s.send(ctx, newEvent(events.TripCreated, trip, trip.DriverID, "", tripData(trip)))
}

// NotifyTripUpdated announces an edited trip to its passengers.
func (s *NotificationService) NotifyTripUpdated(ctx context.Context, trip *domain.Trip) error {
	evts := []events.Event{newEvent(events.TripUpdated, trip, trip.DriverID, "", tripData(trip))}
	for _, id := range trip.AcceptedPassengerIDs() {
		evts = append(evts, newEvent(events.TripUpdated, trip, trip.DriverID, id, nil))
	}
	return s.send(ctx, evts...)
}

// NotifyTripDeleted tells every requester that the offer is gone.
func (s *NotificationService) NotifyTripDeleted(ctx context.Context, trip *domain.Trip) error {
	evts := []events.Event{newEvent(events.TripDeleted, trip, trip.DriverID, "", nil)}
	for _, r := range trip.Requests {
		if r.Status == domain.RequestStatusRejected {
			continue
		}
		evts = append(evts, newEvent(events.TripDeleted, trip, trip.DriverID, r.PassengerID, nil))
	}
	return s.send(ctx, evts...)
}

// NotifyTripRequested tells the driver about a new passenger request.
func (s *NotificationService) NotifyTripRequested(ctx context.Context, trip *domain.Trip, req domain.TripRequest) error {
	return s.send(ctx, newEvent(events.TripRequested, trip, req.PassengerID, trip.DriverID, map[string]any{
		"request_id": req.ID,
	}))
}

// NotifyRequestDecided tells the passenger about the driver's decision, and
// announces a full trip when the last seat was taken.
func (s *NotificationService) NotifyRequestDecided(ctx context.Context, trip *domain.Trip, req domain.TripRequest) error {
	typ := events.RequestRejected
	if req.Status == domain.RequestStatusAccepted {
		typ = events.RequestAccepted
	}

	evts := []events.Event{newEvent(typ, trip, trip.DriverID, req.PassengerID, map[string]any{
		"request_id":      req.ID,
		"available_seats": trip.AvailableSeats,
	})}
	if trip.CompletionReason == domain.CompletionSeatsExhausted && req.Status == domain.RequestStatusAccepted {
		evts = append(evts, newEvent(events.TripFull, trip, trip.DriverID, "", nil))
	}
	return s.send(ctx, evts...)
}

// NotifyPickupConfirmed records a confirmation for consumers.
func (s *NotificationService) NotifyPickupConfirmed(ctx context.Context, trip *domain.Trip, c domain.Confirmation) error {
	return s.send(ctx, newEvent(events.PickupConfirmed, trip, c.UserID, "", map[string]any{
		"role":         c.Role,
		"is_confirmed": c.IsConfirmed,
	}))
}

// NotifyTripCompleted announces a closed trip. Gamification awards points
// from this event, so it carries the fields it scores on.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, trip *domain.Trip) error {
	data := tripData(trip)
	data["completion_reason"] = trip.CompletionReason
	data["passenger_ids"] = trip.AcceptedPassengerIDs()
	return s.send(ctx, newEvent(events.TripCompleted, trip, trip.DriverID, "", data))
}

// NotifyRatingSubmitted tells the rated user about a new rating.
func (s *NotificationService) NotifyRatingSubmitted(ctx context.Context, trip *domain.Trip, r domain.Rating, average float64) error {
	return s.send(ctx, newEvent(events.RatingSubmitted, trip, r.FromUserID, r.ToUserID, map[string]any{
		"rating":  r.Value,
		"role":    r.Role,
		"average": average,
	}))
}

func (s *NotificationService) send(ctx context.Context, evts ...events.Event) error {
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		observability.EventPublishFailures.Add(float64(len(evts)))
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": evts[0].Type,
			"trip_id":    evts[0].TripID,
			"count":      len(evts),
		}).Warn("failed to publish trip events")
		return err
	}
	return nil
}

func newEvent(typ events.Type, trip *domain.Trip, actorID, recipientID string, data map[string]any) events.Event {
	return events.Event{
		ID:          uuid.New().String(),
		Type:        typ,
		TripID:      trip.ID,
		ActorID:     actorID,
		RecipientID: recipientID,
		Data:        data,
		OccurredAt:  time.Now().UTC(),
	}
}

func tripData(trip *domain.Trip) map[string]any {
	return map[string]any{
		"driver_id":       trip.DriverID,
		"departure":       trip.Departure,
		"arrival":         trip.Arrival,
		"date":            trip.Date.Format(domain.DateLayout),
		"distance":        trip.Distance,
		"vehicle":         trip.Vehicle,
		"is_electric":     trip.IsElectric(),
		"seats":           trip.Seats,
		"available_seats": trip.AvailableSeats,
	}
}
