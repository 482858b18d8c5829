package events

import (
	"context"
	"time"
)

// Type identifies a trip lifecycle event.
type Type string

const (
	TripCreated      Type = "TRIP_CREATED"
	TripUpdated      Type = "TRIP_UPDATED"
	TripDeleted      Type = "TRIP_DELETED"
	TripRequested    Type = "TRIP_REQUESTED"
	RequestAccepted  Type = "REQUEST_ACCEPTED"
	RequestRejected  Type = "REQUEST_REJECTED"
	TripFull         Type = "TRIP_FULL"
	TripCompleted    Type = "TRIP_COMPLETED"
	PickupConfirmed  Type = "PICKUP_CONFIRMED"
	RatingSubmitted  Type = "RATING_SUBMITTED"
)

// Event is the envelope published for downstream consumers such as the
// gamification service.
type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	TripID      string         `json:"trip_id"`
	ActorID     string         `json:"actor_id,omitempty"`
	RecipientID string         `json:"recipient_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}
