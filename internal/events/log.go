package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher logs events instead of delivering them. Used when no broker
// is configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.WithFields(logrus.Fields{
			"event_id":     e.ID,
			"event_type":   e.Type,
			"trip_id":      e.TripID,
			"actor_id":     e.ActorID,
			"recipient_id": e.RecipientID,
		}).Info("trip event")
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
