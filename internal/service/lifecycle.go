package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/observability"
	"carpool/internal/repository"
)

// LifecycleConfig tunes the lifecycle engine.
type LifecycleConfig struct {
	// Location is the timezone trip dates and clock times are read in.
	Location *time.Location
	// MaxAttempts bounds the read-apply-write loop on version conflicts.
	MaxAttempts int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Lifecycle owns every write to a trip document. Each mutation reads the
// trip, lapses it if past due, applies a pure transition and saves it with a
// version check; a lost race repeats the whole cycle on fresh state.
type Lifecycle struct {
	trips         repository.TripRepository
	confirmations repository.ConfirmationRepository
	loc           *time.Location
	attempts      int
	now           func() time.Time
	logger        logrus.FieldLogger
}

// NewLifecycle creates a new Lifecycle.
func NewLifecycle(
	trips repository.TripRepository,
	confirmations repository.ConfirmationRepository,
	cfg LifecycleConfig,
	logger logrus.FieldLogger,
) *Lifecycle {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Lifecycle{
		trips:         trips,
		confirmations: confirmations,
		loc:           cfg.Location,
		attempts:      cfg.MaxAttempts,
		now:           cfg.Now,
		logger:        logger,
	}
}

// transition mutates a trip in memory and reports whether it changed. It
// may run several times for one call and must not have side effects.
type transition func(trip *domain.Trip, now time.Time) (bool, error)

// mutate applies fn to the latest version of the trip and persists it.
func (l *Lifecycle) mutate(ctx context.Context, op, tripID string, fn transition) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	for attempt := 1; attempt <= l.attempts; attempt++ {
		trip, err := l.trips.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}

		now := l.now()
		lapsed := trip.Lapse(now, l.loc)

		changed, err := fn(trip, now)
		if err != nil {
			return nil, err
		}
		if !changed && !lapsed {
			return trip, nil
		}

		// A reopened trip may already be past due.
		if trip.Lapse(now, l.loc) {
			lapsed = true
		}
		trip.UpdatedAt = now

		err = l.trips.Save(ctx, trip)
		if errors.Is(err, repository.ErrVersionConflict) {
			observability.VersionConflicts.WithLabelValues(op).Inc()
			l.logger.WithFields(logrus.Fields{
				"trip_id": tripID,
				"op":      op,
				"attempt": attempt,
			}).Debug("trip version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		if lapsed {
			observability.TripsLapsed.Inc()
		}
		return trip, nil
	}

	return nil, ErrConcurrentUpdate
}

// remove deletes the trip after check approves the latest version.
func (l *Lifecycle) remove(ctx context.Context, tripID string, check func(trip *domain.Trip) error) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	for attempt := 1; attempt <= l.attempts; attempt++ {
		trip, err := l.trips.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		trip.Lapse(l.now(), l.loc)

		if err := check(trip); err != nil {
			return nil, err
		}

		err = l.trips.Delete(ctx, trip.ID, trip.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			observability.VersionConflicts.WithLabelValues("delete").Inc()
			continue
		}
		if err != nil {
			return nil, err
		}
		return trip, nil
	}

	return nil, ErrConcurrentUpdate
}

// observe lapses a trip read for display and writes the lapse back. The
// write is best effort: a failure leaves the stored trip stale until the
// next read, which no invariant depends on.
func (l *Lifecycle) observe(ctx context.Context, trip *domain.Trip) *domain.Trip {
	now := l.now()
	if !trip.Lapse(now, l.loc) {
		return trip
	}
	trip.UpdatedAt = now

	if err := l.trips.Save(ctx, trip); err != nil {
		l.logger.WithError(err).WithField("trip_id", trip.ID).Debug("lapse write-back skipped")
		return trip
	}
	observability.TripsLapsed.Inc()
	return trip
}

// load fetches a trip and lapses it if needed.
func (l *Lifecycle) load(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	trip, err := l.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return l.observe(ctx, trip), nil
}

// settle re-evaluates completion from the confirmation ledger after a
// ledger write, stamping pickup fields for a new positive confirmation. It
// reports whether this call closed the trip.
func (l *Lifecycle) settle(ctx context.Context, tripID, userID string, role domain.Role, markPickup bool) (*domain.Trip, bool, error) {
	var closed bool

	trip, err := l.mutate(ctx, "settle", tripID, func(trip *domain.Trip, now time.Time) (bool, error) {
		confirmations, err := l.confirmations.ListByTrip(ctx, trip.ID)
		if err != nil {
			return false, err
		}

		changed := false
		if markPickup && trip.MarkPickup(userID, role, now) {
			changed = true
		}
		closed = trip.Reevaluate(confirmations, now)
		return changed || closed, nil
	})
	if err != nil {
		return nil, false, err
	}

	if closed {
		observability.TripCompletions.WithLabelValues(string(domain.CompletionConfirmed)).Inc()
	}
	return trip, closed, nil
}

// Now returns the lifecycle clock.
func (l *Lifecycle) Now() time.Time {
	return l.now()
}
