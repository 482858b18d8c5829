package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// TripSearch filters active trips with free seats.
type TripSearch struct {
	Departure string
	Arrival   string
	DayStart  time.Time
	DayEnd    time.Time
	// ExcludeUserID drops trips driven or already requested by this user.
	ExcludeUserID string
}

// TripRepository defines the persistence operations for trips. Requests are
// embedded in the trip and written with it.
type TripRepository interface {
	// Create persists a new trip at version 1.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// List returns every trip, earliest departure first.
	List(ctx context.Context) ([]*domain.Trip, error)

	// Search returns trips matching the criteria, earliest first.
	Search(ctx context.Context, criteria TripSearch) ([]*domain.Trip, error)

	// ListByParticipant returns trips the user drives or has requested.
	ListByParticipant(ctx context.Context, userID string) ([]*domain.Trip, error)

	// Save replaces the trip if its stored version still equals trip.Version,
	// then bumps trip.Version. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, trip *domain.Trip) error

	// Delete removes the trip if its stored version equals version.
	Delete(ctx context.Context, id string, version int64) error
}
