package repository

import (
	"context"

	"carpool/internal/domain"
)

// UserRepository reads and updates the user profile fields owned by the
// trip domain.
type UserRepository interface {
	// GetByID retrieves a profile by ID.
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)

	// UpdateRating stores the user's average for the given rated role.
	UpdateRating(ctx context.Context, userID string, role domain.Role, average float64) error
}
