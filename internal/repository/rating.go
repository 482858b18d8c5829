package repository

import (
	"context"

	"carpool/internal/domain"
)

// RatingRepository is the insert-only rating ledger.
type RatingRepository interface {
	// Create inserts a rating. Returns ErrDuplicate when the rater already
	// rated this trip in this role.
	Create(ctx context.Context, r *domain.Rating) error

	// Exists reports whether (trip, rater, role) already has a rating.
	Exists(ctx context.Context, tripID, fromUserID string, role domain.Role) (bool, error)

	// ListReceived returns ratings given to a user, newest first.
	ListReceived(ctx context.Context, toUserID string) ([]domain.Rating, error)

	// ListGiven returns ratings a user gave.
	ListGiven(ctx context.Context, fromUserID string) ([]domain.Rating, error)

	// Average returns the mean and count of ratings received by toUserID
	// from raters acting in raterRole.
	Average(ctx context.Context, toUserID string, raterRole domain.Role) (float64, int, error)
}
