package repository

import (
	"context"

	"carpool/internal/domain"
)

// ConfirmationRepository is the insert-only pickup confirmation ledger.
type ConfirmationRepository interface {
	// Create inserts a confirmation. Returns ErrDuplicate when one already
	// exists for (trip, user, role).
	Create(ctx context.Context, c *domain.Confirmation) error

	// Exists reports whether (trip, user, role) was already confirmed.
	Exists(ctx context.Context, tripID, userID string, role domain.Role) (bool, error)

	// ListByTrip returns every confirmation recorded for a trip.
	ListByTrip(ctx context.Context, tripID string) ([]domain.Confirmation, error)

	// ListByUser returns every confirmation made by a user.
	ListByUser(ctx context.Context, userID string) ([]domain.Confirmation, error)

	// CountConfirmed counts positive confirmations by a user in a role.
	CountConfirmed(ctx context.Context, userID string, role domain.Role) (int, error)
}
