package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ConfirmationRepository is a PostgreSQL implementation of repository.ConfirmationRepository.
type ConfirmationRepository struct {
	q Querier
}

// NewConfirmationRepository creates a new ConfirmationRepository.
func NewConfirmationRepository(db *sql.DB) *ConfirmationRepository {
	return &ConfirmationRepository{q: db}
}

// Create records a confirmation. A second confirmation for the same
// trip, user and role fails with repository.ErrDuplicate.
func (r *ConfirmationRepository) Create(ctx context.Context, c *domain.Confirmation) error {
	query := `
		INSERT INTO trip_confirmations (id, trip_id, user_id, role, is_confirmed, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.ExecContext(ctx, query, c.ID, c.TripID, c.UserID, string(c.Role), c.IsConfirmed, c.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("failed to create confirmation: %w", translate(err))
	}
	return nil
}

// Exists reports whether the user already confirmed the trip in role.
func (r *ConfirmationRepository) Exists(ctx context.Context, tripID, userID string, role domain.Role) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM trip_confirmations WHERE trip_id = $1 AND user_id = $2 AND role = $3)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, tripID, userID, string(role)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByTrip returns every confirmation recorded for a trip.
func (r *ConfirmationRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.Confirmation, error) {
	return r.list(ctx, `WHERE trip_id = $1`, tripID)
}

// ListByUser returns the confirmations a user recorded.
func (r *ConfirmationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Confirmation, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

// CountConfirmed counts the positive confirmations a user made in role.
func (r *ConfirmationRepository) CountConfirmed(ctx context.Context, userID string, role domain.Role) (int, error) {
	query := `SELECT COUNT(*) FROM trip_confirmations WHERE user_id = $1 AND role = $2 AND is_confirmed`

	var n int
	if err := r.q.QueryRowContext(ctx, query, userID, string(role)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ConfirmationRepository) list(ctx context.Context, where string, arg string) ([]domain.Confirmation, error) {
	query := `SELECT id, trip_id, user_id, role, is_confirmed, confirmed_at FROM trip_confirmations ` + where

	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Confirmation
	for rows.Next() {
		var c domain.Confirmation
		var role string
		if err := rows.Scan(&c.ID, &c.TripID, &c.UserID, &role, &c.IsConfirmed, &c.ConfirmedAt); err != nil {
			return nil, err
		}
		c.Role = domain.Role(role)
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ repository.ConfirmationRepository = (*ConfirmationRepository)(nil)
