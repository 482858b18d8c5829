package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user profile by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	query := `SELECT id, first_name, last_name, driver_rating, passenger_rating FROM users WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var user domain.UserProfile
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.DriverRating, &user.PassengerRating)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdateRating stores the average rating for the given role.
func (r *UserRepository) UpdateRating(ctx context.Context, userID string, role domain.Role, average float64) error {
	query := `UPDATE users SET passenger_rating = $1 WHERE id = $2`
	if role == domain.RoleDriver {
		query = `UPDATE users SET driver_rating = $1 WHERE id = $2`
	}

	result, err := r.db.ExecContext(ctx, query, average, userID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
