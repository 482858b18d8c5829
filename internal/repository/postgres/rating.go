package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RatingRepository is a PostgreSQL implementation of repository.RatingRepository.
type RatingRepository struct {
	q Querier
}

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{q: db}
}

const ratingColumns = `id, trip_id, from_user_id, from_first_name, from_last_name,
	to_user_id, to_first_name, to_last_name, rating, role, created_at`

// Create records a rating. A second rating for the same trip, rater and
// role fails with repository.ErrDuplicate.
func (r *RatingRepository) Create(ctx context.Context, rt *domain.Rating) error {
	query := `INSERT INTO ratings (` + ratingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.q.ExecContext(ctx, query,
		rt.ID,
		rt.TripID,
		rt.FromUserID,
		rt.FromUserName.FirstName,
		rt.FromUserName.LastName,
		rt.ToUserID,
		rt.ToUserName.FirstName,
		rt.ToUserName.LastName,
		rt.Value,
		string(rt.Role),
		rt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rating: %w", translate(err))
	}
	return nil
}

// Exists reports whether the rater already rated the trip in role.
func (r *RatingRepository) Exists(ctx context.Context, tripID, fromUserID string, role domain.Role) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ratings WHERE trip_id = $1 AND from_user_id = $2 AND role = $3)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, tripID, fromUserID, string(role)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListReceived returns the ratings a user received, newest first.
func (r *RatingRepository) ListReceived(ctx context.Context, toUserID string) ([]domain.Rating, error) {
	return r.list(ctx, `WHERE to_user_id = $1 ORDER BY created_at DESC`, toUserID)
}

// ListGiven returns the ratings a user gave.
func (r *RatingRepository) ListGiven(ctx context.Context, fromUserID string) ([]domain.Rating, error) {
	return r.list(ctx, `WHERE from_user_id = $1`, fromUserID)
}

// Average aggregates the ratings toUserID received from raterRole.
func (r *RatingRepository) Average(ctx context.Context, toUserID string, raterRole domain.Role) (float64, int, error) {
	query := `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM ratings WHERE to_user_id = $1 AND role = $2`

	var avg float64
	var n int
	if err := r.q.QueryRowContext(ctx, query, toUserID, string(raterRole)).Scan(&avg, &n); err != nil {
		return 0, 0, fmt.Errorf("failed to calculate average rating: %w", err)
	}
	return avg, n, nil
}

func (r *RatingRepository) list(ctx context.Context, clause string, arg string) ([]domain.Rating, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+ratingColumns+` FROM ratings `+clause, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Rating
	for rows.Next() {
		var rt domain.Rating
		var role string
		if err := rows.Scan(
			&rt.ID,
			&rt.TripID,
			&rt.FromUserID,
			&rt.FromUserName.FirstName,
			&rt.FromUserName.LastName,
			&rt.ToUserID,
			&rt.ToUserName.FirstName,
			&rt.ToUserName.LastName,
			&rt.Value,
			&role,
			&rt.CreatedAt,
		); err != nil {
			return nil, err
		}
		rt.Role = domain.Role(role)
		out = append(out, rt)
	}
	return out, rows.Err()
}

var _ repository.RatingRepository = (*RatingRepository)(nil)
