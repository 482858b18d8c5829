package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

type confirmationDocument struct {
	ID          string    `bson:"_id"`
	TripID      string    `bson:"tripId"`
	UserID      string    `bson:"userId"`
	Role        string    `bson:"role"`
	IsConfirmed bool      `bson:"isConfirmed"`
	ConfirmedAt time.Time `bson:"confirmedAt"`
}

// ConfirmationRepository implements repository.ConfirmationRepository using MongoDB.
type ConfirmationRepository struct {
	col *mongo.Collection
}

// NewConfirmationRepository creates a new ConfirmationRepository.
func NewConfirmationRepository(db *mongo.Database) *ConfirmationRepository {
	return &ConfirmationRepository{col: db.Collection(ConfirmationsCollection)}
}

var _ repository.ConfirmationRepository = (*ConfirmationRepository)(nil)

// Create records a confirmation. A second confirmation for the same
// trip, user and role fails with repository.ErrDuplicate.
func (r *ConfirmationRepository) Create(ctx context.Context, c *domain.Confirmation) error {
	doc := confirmationDocument{
		ID:          c.ID,
		TripID:      c.TripID,
		UserID:      c.UserID,
		Role:        string(c.Role),
		IsConfirmed: c.IsConfirmed,
		ConfirmedAt: c.ConfirmedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create confirmation: %w", translate(err))
	}
	return nil
}

// Exists reports whether the user already confirmed the trip in role.
func (r *ConfirmationRepository) Exists(ctx context.Context, tripID, userID string, role domain.Role) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"tripId": tripID, "userId": userID, "role": string(role)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByTrip returns every confirmation recorded for a trip.
func (r *ConfirmationRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.Confirmation, error) {
	cur, err := r.col.Find(ctx, bson.M{"tripId": tripID})
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	return decodeAll(ctx, cur, (*confirmationDocument).toDomain)
}

// ListByUser returns the confirmations a user recorded.
func (r *ConfirmationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Confirmation, error) {
	cur, err := r.col.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	return decodeAll(ctx, cur, (*confirmationDocument).toDomain)
}

// CountConfirmed counts the positive confirmations a user made in role.
func (r *ConfirmationRepository) CountConfirmed(ctx context.Context, userID string, role domain.Role) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"userId": userID, "role": string(role), "isConfirmed": true})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (d *confirmationDocument) toDomain() domain.Confirmation {
	return domain.Confirmation{
		ID:          d.ID,
		TripID:      d.TripID,
		UserID:      d.UserID,
		Role:        domain.Role(d.Role),
		IsConfirmed: d.IsConfirmed,
		ConfirmedAt: d.ConfirmedAt,
	}
}
