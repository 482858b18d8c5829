package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

type userDocument struct {
	ID              string  `bson:"_id"`
	FirstName       string  `bson:"firstName"`
	LastName        string  `bson:"lastName"`
	DriverRating    float64 `bson:"driverRating"`
	PassengerRating float64 `bson:"passengerRating"`
}

// UserRepository implements repository.UserRepository using MongoDB. The
// users collection is shared with the account service; only the rating
// fields are written here.
type UserRepository struct {
	col *mongo.Collection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(UsersCollection)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

// GetByID retrieves a user profile by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &domain.UserProfile{
		ID:              doc.ID,
		FirstName:       doc.FirstName,
		LastName:        doc.LastName,
		DriverRating:    doc.DriverRating,
		PassengerRating: doc.PassengerRating,
	}, nil
}

// UpdateRating stores the user's average for role.
func (r *UserRepository) UpdateRating(ctx context.Context, userID string, role domain.Role, average float64) error {
	field := "passengerRating"
	if role == domain.RoleDriver {
		field = "driverRating"
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{field: average}})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
