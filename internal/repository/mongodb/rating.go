package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

type nameDocument struct {
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName"`
}

type ratingDocument struct {
	ID           string       `bson:"_id"`
	TripID       string       `bson:"tripId"`
	FromUserID   string       `bson:"fromUserId"`
	FromUserName nameDocument `bson:"fromUserName"`
	ToUserID     string       `bson:"toUserId"`
	ToUserName   nameDocument `bson:"toUserName"`
	Rating       int          `bson:"rating"`
	Role         string       `bson:"role"`
	CreatedAt    time.Time    `bson:"createdAt"`
}

// RatingRepository implements repository.RatingRepository using MongoDB.
type RatingRepository struct {
	col *mongo.Collection
}

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(db *mongo.Database) *RatingRepository {
	return &RatingRepository{col: db.Collection(RatingsCollection)}
}

var _ repository.RatingRepository = (*RatingRepository)(nil)

// Create records a rating. A second rating for the same trip, rater and
// role fails with repository.ErrDuplicate.
func (r *RatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	doc := ratingDocument{
		ID:           rating.ID,
		TripID:       rating.TripID,
		FromUserID:   rating.FromUserID,
		FromUserName: nameDocument(rating.FromUserName),
		ToUserID:     rating.ToUserID,
		ToUserName:   nameDocument(rating.ToUserName),
		Rating:       rating.Value,
		Role:         string(rating.Role),
		CreatedAt:    rating.CreatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create rating: %w", translate(err))
	}
	return nil
}

// Exists reports whether the rater already rated the trip in role.
func (r *RatingRepository) Exists(ctx context.Context, tripID, fromUserID string, role domain.Role) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"tripId": tripID, "fromUserId": fromUserID, "role": string(role)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListReceived returns the ratings a user received, newest first.
func (r *RatingRepository) ListReceived(ctx context.Context, toUserID string) ([]domain.Rating, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"toUserId": toUserID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return decodeAll(ctx, cur, (*ratingDocument).toDomain)
}

// ListGiven returns the ratings a user gave.
func (r *RatingRepository) ListGiven(ctx context.Context, fromUserID string) ([]domain.Rating, error) {
	cur, err := r.col.Find(ctx, bson.M{"fromUserId": fromUserID})
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return decodeAll(ctx, cur, (*ratingDocument).toDomain)
}

// Average aggregates the ratings toUserID received from raterRole.
func (r *RatingRepository) Average(ctx context.Context, toUserID string, raterRole domain.Role) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"toUserId": toUserID, "role": string(raterRole)}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to calculate average rating: %w", err)
	}
	defer cur.Close(ctx)

	var result struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if !cur.Next(ctx) {
		return 0, 0, cur.Err()
	}
	if err := cur.Decode(&result); err != nil {
		return 0, 0, err
	}
	return result.Avg, result.Count, nil
}

func (d *ratingDocument) toDomain() domain.Rating {
	return domain.Rating{
		ID:           d.ID,
		TripID:       d.TripID,
		FromUserID:   d.FromUserID,
		FromUserName: domain.PersonName(d.FromUserName),
		ToUserID:     d.ToUserID,
		ToUserName:   domain.PersonName(d.ToUserName),
		Value:        d.Rating,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt,
	}
}
