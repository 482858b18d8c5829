package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carpool/internal/repository"
)

// Collection names.
const (
	TripsCollection         = "trips"
	ConfirmationsCollection = "trip_confirmations"
	RatingsCollection       = "ratings"
	UsersCollection         = "users"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique
// ledger indexes are the authority for at-most-once confirmation and rating.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		TripsCollection: {
			{Keys: bson.D{{Key: "departure", Value: 1}, {Key: "arrival", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "driverId", Value: 1}}},
			{Keys: bson.D{{Key: "requests.passengerId", Value: 1}}},
		},
		ConfirmationsCollection: {
			{
				Keys:    bson.D{{Key: "tripId", Value: 1}, {Key: "userId", Value: 1}, {Key: "role", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_trip_user_role"),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "role", Value: 1}}},
		},
		RatingsCollection: {
			{
				Keys:    bson.D{{Key: "tripId", Value: 1}, {Key: "fromUserId", Value: 1}, {Key: "role", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_trip_rater_role"),
			},
			{Keys: bson.D{{Key: "toUserId", Value: 1}, {Key: "role", Value: 1}}},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	default:
		return err
	}
}

// decodeAll drains a cursor into out using convert.
func decodeAll[D any, T any](ctx context.Context, cur *mongo.Cursor, convert func(*D) T) ([]T, error) {
	defer cur.Close(ctx)

	var out []T
	for cur.Next(ctx) {
		var doc D
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, convert(&doc))
	}
	return out, cur.Err()
}
