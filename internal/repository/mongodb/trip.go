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

type tripDocument struct {
	ID               string            `bson:"_id"`
	DriverID         string            `bson:"driverId"`
	Departure        string            `bson:"departure"`
	Arrival          string            `bson:"arrival"`
	Date             time.Time         `bson:"date"`
	Time             string            `bson:"time"`
	ArrivalTime      string            `bson:"arrivalTime"`
	Distance         string            `bson:"distance"`
	Duration         string            `bson:"duration"`
	Vehicle          string            `bson:"vehicle"`
	Seats            int               `bson:"seats"`
	AvailableSeats   int               `bson:"availableSeats"`
	Status           string            `bson:"status"`
	CompletionReason string            `bson:"completionReason,omitempty"`
	Requests         []requestDocument `bson:"requests"`
	CreatedAt        time.Time         `bson:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt"`
	CompletedAt      *time.Time        `bson:"completedAt,omitempty"`
	Version          int64             `bson:"version"`
}

type requestDocument struct {
	ID                           string     `bson:"_id"`
	PassengerID                  string     `bson:"passengerId"`
	Status                       string     `bson:"status"`
	CreatedAt                    time.Time  `bson:"createdAt"`
	DecidedAt                    *time.Time `bson:"decidedAt,omitempty"`
	IsPickedUp                   bool       `bson:"isPickedUp"`
	PickedUpAt                   *time.Time `bson:"pickedUpAt,omitempty"`
	PickupConfirmedByPassenger   bool       `bson:"pickupConfirmedByPassenger"`
	PickupConfirmedByPassengerAt *time.Time `bson:"pickupConfirmedByPassengerAt,omitempty"`
}

// TripRepository implements repository.TripRepository using MongoDB.
type TripRepository struct {
	col *mongo.Collection
}

// NewTripRepository creates a new TripRepository.
func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{col: db.Collection(TripsCollection)}
}

var _ repository.TripRepository = (*TripRepository)(nil)

// Create inserts a new trip document.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	trip.Version = 1
	if _, err := r.col.InsertOne(ctx, toTripDocument(trip)); err != nil {
		return fmt.Errorf("failed to create trip: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	var doc tripDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain(), nil
}

// List returns every trip, earliest departure first.
func (r *TripRepository) List(ctx context.Context) ([]*domain.Trip, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return decodeAll(ctx, cur, (*tripDocument).toDomain)
}

// Search finds active trips with free seats on the given route and day.
func (r *TripRepository) Search(ctx context.Context, c repository.TripSearch) ([]*domain.Trip, error) {
	filter := bson.M{
		"departure":      c.Departure,
		"arrival":        c.Arrival,
		"date":           bson.M{"$gte": c.DayStart, "$lte": c.DayEnd},
		"availableSeats": bson.M{"$gt": 0},
		"status":         string(domain.TripStatusActive),
	}
	if c.ExcludeUserID != "" {
		filter["driverId"] = bson.M{"$ne": c.ExcludeUserID}
		filter["requests.passengerId"] = bson.M{"$ne": c.ExcludeUserID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}
	return decodeAll(ctx, cur, (*tripDocument).toDomain)
}

// ListByParticipant returns trips the user drives or has requested, most
// recent departure first.
func (r *TripRepository) ListByParticipant(ctx context.Context, userID string) ([]*domain.Trip, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"driverId": userID},
		bson.M{"requests.passengerId": userID},
	}}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips for %s: %w", userID, err)
	}
	return decodeAll(ctx, cur, (*tripDocument).toDomain)
}

// Save replaces the document only if the stored version still matches.
func (r *TripRepository) Save(ctx context.Context, trip *domain.Trip) error {
	doc := toTripDocument(trip)
	doc.Version = trip.Version + 1

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": trip.ID, "version": trip.Version}, doc)
	if err != nil {
		return fmt.Errorf("failed to save trip: %w", translate(err))
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, trip.ID)
	}

	trip.Version = doc.Version
	return nil
}

// Delete removes the trip only if the stored version still matches.
func (r *TripRepository) Delete(ctx context.Context, id string, version int64) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "version": version})
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if res.DeletedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *TripRepository) missOrConflict(ctx context.Context, id string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

func toTripDocument(t *domain.Trip) tripDocument {
	reqs := make([]requestDocument, 0, len(t.Requests))
	for _, q := range t.Requests {
		reqs = append(reqs, requestDocument{
			ID:                           q.ID,
			PassengerID:                  q.PassengerID,
			Status:                       string(q.Status),
			CreatedAt:                    q.CreatedAt,
			DecidedAt:                    q.DecidedAt,
			IsPickedUp:                   q.IsPickedUp,
			PickedUpAt:                   q.PickedUpAt,
			PickupConfirmedByPassenger:   q.PickupConfirmedByPassenger,
			PickupConfirmedByPassengerAt: q.PickupConfirmedByPassengerAt,
		})
	}

	return tripDocument{
		ID:               t.ID,
		DriverID:         t.DriverID,
		Departure:        t.Departure,
		Arrival:          t.Arrival,
		Date:             t.Date,
		Time:             t.Time,
		ArrivalTime:      t.ArrivalTime,
		Distance:         t.Distance,
		Duration:         t.Duration,
		Vehicle:          t.Vehicle,
		Seats:            t.Seats,
		AvailableSeats:   t.AvailableSeats,
		Status:           string(t.Status),
		CompletionReason: string(t.CompletionReason),
		Requests:         reqs,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		CompletedAt:      t.CompletedAt,
		Version:          t.Version,
	}
}

func (d *tripDocument) toDomain() *domain.Trip {
	reqs := make([]domain.TripRequest, 0, len(d.Requests))
	for _, q := range d.Requests {
		reqs = append(reqs, domain.TripRequest{
			ID:                           q.ID,
			PassengerID:                  q.PassengerID,
			Status:                       domain.RequestStatus(q.Status),
			CreatedAt:                    q.CreatedAt,
			DecidedAt:                    q.DecidedAt,
			IsPickedUp:                   q.IsPickedUp,
			PickedUpAt:                   q.PickedUpAt,
			PickupConfirmedByPassenger:   q.PickupConfirmedByPassenger,
			PickupConfirmedByPassengerAt: q.PickupConfirmedByPassengerAt,
		})
	}

	return &domain.Trip{
		ID:               d.ID,
		DriverID:         d.DriverID,
		Departure:        d.Departure,
		Arrival:          d.Arrival,
		Date:             d.Date.UTC(),
		Time:             d.Time,
		ArrivalTime:      d.ArrivalTime,
		Distance:         d.Distance,
		Duration:         d.Duration,
		Vehicle:          d.Vehicle,
		Seats:            d.Seats,
		AvailableSeats:   d.AvailableSeats,
		Status:           domain.TripStatus(d.Status),
		CompletionReason: domain.CompletionReason(d.CompletionReason),
		Requests:         reqs,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		CompletedAt:      d.CompletedAt,
		Version:          d.Version,
	}
}
