package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// requestRecord is the JSONB shape of an embedded trip request.
type requestRecord struct {
	ID                           string     `json:"id"`
	PassengerID                  string     `json:"passenger_id"`
	Status                       string     `json:"status"`
	CreatedAt                    time.Time  `json:"created_at"`
	DecidedAt                    *time.Time `json:"decided_at,omitempty"`
	IsPickedUp                   bool       `json:"is_picked_up"`
	PickedUpAt                   *time.Time `json:"picked_up_at,omitempty"`
	PickupConfirmedByPassenger   bool       `json:"pickup_confirmed_by_passenger"`
	PickupConfirmedByPassengerAt *time.Time `json:"pickup_confirmed_by_passenger_at,omitempty"`
}

const tripColumns = `id, driver_id, departure, arrival, trip_date, departure_time, arrival_time,
	distance, duration, vehicle, seats, available_seats, status, completion_reason,
	requests, created_at, updated_at, completed_at, version`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	requests, err := marshalRequests(trip.Requests)
	if err != nil {
		return err
	}
	trip.Version = 1

	query := `INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.q.ExecContext(ctx, query,
		trip.ID,
		trip.DriverID,
		trip.Departure,
		trip.Arrival,
		trip.Date,
		trip.Time,
		trip.ArrivalTime,
		trip.Distance,
		trip.Duration,
		trip.Vehicle,
		trip.Seats,
		trip.AvailableSeats,
		string(trip.Status),
		string(trip.CompletionReason),
		requests,
		trip.CreatedAt,
		trip.UpdatedAt,
		nullTime(trip.CompletedAt),
		trip.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return trip, nil
}

// List returns every trip, earliest departure first.
func (r *TripRepository) List(ctx context.Context) ([]*domain.Trip, error) {
	return r.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips ORDER BY trip_date, departure_time`)
}

// Search finds active trips with free seats on the given route and day.
func (r *TripRepository) Search(ctx context.Context, c repository.TripSearch) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE departure = $1 AND arrival = $2
		  AND trip_date BETWEEN $3::date AND $4::date
		  AND available_seats > 0 AND status = $5`
	args := []any{c.Departure, c.Arrival, c.DayStart, c.DayEnd, string(domain.TripStatusActive)}

	if c.ExcludeUserID != "" {
		marker, err := passengerMarker(c.ExcludeUserID)
		if err != nil {
			return nil, err
		}
		query += ` AND driver_id <> $6 AND NOT (requests @> $7::jsonb)`
		args = append(args, c.ExcludeUserID, marker)
	}
	query += ` ORDER BY trip_date, departure_time`

	return r.queryTrips(ctx, query, args...)
}

// ListByParticipant returns trips the user drives or has requested.
func (r *TripRepository) ListByParticipant(ctx context.Context, userID string) ([]*domain.Trip, error) {
	marker, err := passengerMarker(userID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE driver_id = $1 OR requests @> $2::jsonb
		ORDER BY trip_date DESC, departure_time DESC`

	return r.queryTrips(ctx, query, userID, marker)
}

// Save writes the trip if the stored version still matches and bumps it.
func (r *TripRepository) Save(ctx context.Context, trip *domain.Trip) error {
	requests, err := marshalRequests(trip.Requests)
	if err != nil {
		return err
	}

	query := `
		UPDATE trips
		SET departure = $1, arrival = $2, trip_date = $3, departure_time = $4, arrival_time = $5,
		    distance = $6, duration = $7, vehicle = $8, seats = $9, available_seats = $10,
		    status = $11, completion_reason = $12, requests = $13, updated_at = $14,
		    completed_at = $15, version = version + 1
		WHERE id = $16 AND version = $17
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.Departure,
		trip.Arrival,
		trip.Date,
		trip.Time,
		trip.ArrivalTime,
		trip.Distance,
		trip.Duration,
		trip.Vehicle,
		trip.Seats,
		trip.AvailableSeats,
		string(trip.Status),
		string(trip.CompletionReason),
		requests,
		trip.UpdatedAt,
		nullTime(trip.CompletedAt),
		trip.ID,
		trip.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save trip: %w", translate(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return r.missOrConflict(ctx, trip.ID)
	}

	trip.Version++
	return nil
}

// Delete removes the trip if the stored version still matches.
func (r *TripRepository) Delete(ctx context.Context, id string, version int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM trips WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *TripRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

func (r *TripRepository) queryTrips(ctx context.Context, query string, args ...any) ([]*domain.Trip, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var (
		trip        domain.Trip
		status      string
		reason      string
		requests    []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&trip.ID,
		&trip.DriverID,
		&trip.Departure,
		&trip.Arrival,
		&trip.Date,
		&trip.Time,
		&trip.ArrivalTime,
		&trip.Distance,
		&trip.Duration,
		&trip.Vehicle,
		&trip.Seats,
		&trip.AvailableSeats,
		&status,
		&reason,
		&requests,
		&trip.CreatedAt,
		&trip.UpdatedAt,
		&completedAt,
		&trip.Version,
	)
	if err != nil {
		return nil, err
	}

	trip.Date = time.Date(trip.Date.Year(), trip.Date.Month(), trip.Date.Day(), 0, 0, 0, 0, time.UTC)
	trip.Status = domain.TripStatus(status)
	trip.CompletionReason = domain.CompletionReason(reason)
	if completedAt.Valid {
		t := completedAt.Time
		trip.CompletedAt = &t
	}

	var records []requestRecord
	if err := json.Unmarshal(requests, &records); err != nil {
		return nil, fmt.Errorf("failed to decode requests of trip %s: %w", trip.ID, err)
	}
	trip.Requests = make([]domain.TripRequest, 0, len(records))
	for _, rec := range records {
		trip.Requests = append(trip.Requests, domain.TripRequest{
			ID:                           rec.ID,
			PassengerID:                  rec.PassengerID,
			Status:                       domain.RequestStatus(rec.Status),
			CreatedAt:                    rec.CreatedAt,
			DecidedAt:                    rec.DecidedAt,
			IsPickedUp:                   rec.IsPickedUp,
			PickedUpAt:                   rec.PickedUpAt,
			PickupConfirmedByPassenger:   rec.PickupConfirmedByPassenger,
			PickupConfirmedByPassengerAt: rec.PickupConfirmedByPassengerAt,
		})
	}

	return &trip, nil
}

// marshalRequests encodes the requests as a JSON string; lib/pq would send
// a []byte as bytea.
func marshalRequests(reqs []domain.TripRequest) (string, error) {
	records := make([]requestRecord, 0, len(reqs))
	for _, q := range reqs {
		records = append(records, requestRecord{
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
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode requests: %w", err)
	}
	return string(b), nil
}

// passengerMarker builds the JSONB containment probe for a passenger.
func passengerMarker(passengerID string) (string, error) {
	b, err := json.Marshal([]map[string]string{{"passenger_id": passengerID}})
	return string(b), err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
