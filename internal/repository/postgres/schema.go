package postgres

import (
	"context"
	"fmt"
)

// schema mirrors the document layout: trips carry their requests as JSONB
// and the two ledgers get their uniqueness from table constraints.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS trips (
		id                TEXT PRIMARY KEY,
		driver_id         TEXT NOT NULL,
		departure         TEXT NOT NULL,
		arrival           TEXT NOT NULL,
		trip_date         DATE NOT NULL,
		departure_time    TEXT NOT NULL,
		arrival_time      TEXT NOT NULL,
		distance          TEXT NOT NULL DEFAULT '',
		duration          TEXT NOT NULL DEFAULT '',
		vehicle           TEXT NOT NULL DEFAULT '',
		seats             INTEGER NOT NULL,
		available_seats   INTEGER NOT NULL CHECK (available_seats >= 0),
		status            TEXT NOT NULL,
		completion_reason TEXT NOT NULL DEFAULT '',
		requests          JSONB NOT NULL DEFAULT '[]',
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL,
		completed_at      TIMESTAMPTZ,
		version           BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_route ON trips (departure, arrival, trip_date)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_driver ON trips (driver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_requests ON trips USING GIN (requests jsonb_path_ops)`,
	`CREATE TABLE IF NOT EXISTS trip_confirmations (
		id           TEXT PRIMARY KEY,
		trip_id      TEXT NOT NULL,
		user_id      TEXT NOT NULL,
		role         TEXT NOT NULL,
		is_confirmed BOOLEAN NOT NULL,
		confirmed_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uniq_trip_user_role UNIQUE (trip_id, user_id, role)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_confirmations_user ON trip_confirmations (user_id, role)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id              TEXT PRIMARY KEY,
		trip_id         TEXT NOT NULL,
		from_user_id    TEXT NOT NULL,
		from_first_name TEXT NOT NULL DEFAULT '',
		from_last_name  TEXT NOT NULL DEFAULT '',
		to_user_id      TEXT NOT NULL,
		to_first_name   TEXT NOT NULL DEFAULT '',
		to_last_name    TEXT NOT NULL DEFAULT '',
		rating          INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		role            TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		CONSTRAINT uniq_trip_rater_role UNIQUE (trip_id, from_user_id, role)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_to_user ON ratings (to_user_id, role)`,
	`CREATE TABLE IF NOT EXISTS users (
		id               TEXT PRIMARY KEY,
		first_name       TEXT NOT NULL DEFAULT '',
		last_name        TEXT NOT NULL DEFAULT '',
		driver_rating    DOUBLE PRECISION NOT NULL DEFAULT 0,
		passenger_rating DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, q Querier) error {
	for _, stmt := range schema {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
