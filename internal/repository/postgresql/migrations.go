package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the schema if it does not exist yet. The partial unique
// index on reservations is the server-side guard for the one-active-
// reservation-per-user rule; the composite unique on (establishment_id,
// doc_key) carries the idempotent merge-upsert for retried commits.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		car_plate_number TEXT,
		role TEXT NOT NULL DEFAULT 'driver',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS establishments (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		address TEXT,
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		open_time TEXT,
		close_time TEXT,
		parking_pay DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_slots INTEGER NOT NULL DEFAULT 0,
		floor_details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id SERIAL PRIMARY KEY,
		doc_key TEXT NOT NULL,
		user_email TEXT NOT NULL,
		plate_number TEXT,
		slot_index INTEGER NOT NULL,
		slot_number INTEGER NOT NULL,
		establishment_id UUID NOT NULL REFERENCES establishments(id) ON DELETE CASCADE,
		establishment_name TEXT NOT NULL,
		floor_title TEXT NOT NULL,
		status TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		reserved_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT reservations_establishment_doc_key_key UNIQUE (establishment_id, doc_key)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS reservations_one_active_per_user
		ON reservations (user_email) WHERE status = 'Reserved'`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id SERIAL PRIMARY KEY,
		type TEXT NOT NULL,
		details TEXT NOT NULL,
		establishment_id UUID,
		establishment_name TEXT NOT NULL,
		user_email TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		event_time TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_email_idx ON notifications (user_email, read)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
