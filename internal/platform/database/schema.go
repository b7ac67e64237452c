package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS admin_users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id BIGSERIAL PRIMARY KEY,
		full_name TEXT NOT NULL,
		image TEXT,
		birth_date DATE,
		degree TEXT,
		position TEXT,
		election_time TEXT,
		description TEXT,
		from_api BOOLEAN NOT NULL DEFAULT FALSE,
		external_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		link TEXT NOT NULL UNIQUE,
		duration_sec INT NOT NULL DEFAULT 15,
		status TEXT NOT NULL DEFAULT 'pending',
		start_time TIMESTAMPTZ,
		end_time TIMESTAMPTZ,
		current_index INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS event_candidates (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		candidate_id BIGINT NOT NULL REFERENCES candidates(id),
		sort_order INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		candidate_group TEXT,
		timer_started_at TIMESTAMPTZ,
		participant_count BIGINT NOT NULL DEFAULT 0,
		UNIQUE (event_id, candidate_id)
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		event_candidate_id BIGINT NOT NULL REFERENCES event_candidates(id) ON DELETE CASCADE,
		candidate_id BIGINT NOT NULL REFERENCES candidates(id),
		ip_address TEXT NOT NULL,
		device_id TEXT,
		nonce TEXT NOT NULL,
		choice TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// The dedup guarantee lives here: concurrent identical inserts race on
	// this index and all but one fail with a unique violation.
	`CREATE UNIQUE INDEX IF NOT EXISTS votes_voter_identity_idx
		ON votes (event_id, candidate_id, ip_address, COALESCE(device_id, ''))`,
	`CREATE TABLE IF NOT EXISTS display_states (
		event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
		current_candidate_id BIGINT REFERENCES candidates(id),
		countdown_until TIMESTAMPTZ
	)`,
}

// Migrate bootstraps the schema. All statements are idempotent so it is safe
// to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
