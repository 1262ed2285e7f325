package db

import (
	"context"
	"fmt"
)

// EnsureSchema creates the trust schema and tables. Safe to call on every
// startup; uses IF NOT EXISTS throughout. Users and event types are seeded
// out-of-band.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schema = `
CREATE SCHEMA IF NOT EXISTS trust;

CREATE TABLE IF NOT EXISTS trust.users (
    user_id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    initial_score DOUBLE PRECISION NOT NULL DEFAULT 100,
    current_score DOUBLE PRECISION,
    updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS trust.event_types (
    event_type TEXT PRIMARY KEY,
    impact DOUBLE PRECISION
);

-- append-only; never updated or deleted by the service
CREATE TABLE IF NOT EXISTS trust.events (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES trust.users(user_id),
    event_type TEXT,
    impact DOUBLE PRECISION,
    occurred_at TIMESTAMPTZ DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_user_id ON trust.events(user_id);

-- append-only audit trail, one row per computation
CREATE TABLE IF NOT EXISTS trust.score_history (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES trust.users(user_id),
    score DOUBLE PRECISION NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_score_history_user ON trust.score_history(user_id, recorded_at DESC);
`
