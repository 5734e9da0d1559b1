package repository

import (
	"context"
	"fmt"
)

const schema = `
CREATE SCHEMA IF NOT EXISTS credit;

CREATE TABLE IF NOT EXISTS credit.profiles (
	id                  TEXT PRIMARY KEY,
	institution_id      TEXT NOT NULL,
	institution_name    TEXT NOT NULL,
	full_name           TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	national_id         TEXT NOT NULL DEFAULT '',
	geo_impossible_kmh  DOUBLE PRECISION,
	geo_very_fast_kmh   DOUBLE PRECISION,
	geo_min_distance_km DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS credit.accounts (
	id              TEXT PRIMARY KEY,
	profile_id      TEXT NOT NULL REFERENCES credit.profiles (id),
	program_label   TEXT NOT NULL DEFAULT '',
	account_type    TEXT NOT NULL,
	status          TEXT NOT NULL,
	credit_limit    NUMERIC(14, 2) NOT NULL DEFAULT 0,
	current_balance NUMERIC(14, 2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS credit.statements (
	id              BIGSERIAL PRIMARY KEY,
	account_id      TEXT NOT NULL REFERENCES credit.accounts (id),
	period_start    DATE NOT NULL,
	period_end      DATE NOT NULL,
	due_date        DATE NOT NULL,
	minimum_due     NUMERIC(14, 2) NOT NULL CHECK (minimum_due >= 0),
	closing_balance NUMERIC(14, 2) NOT NULL,
	closed          BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS statements_one_open ON credit.statements (account_id) WHERE NOT closed;

CREATE TABLE IF NOT EXISTS credit.transactions (
	id         BIGSERIAL PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES credit.accounts (id),
	type       TEXT NOT NULL,
	amount     NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
	posted_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_account_posted ON credit.transactions (account_id, type, posted_at);

CREATE TABLE IF NOT EXISTS credit.credit_records (
	id             UUID PRIMARY KEY,
	hashed_id      TEXT NOT NULL UNIQUE,
	history        JSONB NOT NULL DEFAULT '[]',
	payment_levels JSONB NOT NULL DEFAULT '[]',
	metrics        JSONB NOT NULL DEFAULT '{}',
	final_score    INTEGER NOT NULL,
	version        BIGINT NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS credit.schedules (
	id           BIGSERIAL PRIMARY KEY,
	profile_id   TEXT NOT NULL UNIQUE REFERENCES credit.profiles (id),
	enabled      BOOLEAN NOT NULL DEFAULT FALSE,
	frequency    TEXT NOT NULL DEFAULT 'month',
	auto_consent BOOLEAN NOT NULL DEFAULT FALSE,
	last_run_at  TIMESTAMPTZ
);
`

// EnsureSchema creates the credit schema and tables if they are missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
