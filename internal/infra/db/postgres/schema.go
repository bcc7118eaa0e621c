package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Schema is the full DDL, idempotent. Applied by cmd/seed and by the
// integration test harness.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		role       TEXT NOT NULL DEFAULT 'USER',
		enabled    BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS strategies (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		enabled    BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS payments (
		id                   TEXT PRIMARY KEY,
		user_id              TEXT NOT NULL REFERENCES users(id),
		strategy_id          TEXT NOT NULL REFERENCES strategies(id),
		plan                 TEXT NOT NULL,
		capital              DOUBLE PRECISION NOT NULL,
		payable              DOUBLE PRECISION NOT NULL,
		payable_inr          DOUBLE PRECISION NOT NULL DEFAULT 0,
		fx_rate              DOUBLE PRECISION NOT NULL DEFAULT 0,
		method               TEXT NOT NULL,
		broker_platform      TEXT,
		broker_account_id    TEXT,
		broker_password      TEXT,
		broker_server        TEXT,
		external_tx_id       TEXT,
		proof_url            TEXT,
		is_renewal           BOOLEAN NOT NULL DEFAULT FALSE,
		outcome              TEXT NOT NULL DEFAULT 'pending',
		failure_code         TEXT,
		rejection_reason     TEXT,
		admin_message        TEXT,
		admin_message_status TEXT,
		verified_by          TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		approved_at          TIMESTAMPTZ,
		reminder_sent_at     TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments (user_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_payments_open ON payments (created_at) WHERE outcome IN ('pending','in_process');`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id    TEXT PRIMARY KEY REFERENCES users(id),
		balance    DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS wallet_entries (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		kind       TEXT NOT NULL,
		amount     DOUBLE PRECISION NOT NULL,
		payment_id TEXT,
		ref        TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_entries_user ON wallet_entries (user_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS running_strategies (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL REFERENCES users(id),
		strategy_id       TEXT NOT NULL REFERENCES strategies(id),
		payment_id        TEXT NOT NULL,
		broker_platform   TEXT NOT NULL,
		broker_account_id TEXT NOT NULL,
		broker_password   TEXT NOT NULL,
		broker_server     TEXT NOT NULL,
		execution_status  TEXT NOT NULL DEFAULT 'in-process',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, strategy_id)
	);`,
	`CREATE TABLE IF NOT EXISTS modification_requests (
		id                  TEXT PRIMARY KEY,
		running_strategy_id TEXT NOT NULL REFERENCES running_strategies(id),
		user_id             TEXT NOT NULL REFERENCES users(id),
		broker_platform     TEXT NOT NULL,
		broker_account_id   TEXT NOT NULL,
		broker_password     TEXT NOT NULL,
		broker_server       TEXT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'pending',
		resolved_by         TEXT,
		resolved_at         TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

// EnsureSchema applies every DDL statement in order.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
