package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the ledger and outbox tables if they do not exist.
// The unique indexes are what make a replayed gateway confirmation safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			amount_minor BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			provider_metadata JSONB,
			idempotency_key TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS transactions_order_method_idx
			ON transactions (order_id, payment_method)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS transactions_idempotency_key_idx
			ON transactions (idempotency_key) WHERE idempotency_key <> ''`,
		`CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload JSONB NOT NULL,
			traceparent TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			relay_id TEXT,
			lease_until TIMESTAMPTZ,
			retry_count INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (id) WHERE status = 'pending'`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
