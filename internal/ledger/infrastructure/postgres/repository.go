package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoply/payments-service/internal/ledger/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// SaveWithOutbox commits the ledger row and its outbox event in one database
// transaction. A unique-index violation on (order_id, payment_method) or on
// the idempotency key maps to domain.ErrDuplicate.
func (r *Repository) SaveWithOutbox(ctx context.Context, t domain.Transaction, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO transactions
			(id, user_id, order_id, amount_minor, currency, status, payment_method, provider_metadata, idempotency_key, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.UserID, t.OrderID, t.AmountMinor, t.Currency, t.Status, t.Method, t.ProviderMetadata, t.IdempotencyKey, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicate
		}
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"transaction", t.OrderID, eventType, payload, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, user_id, order_id, amount_minor, currency, status, payment_method, provider_metadata, idempotency_key, created_at
		FROM transactions WHERE id=$1`, id)
	return scanTransaction(row)
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, order_id, amount_minor, currency, status, payment_method, provider_metadata, idempotency_key, created_at
		FROM transactions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.OrderID, &t.AmountMinor, &t.Currency, &t.Status, &t.Method, &t.ProviderMetadata, &t.IdempotencyKey, &t.CreatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}
