package postgres

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoply/payments-service/internal/saga/domain"
	"github.com/shoply/payments-service/pkg/tracing"
)

// AlertStore queues reconciliation alerts as outbox events so the relay
// delivers them to Kafka with at-least-once semantics.
type AlertStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewAlertStore(log *slog.Logger, pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{log: log, pool: pool}
}

func (s *AlertStore) Alert(ctx context.Context, a domain.ReconciliationAlert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"saga", a.OrderID, "ReconciliationRequired", payload, tracing.Traceparent(ctx))
	return err
}
