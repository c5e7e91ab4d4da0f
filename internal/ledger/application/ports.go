package application

import (
	"context"

	"github.com/shoply/payments-service/internal/ledger/domain"
)

type TransactionRepository interface {
	SaveWithOutbox(ctx context.Context, t domain.Transaction, eventType string, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
}
