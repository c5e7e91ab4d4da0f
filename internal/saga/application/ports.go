package application

import (
	"context"

	invdomain "github.com/shoply/payments-service/internal/inventory/domain"
	ledgerapp "github.com/shoply/payments-service/internal/ledger/application"
	ledgerdomain "github.com/shoply/payments-service/internal/ledger/domain"
	"github.com/shoply/payments-service/internal/saga/domain"
)

type TransactionRecorder interface {
	Record(ctx context.Context, p ledgerapp.RecordParams) (ledgerdomain.Transaction, error)
}

type OrderClient interface {
	MarkPaid(ctx context.Context, orderID, token string) error
	LineItems(ctx context.Context, orderID, token string) ([]domain.LineItem, error)
}

type CartClient interface {
	Clear(ctx context.Context, userID, token string) error
}

type InventoryAdjuster interface {
	Adjust(ctx context.Context, items []domain.LineItem, token string) (invdomain.AdjustResult, error)
}

type NotificationClient interface {
	SendReceipt(ctx context.Context, orderID, token string) error
}

// ReplayGate suppresses replayed gateway confirmations before any work is
// done. It is advisory: the ledger's unique indexes are authoritative.
// Seen only checks; a key is marked once its ledger row exists, so a failed
// record attempt never blocks the retry.
type ReplayGate interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type AlertPublisher interface {
	Alert(ctx context.Context, a domain.ReconciliationAlert) error
}
