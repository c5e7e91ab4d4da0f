package application

import (
	"context"

	"github.com/shoply/payments-service/internal/gateway/domain"
	ledgerdomain "github.com/shoply/payments-service/internal/ledger/domain"
	sagadomain "github.com/shoply/payments-service/internal/saga/domain"
)

// SessionStore keeps payment sessions between the initiating request and the
// asynchronous confirmation. Keys are caller-chosen: the M-Pesa
// CheckoutRequestID for push payments, the order id for hosted checkout.
type SessionStore interface {
	Save(ctx context.Context, key string, s domain.PaymentSession) error
	Find(ctx context.Context, key string) (domain.PaymentSession, error)
}

// UserDirectory resolves a bearer token against the user service.
type UserDirectory interface {
	Me(ctx context.Context, token string) (domain.User, error)
}

// SagaRunner is the coordinator entry point both gateway adapters converge on.
type SagaRunner interface {
	Complete(ctx context.Context, ev sagadomain.ConfirmedPayment) sagadomain.Outcome
}

// STKPusher starts an M-Pesa push payment on the customer's phone and
// returns the provider's CheckoutRequestID. Status looks up the outcome of
// an earlier prompt when the callback is late or lost.
type STKPusher interface {
	Push(ctx context.Context, phone string, amountMinor int64, orderID string) (string, error)
	Status(ctx context.Context, checkoutRequestID string) (domain.STKStatus, error)
}

// CheckoutProvider creates a hosted checkout session and returns its id and
// the URL the customer is redirected to.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, orderID string, amountMinor int64, currency string) (id, url string, err error)
}

// LedgerReader serves the transaction read endpoints.
type LedgerReader interface {
	Get(ctx context.Context, id string) (ledgerdomain.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]ledgerdomain.Transaction, error)
}
