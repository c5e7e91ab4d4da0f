package domain

import (
	"errors"
	"time"
)

type Status string

const (
	// StatusCompleted is the only status the ledger records: failed gateway
	// confirmations are never persisted.
	StatusCompleted Status = "completed"
)

type PaymentMethod string

const (
	MethodMpesa    PaymentMethod = "mpesa"
	MethodCheckout PaymentMethod = "checkout"
)

// ErrDuplicate is returned when a transaction for the same
// (order_id, payment_method) pair or the same idempotency key already exists.
var ErrDuplicate = errors.New("transaction already recorded")

// Transaction is the immutable ledger record of a confirmed payment.
// It is created exactly once per confirmation and never mutated.
type Transaction struct {
	ID               string
	UserID           string
	OrderID          string
	AmountMinor      int64
	Currency         string
	Status           Status
	Method           PaymentMethod
	ProviderMetadata map[string]string
	IdempotencyKey   string
	CreatedAt        time.Time
}
