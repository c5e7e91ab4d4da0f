package domain

import (
	"errors"
	"time"

	ledgerdomain "github.com/shoply/payments-service/internal/ledger/domain"
)

var ErrSessionNotFound = errors.New("payment session not found")

// PaymentSession links an initiated payment to the confirmation that arrives
// later on a separate request (provider callback or success redirect). The
// session id doubles as the saga's idempotency key.
type PaymentSession struct {
	ID          string                     `json:"id"`
	OrderID     string                     `json:"order_id"`
	UserID      string                     `json:"user_id"`
	Token       string                     `json:"token"`
	AmountMinor int64                      `json:"amount_minor"`
	Currency    string                     `json:"currency"`
	Method      ledgerdomain.PaymentMethod `json:"method"`
	PhoneNumber string                     `json:"phone_number,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
}

type User struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}
