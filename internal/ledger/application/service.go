package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoply/payments-service/internal/ledger/domain"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO 4217 code")
)

type RecordParams struct {
	UserID         string
	OrderID        string
	AmountMinor    int64
	Currency       string
	Method         domain.PaymentMethod
	Metadata       map[string]string
	IdempotencyKey string
	Traceparent    string
}

type Service struct {
	repo TransactionRepository
}

func NewService(repo TransactionRepository) *Service {
	return &Service{repo: repo}
}

// Record persists one ledger row for a confirmed payment. It is the only
// local write the saga performs and must succeed before any downstream
// service is called. A replayed confirmation returns domain.ErrDuplicate.
func (s *Service) Record(ctx context.Context, p RecordParams) (domain.Transaction, error) {
	if err := p.validate(); err != nil {
		return domain.Transaction{}, err
	}

	t := domain.Transaction{
		ID:               uuid.NewString(),
		UserID:           p.UserID,
		OrderID:          p.OrderID,
		AmountMinor:      p.AmountMinor,
		Currency:         strings.ToLower(p.Currency),
		Status:           domain.StatusCompleted,
		Method:           p.Method,
		ProviderMetadata: p.Metadata,
		IdempotencyKey:   p.IdempotencyKey,
		CreatedAt:        time.Now().UTC(),
	}

	event := domain.TransactionRecorded{
		TransactionID: t.ID,
		OrderID:       t.OrderID,
		UserID:        t.UserID,
		AmountMinor:   t.AmountMinor,
		Currency:      t.Currency,
		Method:        t.Method,
		Metadata:      t.ProviderMetadata,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := s.repo.SaveWithOutbox(ctx, t, "TransactionRecorded", payload, p.Traceparent); err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (p RecordParams) validate() error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if p.OrderID == "" {
		return fmt.Errorf("order id is required")
	}
	if p.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if len(p.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if p.Method != domain.MethodMpesa && p.Method != domain.MethodCheckout {
		return fmt.Errorf("unknown payment method %q", p.Method)
	}
	return nil
}
