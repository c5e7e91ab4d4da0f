package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoply/payments-service/internal/ledger/domain"
)

type fakeRepo struct {
	saved        []domain.Transaction
	eventTypes   []string
	payloads     [][]byte
	traceparents []string
	err          error
}

func (f *fakeRepo) SaveWithOutbox(_ context.Context, t domain.Transaction, eventType string, payload []byte, traceparent string) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, t)
	f.eventTypes = append(f.eventTypes, eventType)
	f.payloads = append(f.payloads, payload)
	f.traceparents = append(f.traceparents, traceparent)
	return nil
}

func (f *fakeRepo) Get(context.Context, string) (domain.Transaction, error) {
	return domain.Transaction{}, nil
}

func (f *fakeRepo) ListByUser(context.Context, string) ([]domain.Transaction, error) {
	return nil, nil
}

func validParams() RecordParams {
	return RecordParams{
		UserID:         "U1",
		OrderID:        "O2",
		AmountMinor:    1000,
		Currency:       "USD",
		Method:         domain.MethodCheckout,
		Metadata:       map[string]string{"session_id": "cs_123"},
		IdempotencyKey: "cs_123",
	}
}

func TestRecordPersistsCompletedTransaction(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	tx, err := svc.Record(context.Background(), validParams())
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.Equal(t, "usd", tx.Currency, "currency is stored lowercase")
	assert.Equal(t, int64(1000), tx.AmountMinor)
	assert.False(t, tx.CreatedAt.IsZero())

	require.Len(t, repo.saved, 1)
	assert.Equal(t, []string{"TransactionRecorded"}, repo.eventTypes)
}

func TestRecordForwardsTraceparentToOutbox(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	p := validParams()
	p.Traceparent = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"

	_, err := svc.Record(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{p.Traceparent}, repo.traceparents)
}

func TestRecordAssignsFreshIDs(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	p1 := validParams()
	p2 := validParams()
	p2.OrderID = "O3"

	tx1, err := svc.Record(context.Background(), p1)
	require.NoError(t, err)
	tx2, err := svc.Record(context.Background(), p2)
	require.NoError(t, err)

	assert.NotEqual(t, tx1.ID, tx2.ID)
}

func TestRecordOutboxPayloadMatchesTransaction(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	tx, err := svc.Record(context.Background(), validParams())
	require.NoError(t, err)

	var event domain.TransactionRecorded
	require.NoError(t, json.Unmarshal(repo.payloads[0], &event))
	assert.Equal(t, tx.ID, event.TransactionID)
	assert.Equal(t, "O2", event.OrderID)
	assert.Equal(t, int64(1000), event.AmountMinor)
	assert.Equal(t, domain.MethodCheckout, event.Method)
}

func TestRecordPropagatesDuplicate(t *testing.T) {
	repo := &fakeRepo{err: domain.ErrDuplicate}
	svc := NewService(repo)

	_, err := svc.Record(context.Background(), validParams())
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestRecordValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RecordParams)
	}{
		{"missing user", func(p *RecordParams) { p.UserID = "" }},
		{"missing order", func(p *RecordParams) { p.OrderID = "" }},
		{"zero amount", func(p *RecordParams) { p.AmountMinor = 0 }},
		{"negative amount", func(p *RecordParams) { p.AmountMinor = -5 }},
		{"bad currency", func(p *RecordParams) { p.Currency = "usdollar" }},
		{"unknown method", func(p *RecordParams) { p.Method = "cash" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := NewService(repo)

			p := validParams()
			tt.mutate(&p)

			_, err := svc.Record(context.Background(), p)
			require.Error(t, err)
			assert.Empty(t, repo.saved, "invalid params must not reach the repository")
		})
	}
}
