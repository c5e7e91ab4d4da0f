package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	invdomain "github.com/shoply/payments-service/internal/inventory/domain"
	ledgerapp "github.com/shoply/payments-service/internal/ledger/application"
	ledgerdomain "github.com/shoply/payments-service/internal/ledger/domain"
	"github.com/shoply/payments-service/internal/saga/domain"
)

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *callRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeLedger struct {
	rec    *callRecorder
	err    error
	params []ledgerapp.RecordParams
}

func (f *fakeLedger) Record(_ context.Context, p ledgerapp.RecordParams) (ledgerdomain.Transaction, error) {
	f.rec.record("record")
	f.params = append(f.params, p)
	if f.err != nil {
		return ledgerdomain.Transaction{}, f.err
	}
	return ledgerdomain.Transaction{ID: "tx-1", OrderID: p.OrderID}, nil
}

type fakeOrders struct {
	rec      *callRecorder
	markErr  error
	itemsErr error
	items    []domain.LineItem
}

func (f *fakeOrders) MarkPaid(context.Context, string, string) error {
	f.rec.record("mark_paid")
	return f.markErr
}

func (f *fakeOrders) LineItems(context.Context, string, string) ([]domain.LineItem, error) {
	f.rec.record("line_items")
	return f.items, f.itemsErr
}

type fakeCarts struct {
	rec *callRecorder
	err error
}

func (f *fakeCarts) Clear(context.Context, string, string) error {
	f.rec.record("clear_cart")
	return f.err
}

type fakeInventory struct {
	rec *callRecorder
	res invdomain.AdjustResult
	err error
}

func (f *fakeInventory) Adjust(context.Context, []domain.LineItem, string) (invdomain.AdjustResult, error) {
	f.rec.record("adjust")
	return f.res, f.err
}

type fakeNotifier struct {
	rec *callRecorder
	err error
}

func (f *fakeNotifier) SendReceipt(context.Context, string, string) error {
	f.rec.record("notify")
	return f.err
}

type fakeGate struct {
	rec  *callRecorder
	keys map[string]bool
	err  error
}

func (f *fakeGate) Seen(_ context.Context, key string) (bool, error) {
	f.rec.record("gate")
	if f.err != nil {
		return false, f.err
	}
	return f.keys[key], nil
}

func (f *fakeGate) Mark(_ context.Context, key string) error {
	f.rec.record("gate_mark")
	if f.err != nil {
		return f.err
	}
	f.keys[key] = true
	return nil
}

type fakeAlerts struct {
	rec    *callRecorder
	alerts []domain.ReconciliationAlert
}

func (f *fakeAlerts) Alert(_ context.Context, a domain.ReconciliationAlert) error {
	f.rec.record("alert")
	f.alerts = append(f.alerts, a)
	return nil
}

type fixture struct {
	rec       *callRecorder
	ledger    *fakeLedger
	orders    *fakeOrders
	carts     *fakeCarts
	inventory *fakeInventory
	notifier  *fakeNotifier
	gate      *fakeGate
	alerts    *fakeAlerts
	coord     *Coordinator
}

func newFixture() *fixture {
	rec := &callRecorder{}
	f := &fixture{
		rec:    rec,
		ledger: &fakeLedger{rec: rec},
		orders: &fakeOrders{rec: rec, items: []domain.LineItem{
			{ProductID: "P1", Quantity: 2},
			{ProductID: "P2", Quantity: 1},
		}},
		carts:     &fakeCarts{rec: rec},
		inventory: &fakeInventory{rec: rec, res: invdomain.AdjustResult{Adjusted: []string{"P1", "P2"}}},
		notifier:  &fakeNotifier{rec: rec},
		gate:      &fakeGate{rec: rec, keys: map[string]bool{}},
		alerts:    &fakeAlerts{rec: rec},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.coord = NewCoordinator(log, f.ledger, f.orders, f.carts, f.inventory, f.notifier, f.gate, f.alerts)
	return f
}

func confirmed() domain.ConfirmedPayment {
	return domain.ConfirmedPayment{
		UserID:         "U1",
		OrderID:        "O2",
		Token:          "tok",
		AmountMinor:    1000,
		Currency:       "usd",
		Method:         ledgerdomain.MethodCheckout,
		IdempotencyKey: "cs_123",
	}
}

func TestCompleteSuccess(t *testing.T) {
	f := newFixture()

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.Equal(t, []string{"gate", "record", "gate_mark", "mark_paid", "line_items", "clear_cart", "adjust", "notify"}, f.rec.all())
	assert.Empty(t, f.alerts.alerts)

	require.Len(t, f.ledger.params, 1)
	p := f.ledger.params[0]
	assert.Equal(t, "O2", p.OrderID)
	assert.Equal(t, int64(1000), p.AmountMinor)
	assert.Equal(t, "usd", p.Currency)
}

func TestLedgerFailureAbortsBeforeAnyDownstreamCall(t *testing.T) {
	f := newFixture()
	f.ledger.err = errors.New("connection refused")

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusAborted, outcome.Status)
	assert.Equal(t, domain.StepRecordTransaction, outcome.FailedStep)
	assert.Equal(t, []string{"gate", "record"}, f.rec.all())
}

func TestOrderFinalizeFailureAborts(t *testing.T) {
	f := newFixture()
	f.orders.markErr = &domain.UpstreamError{Service: "order", Status: 500}

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusAborted, outcome.Status)
	assert.Equal(t, domain.StepFinalizeOrder, outcome.FailedStep)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, outcome.Cause, &upstream)
	assert.Equal(t, 500, upstream.Status)

	assert.Equal(t, []string{"gate", "record", "gate_mark", "mark_paid", "alert"}, f.rec.all())
	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, domain.StepFinalizeOrder, f.alerts.alerts[0].Step)
}

func TestCartClearFailureAborts(t *testing.T) {
	f := newFixture()
	f.carts.err = &domain.UpstreamError{Service: "cart", Status: 503}

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusAborted, outcome.Status)
	assert.Equal(t, domain.StepClearCart, outcome.FailedStep)
	assert.NotContains(t, f.rec.all(), "adjust")
	assert.NotContains(t, f.rec.all(), "notify")
}

func TestPartialInventoryFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.inventory.res = invdomain.AdjustResult{Adjusted: []string{"P1"}, Failed: []string{"P2"}}
	f.inventory.err = &invdomain.PartialError{ProductIDs: []string{"P2"}}

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusPartial, outcome.Status)
	assert.Equal(t, []string{"P2"}, outcome.InventoryFailures)

	// Notification still fires after a partial failure.
	assert.Contains(t, f.rec.all(), "notify")

	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, domain.StepAdjustInventory, f.alerts.alerts[0].Step)
	assert.Equal(t, []string{"P2"}, f.alerts.alerts[0].ProductIDs)
}

func TestNotificationFailureDoesNotFailSaga(t *testing.T) {
	f := newFixture()
	f.notifier.err = &domain.UpstreamError{Service: "notification", Status: 500}

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, domain.StepNotify, f.alerts.alerts[0].Step)
}

func TestReplayedConfirmationSuppressedByGate(t *testing.T) {
	f := newFixture()
	f.gate.keys["cs_123"] = true

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusDuplicate, outcome.Status)
	assert.Equal(t, []string{"gate"}, f.rec.all())
}

func TestReplayedConfirmationSuppressedByLedgerIndex(t *testing.T) {
	f := newFixture()
	f.ledger.err = ledgerdomain.ErrDuplicate

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusDuplicate, outcome.Status)
	assert.Equal(t, []string{"gate", "record", "gate_mark"}, f.rec.all())
}

func TestFailedRecordLeavesGateUnmarked(t *testing.T) {
	f := newFixture()
	f.ledger.err = errors.New("connection refused")

	outcome := f.coord.Complete(context.Background(), confirmed())
	require.Equal(t, domain.StatusAborted, outcome.Status)
	assert.False(t, f.gate.keys["cs_123"], "a failed ledger write must not consume the idempotency key")

	// The gateway retries the confirmation once the database recovers; the
	// retry must reach the ledger instead of being treated as a replay.
	f.ledger.err = nil
	outcome = f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.Len(t, f.ledger.params, 2)
	assert.True(t, f.gate.keys["cs_123"])
}

func TestGateFailureFallsThroughToLedger(t *testing.T) {
	f := newFixture()
	f.gate.err = errors.New("redis down")

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.Contains(t, f.rec.all(), "record")
}

func TestRecordCarriesTraceContext(t *testing.T) {
	f := newFixture()

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	outcome := f.coord.Complete(ctx, confirmed())
	require.Equal(t, domain.StatusSuccess, outcome.Status)

	require.Len(t, f.ledger.params, 1)
	assert.Contains(t, f.ledger.params[0].Traceparent, traceID.String(),
		"the outbox event must carry the confirmation's trace context")
}

func TestEmptyOrderSkipsInventoryAdjustment(t *testing.T) {
	f := newFixture()
	f.orders.items = nil

	outcome := f.coord.Complete(context.Background(), confirmed())

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.NotContains(t, f.rec.all(), "adjust")
}
