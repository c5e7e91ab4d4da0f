package application

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	invdomain "github.com/shoply/payments-service/internal/inventory/domain"
	ledgerapp "github.com/shoply/payments-service/internal/ledger/application"
	ledgerdomain "github.com/shoply/payments-service/internal/ledger/domain"
	"github.com/shoply/payments-service/internal/saga/domain"
	"github.com/shoply/payments-service/pkg/tracing"
)

// Coordinator drives the post-payment fulfillment workflow. The steps run
// strictly in order and there is no compensation: once the order is marked
// paid, a later failure leaves state the operator must reconcile, so every
// abort and partial failure raises a reconciliation alert.
type Coordinator struct {
	log       *slog.Logger
	ledger    TransactionRecorder
	orders    OrderClient
	carts     CartClient
	inventory InventoryAdjuster
	notifier  NotificationClient
	gate      ReplayGate
	alerts    AlertPublisher
	tracer    trace.Tracer
}

func NewCoordinator(
	log *slog.Logger,
	ledger TransactionRecorder,
	orders OrderClient,
	carts CartClient,
	inventory InventoryAdjuster,
	notifier NotificationClient,
	gate ReplayGate,
	alerts AlertPublisher,
) *Coordinator {
	return &Coordinator{
		log:       log,
		ledger:    ledger,
		orders:    orders,
		carts:     carts,
		inventory: inventory,
		notifier:  notifier,
		gate:      gate,
		alerts:    alerts,
		tracer:    otel.Tracer("payment-saga"),
	}
}

// Complete runs the saga for one confirmed payment. Invocations are
// independent; two orders completing payment at the same time share nothing
// but the product stock counters downstream.
func (c *Coordinator) Complete(ctx context.Context, ev domain.ConfirmedPayment) domain.Outcome {
	ctx, span := c.tracer.Start(ctx, "PaymentSaga")
	defer span.End()

	log := c.log.With("order_id", ev.OrderID, "user_id", ev.UserID, "method", ev.Method)

	if ev.IdempotencyKey != "" {
		seen, err := c.gate.Seen(ctx, ev.IdempotencyKey)
		if err != nil {
			log.Warn("replay gate unavailable, relying on ledger index", "err", err)
		} else if seen {
			log.Info("confirmation replay suppressed", "idempotency_key", ev.IdempotencyKey)
			return domain.Duplicate()
		}
	}

	// The ledger row must exist before any remote call: the customer is
	// already charged, and losing the record would leave the payment
	// unaccounted for.
	_, err := c.ledger.Record(ctx, ledgerapp.RecordParams{
		UserID:         ev.UserID,
		OrderID:        ev.OrderID,
		AmountMinor:    ev.AmountMinor,
		Currency:       ev.Currency,
		Method:         ev.Method,
		Metadata:       ev.Metadata,
		IdempotencyKey: ev.IdempotencyKey,
		Traceparent:    tracing.Traceparent(ctx),
	})
	if errors.Is(err, ledgerdomain.ErrDuplicate) {
		log.Info("transaction already recorded, skipping fulfillment")
		c.markReplay(ctx, log, ev.IdempotencyKey)
		return domain.Duplicate()
	}
	if err != nil {
		// Nothing downstream is called: no transaction exists to
		// reconcile against, and the alert store shares the failed
		// database anyway. The gate key stays unmarked so the gateway's
		// retry reaches the ledger again.
		log.Error("ledger write failed, saga aborted", "err", err)
		return domain.Aborted(domain.StepRecordTransaction, err)
	}
	c.markReplay(ctx, log, ev.IdempotencyKey)

	if err := c.orders.MarkPaid(ctx, ev.OrderID, ev.Token); err != nil {
		return c.abort(ctx, log, ev, domain.StepFinalizeOrder, err)
	}
	items, err := c.orders.LineItems(ctx, ev.OrderID, ev.Token)
	if err != nil {
		return c.abort(ctx, log, ev, domain.StepFinalizeOrder, err)
	}

	if err := c.carts.Clear(ctx, ev.UserID, ev.Token); err != nil {
		return c.abort(ctx, log, ev, domain.StepClearCart, err)
	}

	var inventoryFailures []string
	if len(items) > 0 {
		_, err = c.inventory.Adjust(ctx, items, ev.Token)
		var partial *invdomain.PartialError
		if errors.As(err, &partial) {
			// Non-fatal: some stock has already changed state, so the
			// remainder of the saga still runs, but the failed subset
			// needs operator attention.
			inventoryFailures = partial.ProductIDs
			c.raise(ctx, log, ev, domain.StepAdjustInventory, err.Error(), partial.ProductIDs)
		} else if err != nil {
			return c.abort(ctx, log, ev, domain.StepAdjustInventory, err)
		}
	}

	if err := c.notifier.SendReceipt(ctx, ev.OrderID, ev.Token); err != nil {
		// Receipt delivery has no bearing on money or stock; log it for
		// retry instead of failing the saga.
		log.Warn("receipt notification failed", "err", err)
		c.raise(ctx, log, ev, domain.StepNotify, err.Error(), nil)
	}

	if len(inventoryFailures) > 0 {
		log.Info("saga finished with partial inventory failure", "failed_products", inventoryFailures)
		return domain.Partial(inventoryFailures)
	}
	log.Info("saga completed")
	return domain.Success()
}

// markReplay sets the gate key. Best effort: the ledger index still catches
// a replay if redis is unavailable.
func (c *Coordinator) markReplay(ctx context.Context, log *slog.Logger, key string) {
	if key == "" {
		return
	}
	if err := c.gate.Mark(ctx, key); err != nil {
		log.Warn("replay gate mark failed", "err", err)
	}
}

func (c *Coordinator) abort(ctx context.Context, log *slog.Logger, ev domain.ConfirmedPayment, step domain.Step, cause error) domain.Outcome {
	log.Error("saga aborted, payment recorded but fulfillment incomplete", "step", step, "err", cause)
	c.raise(ctx, log, ev, step, cause.Error(), nil)
	return domain.Aborted(step, cause)
}

func (c *Coordinator) raise(ctx context.Context, log *slog.Logger, ev domain.ConfirmedPayment, step domain.Step, reason string, productIDs []string) {
	alert := domain.ReconciliationAlert{
		OrderID:    ev.OrderID,
		UserID:     ev.UserID,
		Step:       step,
		Reason:     reason,
		ProductIDs: productIDs,
	}
	if err := c.alerts.Alert(ctx, alert); err != nil {
		log.Error("reconciliation alert not queued", "step", step, "err", err)
	}
}
