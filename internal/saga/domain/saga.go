package domain

import "github.com/shoply/payments-service/internal/ledger/domain"

type State string

const (
	StateStart             State = "start"
	StateOrderFinalized    State = "order_finalized"
	StateCartCleared       State = "cart_cleared"
	StateInventoryAdjusted State = "inventory_adjusted"
	StateNotificationSent  State = "notification_sent"
	StateDone              State = "done"
	StateAborted           State = "aborted"
)

type Step string

const (
	StepRecordTransaction Step = "record_transaction"
	StepFinalizeOrder     Step = "finalize_order"
	StepClearCart         Step = "clear_cart"
	StepAdjustInventory   Step = "adjust_inventory"
	StepNotify            Step = "notify"
)

// ConfirmedPayment is the trigger fact that a gateway has irrevocably
// accepted funds for an order. Both gateway adapters converge on it.
type ConfirmedPayment struct {
	UserID         string
	OrderID        string
	Token          string
	AmountMinor    int64
	Currency       string
	Method         domain.PaymentMethod
	Metadata       map[string]string
	IdempotencyKey string
}

// LineItem is the read-only view of one ordered product, fetched from the
// order service after the order is marked paid.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Status string

const (
	StatusSuccess   Status = "success"
	StatusPartial   Status = "partial_success"
	StatusAborted   Status = "aborted"
	StatusDuplicate Status = "duplicate"
)

// Outcome is the terminal result of one saga invocation.
type Outcome struct {
	Status            Status
	FailedStep        Step
	Cause             error
	InventoryFailures []string
}

func Success() Outcome   { return Outcome{Status: StatusSuccess} }
func Duplicate() Outcome { return Outcome{Status: StatusDuplicate} }

func Aborted(step Step, cause error) Outcome {
	return Outcome{Status: StatusAborted, FailedStep: step, Cause: cause}
}

func Partial(productIDs []string) Outcome {
	return Outcome{Status: StatusPartial, InventoryFailures: productIDs}
}
