package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/shoply/payments-service/internal/gateway/application"
	"github.com/shoply/payments-service/internal/gateway/domain"
	ledgerdomain "github.com/shoply/payments-service/internal/ledger/domain"
	sagadomain "github.com/shoply/payments-service/internal/saga/domain"
	"github.com/shoply/payments-service/pkg/policy"
)

// Handler exposes the two gateway-facing entry points plus the transaction
// read endpoints. Per the error-propagation contract, a caller only ever
// sees the result of the step it triggered: saga failures after the payment
// is confirmed are logged and alerted, never returned to the customer.
type Handler struct {
	log      *slog.Logger
	runner   application.SagaRunner
	sessions application.SessionStore
	users    application.UserDirectory
	pusher   application.STKPusher
	provider application.CheckoutProvider
	ledger   application.LedgerReader
	tracer   trace.Tracer
}

func NewHandler(
	log *slog.Logger,
	runner application.SagaRunner,
	sessions application.SessionStore,
	users application.UserDirectory,
	pusher application.STKPusher,
	provider application.CheckoutProvider,
	ledger application.LedgerReader,
) *Handler {
	return &Handler{
		log:      log,
		runner:   runner,
		sessions: sessions,
		users:    users,
		pusher:   pusher,
		provider: provider,
		ledger:   ledger,
		tracer:   otel.Tracer("payments-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Provider-facing: Daraja calls this, there is no user token.
	r.Post("/stkPushCallback", h.stkPushCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticated)
		r.With(h.restrict(policy.ActionReadOwnTransactions)).Get("/transactions", h.listTransactions)
		r.With(h.restrict(policy.ActionReadOwnTransactions)).Get("/transactions/{id}", h.getTransaction)
		r.With(h.restrict(policy.ActionInitiatePayment)).Post("/stkPush", h.stkPush)
		r.With(h.restrict(policy.ActionInitiatePayment)).Post("/confirmPayment/{checkoutRequestId}", h.confirmPayment)
		r.With(h.restrict(policy.ActionInitiatePayment)).Post("/checkout/{orderId}", h.createCheckout)
		r.Get("/checkout/success/{orderId}", h.checkoutSuccess)
		r.Get("/checkout/cancel", h.checkoutCancel)
	})
	return r
}

type stkPushReq struct {
	OrderID     string `json:"order_id"`
	Phone       string `json:"phone"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

func (h *Handler) stkPush(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "InitiateSTKPush")
	defer span.End()

	var req stkPushReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" || req.Phone == "" || req.AmountMinor <= 0 {
		respondErr(w, http.StatusBadRequest, "order_id, phone and a positive amount_minor are required")
		return
	}
	// Daraja only takes whole currency units, so a fractional amount would
	// silently undercharge the customer.
	if req.AmountMinor%100 != 0 {
		respondErr(w, http.StatusBadRequest, "amount_minor must be a whole number of currency units")
		return
	}
	if req.Currency == "" {
		req.Currency = "kes"
	}

	checkoutRequestID, err := h.pusher.Push(ctx, req.Phone, req.AmountMinor, req.OrderID)
	if err != nil {
		h.log.Error("stk push initiation failed", "order_id", req.OrderID, "err", err)
		respondErr(w, http.StatusBadGateway, "failed to initiate payment, try again")
		return
	}

	user, _ := userFrom(ctx)
	session := domain.PaymentSession{
		ID:          checkoutRequestID,
		OrderID:     req.OrderID,
		UserID:      user.ID,
		Token:       tokenFrom(ctx),
		AmountMinor: req.AmountMinor,
		Currency:    strings.ToLower(req.Currency),
		Method:      ledgerdomain.MethodMpesa,
		PhoneNumber: req.Phone,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.sessions.Save(ctx, checkoutRequestID, session); err != nil {
		h.log.Error("payment session not saved", "order_id", req.OrderID, "err", err)
		respondErr(w, http.StatusInternalServerError, "failed to initiate payment, try again")
		return
	}

	respond(w, http.StatusCreated, map[string]string{"checkout_request_id": checkoutRequestID})
}

// confirmPayment asks the provider for the outcome of an earlier STK prompt.
// Read-only: the saga still runs off the callback, never off this query.
func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ConfirmSTKPush")
	defer span.End()

	checkoutRequestID := chi.URLParam(r, "checkoutRequestId")
	status, err := h.pusher.Status(ctx, checkoutRequestID)
	if err != nil {
		h.log.Error("stk push status query failed", "checkout_request_id", checkoutRequestID, "err", err)
		respondErr(w, http.StatusBadGateway, "failed to query payment status, try again")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"paid":        status.Paid(),
		"result_code": status.ResultCode,
		"result_desc": status.ResultDesc,
	})
}

func (h *Handler) stkPushCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "STKPushCallback")
	defer span.End()

	var env domain.STKCallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid callback body")
		return
	}
	cb := env.Body.StkCallback

	if cb.ResultCode != 0 {
		// Customer cancelled or the charge failed: nothing was taken,
		// nothing is persisted.
		h.log.Info("stk push unsuccessful", "checkout_request_id", cb.CheckoutRequestID,
			"result_code", cb.ResultCode, "result_desc", cb.ResultDesc)
		respond(w, http.StatusOK, map[string]string{"status": "acknowledged"})
		return
	}

	session, err := h.sessions.Find(ctx, cb.CheckoutRequestID)
	if err != nil {
		// Money has moved but we cannot match it to an order. Operators
		// must reconcile from the provider statement; the provider still
		// gets an ack so it stops retrying.
		h.log.Error("confirmed payment with no matching session",
			"checkout_request_id", cb.CheckoutRequestID, "err", err)
		respond(w, http.StatusOK, map[string]string{"status": "acknowledged"})
		return
	}

	amount := session.AmountMinor
	if cbAmount, err := cb.AmountMinor(); err == nil && cbAmount > 0 {
		amount = cbAmount
	}

	ev := sagadomain.ConfirmedPayment{
		UserID:      session.UserID,
		OrderID:     session.OrderID,
		Token:       session.Token,
		AmountMinor: amount,
		Currency:    session.Currency,
		Method:      ledgerdomain.MethodMpesa,
		Metadata: map[string]string{
			"merchant_request_id": cb.MerchantRequestID,
			"checkout_request_id": cb.CheckoutRequestID,
			"receipt_number":      cb.MetaValue("MpesaReceiptNumber"),
			"phone_number":        cb.MetaValue("PhoneNumber"),
			"transaction_date":    cb.MetaValue("TransactionDate"),
		},
		IdempotencyKey: cb.CheckoutRequestID,
	}

	outcome := h.runner.Complete(ctx, ev)
	h.logOutcome(ev, outcome)

	// The ack covers only the callback receipt; fulfillment problems are an
	// operator concern, not the provider's.
	respond(w, http.StatusOK, map[string]string{"status": "success"})
}

type createCheckoutReq struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

func (h *Handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCheckoutSession")
	defer span.End()

	orderID := chi.URLParam(r, "orderId")
	var req createCheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AmountMinor <= 0 || len(req.Currency) != 3 {
		respondErr(w, http.StatusBadRequest, "a positive amount_minor and a 3-letter currency are required")
		return
	}

	sessionID, checkoutURL, err := h.provider.CreateSession(ctx, orderID, req.AmountMinor, strings.ToLower(req.Currency))
	if err != nil {
		h.log.Error("checkout session creation failed", "order_id", orderID, "err", err)
		respondErr(w, http.StatusBadGateway, "failed to create checkout session, try again")
		return
	}

	user, _ := userFrom(ctx)
	session := domain.PaymentSession{
		ID:          sessionID,
		OrderID:     orderID,
		UserID:      user.ID,
		Token:       tokenFrom(ctx),
		AmountMinor: req.AmountMinor,
		Currency:    strings.ToLower(req.Currency),
		Method:      ledgerdomain.MethodCheckout,
		CreatedAt:   time.Now().UTC(),
	}
	// Keyed by order id: the success redirect carries nothing else.
	if err := h.sessions.Save(ctx, orderID, session); err != nil {
		h.log.Error("payment session not saved", "order_id", orderID, "err", err)
		respondErr(w, http.StatusInternalServerError, "failed to create checkout session, try again")
		return
	}

	respond(w, http.StatusCreated, map[string]string{"session_id": sessionID, "checkout_url": checkoutURL})
}

func (h *Handler) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CheckoutSuccess")
	defer span.End()

	orderID := chi.URLParam(r, "orderId")
	session, err := h.sessions.Find(ctx, orderID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		respondErr(w, http.StatusNotFound, "no checkout session for this order")
		return
	}
	if err != nil {
		h.log.Error("session lookup failed", "order_id", orderID, "err", err)
		respondErr(w, http.StatusInternalServerError, "failed to confirm payment, try again")
		return
	}

	token := tokenFrom(ctx)
	if token == "" {
		token = session.Token
	}
	ev := sagadomain.ConfirmedPayment{
		UserID:      session.UserID,
		OrderID:     session.OrderID,
		Token:       token,
		AmountMinor: session.AmountMinor,
		Currency:    session.Currency,
		Method:      ledgerdomain.MethodCheckout,
		Metadata: map[string]string{
			"session_id": session.ID,
		},
		IdempotencyKey: session.ID,
	}

	outcome := h.runner.Complete(ctx, ev)
	h.logOutcome(ev, outcome)

	respond(w, http.StatusOK, map[string]string{"status": "success", "order_id": orderID})
}

func (h *Handler) checkoutCancel(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFrom(ctx)

	userID := user.ID
	if other := r.URL.Query().Get("user_id"); other != "" && other != user.ID {
		if !policy.CanAccess(user.Role, policy.ActionReadAllTransactions) {
			respondErr(w, http.StatusForbidden, "you do not have permission to perform this action")
			return
		}
		userID = other
	}

	txs, err := h.ledger.ListByUser(ctx, userID)
	if err != nil {
		h.log.Error("transaction list failed", "user_id", userID, "err", err)
		respondErr(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}
	respond(w, http.StatusOK, map[string]any{"result": len(txs), "transactions": txs})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFrom(ctx)

	tx, err := h.ledger.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusNotFound, "transaction not found")
		return
	}
	if tx.UserID != user.ID && !policy.CanAccess(user.Role, policy.ActionReadAllTransactions) {
		respondErr(w, http.StatusForbidden, "you do not have permission to perform this action")
		return
	}
	respond(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (h *Handler) logOutcome(ev sagadomain.ConfirmedPayment, outcome sagadomain.Outcome) {
	switch outcome.Status {
	case sagadomain.StatusAborted:
		h.log.Error("payment saga aborted", "order_id", ev.OrderID,
			"step", outcome.FailedStep, "cause", outcome.Cause)
	case sagadomain.StatusPartial:
		h.log.Warn("payment saga finished with partial inventory failure",
			"order_id", ev.OrderID, "failed_products", outcome.InventoryFailures)
	case sagadomain.StatusDuplicate:
		h.log.Info("duplicate payment confirmation ignored", "order_id", ev.OrderID)
	default:
		h.log.Info("payment saga completed", "order_id", ev.OrderID)
	}
}

type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Status: "success", Data: data})
}

func respondErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": msg})
}
