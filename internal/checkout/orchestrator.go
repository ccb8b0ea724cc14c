package checkout

import (
	"context"
	"errors"
	"sync"

	"solshop-be/internal/cart"
	"solshop-be/internal/currency"
	"solshop-be/internal/logger"
	"solshop-be/internal/order"
	"solshop-be/internal/payment"

	"go.uber.org/zap"
)

// Step is the checkout flow position for one user.
type Step string

const (
	StepShipping   Step = "shipping"
	StepPayment    Step = "payment"
	StepProcessing Step = "processing"
	StepSuccess    Step = "success"
)

// State is a read-only snapshot of a user's checkout flow for UI
// collaborators.
type State struct {
	Step      Step
	Address   *order.ShippingAddress
	OrderID   string
	TxHash    string
	LastError string
}

// Submitter is the payment primitive the orchestrator drives. Satisfied
// by *payment.Submitter.
type Submitter interface {
	Submit(ctx context.Context, params payment.SubmitParams) (*payment.Receipt, error)
}

type flow struct {
	step      Step
	address   *order.ShippingAddress
	orderID   string
	txHash    string
	lastError string
}

// Orchestrator drives the checkout pipeline: cart -> order (pending) ->
// payment -> order (paid) -> cart cleared. One flow per user key; the
// UI presents at most one checkout surface per session.
type Orchestrator struct {
	mu    sync.Mutex
	flows map[string]*flow

	carts     cart.Service
	orders    order.Service
	submitter Submitter
	payee     string
}

func NewOrchestrator(carts cart.Service, orders order.Service, submitter Submitter, payee string) *Orchestrator {
	return &Orchestrator{
		flows:     make(map[string]*flow),
		carts:     carts,
		orders:    orders,
		submitter: submitter,
		payee:     payee,
	}
}

// Begin opens (or resets) the checkout flow at the shipping step.
func (o *Orchestrator) Begin(userKey string) (State, error) {
	if userKey == "" {
		return State{}, ErrMissingUserKey
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f := &flow{step: StepShipping}
	o.flows[userKey] = f
	return snapshot(f), nil
}

// SubmitShipping validates the address and advances Shipping -> Payment.
// Validation failures keep the flow in Shipping and create no order.
func (o *Orchestrator) SubmitShipping(userKey string, addr order.ShippingAddress) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.flowFor(userKey)
	if err != nil {
		return State{}, err
	}
	if f.step != StepShipping {
		return snapshot(f), ErrWrongStep
	}

	if err := addr.Validate(); err != nil {
		f.lastError = err.Error()
		return snapshot(f), err
	}

	f.address = &addr
	f.step = StepPayment
	f.lastError = ""
	return snapshot(f), nil
}

// Back returns from Payment to Shipping. Only legal before submission.
func (o *Orchestrator) Back(userKey string) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.flowFor(userKey)
	if err != nil {
		return State{}, err
	}
	if f.step != StepPayment {
		return snapshot(f), ErrWrongStep
	}

	f.step = StepShipping
	return snapshot(f), nil
}

// Submit runs the payment pipeline. On success the flow ends in
// Success with the cart cleared; on any failure the flow returns to
// Payment with the error surfaced, the cart untouched and the order
// left pending for retry or reconciliation.
func (o *Orchestrator) Submit(ctx context.Context, userKey string) (State, error) {
	o.mu.Lock()
	f, err := o.flowFor(userKey)
	if err != nil {
		o.mu.Unlock()
		return State{}, err
	}
	if f.step != StepPayment {
		state := snapshot(f)
		o.mu.Unlock()
		return state, ErrWrongStep
	}
	if f.address == nil {
		state := snapshot(f)
		o.mu.Unlock()
		return state, ErrNoShippingInfo
	}
	addr := *f.address
	f.step = StepProcessing
	f.lastError = ""
	o.mu.Unlock()

	state, err := o.runPipeline(ctx, userKey, addr, f)
	return state, err
}

func (o *Orchestrator) runPipeline(ctx context.Context, userKey string, addr order.ShippingAddress, f *flow) (State, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "checkout"),
		zap.String("user_key", userKey),
	)

	items, err := o.carts.GetItems(ctx, userKey)
	if err != nil {
		return o.failBack(f, err)
	}
	if len(items) == 0 {
		return o.failBack(f, ErrCartEmpty)
	}

	totals := o.carts.Totals(items)
	if len(totals) > 1 {
		return o.failBack(f, ErrMixedCurrencies)
	}
	var cur currency.Currency
	for c := range totals {
		cur = c
	}
	total := totals[cur]

	// The pending order must exist before any payment is attempted.
	created, err := o.orders.Create(ctx, userKey, items, addr, cur)
	if err != nil {
		return o.failBack(f, err)
	}

	o.mu.Lock()
	f.orderID = created.ID
	o.mu.Unlock()

	log = log.With(zap.String("order_id", created.ID))
	log.Info("payment submission started",
		zap.String("amount", total.String()),
		zap.String("currency", cur.String()),
	)

	receipt, err := o.submitter.Submit(ctx, payment.SubmitParams{
		Payee:     o.payee,
		Amount:    total,
		Currency:  cur,
		Reference: created.ID,
	})
	if err != nil {
		// A broadcast may be in flight even though settlement was not
		// observed; keep its hash on the pending order so the
		// reconciler can settle it later.
		if receipt != nil && receipt.TxHash != "" {
			if attachErr := o.orders.AttachTxHash(ctx, created.ID, receipt.TxHash); attachErr != nil {
				log.Error("failed to record unsettled tx hash", zap.Error(attachErr))
			}
			o.mu.Lock()
			f.txHash = receipt.TxHash
			o.mu.Unlock()
		}
		log.Warn("payment submission failed", zap.Error(err))
		return o.failBack(f, err)
	}

	// Record paid before touching the cart: cart contents are never
	// lost on a failed or ambiguous payment.
	if _, err := o.orders.UpdateStatus(ctx, created.ID, order.StatusPaid, &receipt.TxHash); err != nil {
		log.Error("payment settled but status update failed", zap.Error(err))
		return o.failBack(f, err)
	}
	if err := o.carts.Clear(ctx, userKey); err != nil {
		// The order is paid; a cart that failed to clear is an
		// inconvenience, not a lost payment.
		log.Error("failed to clear cart after payment", zap.Error(err))
	}

	o.mu.Lock()
	f.step = StepSuccess
	f.txHash = receipt.TxHash
	f.lastError = ""
	state := snapshot(f)
	o.mu.Unlock()

	log.Info("checkout completed", zap.String("tx_hash", receipt.TxHash))
	return state, nil
}

// failBack returns the flow to Payment with the error surfaced.
func (o *Orchestrator) failBack(f *flow, err error) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f.step = StepPayment
	f.lastError = err.Error()
	return snapshot(f), err
}

// State reports the current flow snapshot, starting a fresh flow for an
// unknown user key.
func (o *Orchestrator) State(userKey string) (State, error) {
	if userKey == "" {
		return State{}, ErrMissingUserKey
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f, ok := o.flows[userKey]
	if !ok {
		f = &flow{step: StepShipping}
		o.flows[userKey] = f
	}
	return snapshot(f), nil
}

func (o *Orchestrator) flowFor(userKey string) (*flow, error) {
	if userKey == "" {
		return nil, ErrMissingUserKey
	}
	f, ok := o.flows[userKey]
	if !ok {
		return nil, ErrWrongStep
	}
	return f, nil
}

func snapshot(f *flow) State {
	var addr *order.ShippingAddress
	if f.address != nil {
		copied := *f.address
		addr = &copied
	}
	return State{
		Step:      f.step,
		Address:   addr,
		OrderID:   f.orderID,
		TxHash:    f.txHash,
		LastError: f.lastError,
	}
}

// IsRecoverable reports whether a submission error should be offered a
// retry (as opposed to directing the user to order history or support).
func IsRecoverable(err error) bool {
	switch {
	case errors.Is(err, payment.ErrSigningRejected),
		errors.Is(err, payment.ErrInsufficientFunds),
		errors.Is(err, payment.ErrNetwork),
		errors.Is(err, payment.ErrNotConnected):
		return true
	case errors.Is(err, payment.ErrTimeout):
		// Unknown outcome: the user checks order history instead of
		// resubmitting a possibly-landed transfer.
		return false
	default:
		return false
	}
}
