package recur

import (
	"context"
	"log/slog"

	"github.com/xraph/recur/access"
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// DepositReserve is the well-known account that holds storage deposits
// between a record's creation and its close.
var DepositReserve = id.MustParseWithPrefix("acct_00000000000000000000000000", id.PrefixAccount)

// Engine is the recurring-billing authorization engine.
//
// Every mutation validates the caller's identity and the record's state
// before touching the ledger, and reads the clock exactly once. Cross-record
// atomicity belongs to the backing ledger; the engine orders each operation
// so every validation precedes the transfer and the record write that could
// strand state comes last.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock

	// Configuration
	storageDeposit types.Amount
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   systemClock{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithClock sets the time source. The default reads the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithStorageDeposit sets the fixed deposit charged per created record and
// returned when the record is closed. Zero (the default) disables deposits.
func WithStorageDeposit(amount types.Amount) Option {
	return func(e *Engine) {
		e.storageDeposit = amount
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("recur started",
		"storage_deposit", e.storageDeposit,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Plan Management
// ──────────────────────────────────────────────────

// CreatePlan creates a billing plan owned by merchant. The plan's address is
// derived from (merchant, number), so a merchant can hold at most one plan
// per number.
func (e *Engine) CreatePlan(ctx context.Context, merchant id.AccountID, number uint16, amount types.Amount, interval types.Duration, name string) (*plan.Plan, error) {
	if !interval.IsPositive() {
		return nil, ErrInvalidInterval
	}
	if len(name) > plan.MaxNameLen {
		return nil, ErrNameTooLong
	}

	p := &plan.Plan{
		Entity:   types.NewEntity(),
		Address:  address.DerivePlan(merchant, number),
		Merchant: merchant,
		Number:   number,
		Amount:   amount,
		Interval: interval,
		Name:     name,
		Active:   true,
	}

	if err := e.store.CreatePlan(ctx, p); err != nil {
		return nil, err
	}

	if !e.storageDeposit.IsZero() {
		if err := e.store.Transfer(ctx, merchant, DepositReserve, e.storageDeposit); err != nil {
			// Unwind the fresh record so no plan exists without its deposit.
			if derr := e.store.DestroyPlan(ctx, p.Address); derr != nil {
				e.logger.Error("failed to unwind plan after deposit failure",
					"plan", p.Address, "error", derr)
			}
			return nil, err
		}
	}

	e.plugins.EmitPlanCreated(ctx, p)
	return p, nil
}

// GetPlan retrieves a plan by address.
func (e *Engine) GetPlan(ctx context.Context, addr address.Address) (*plan.Plan, error) {
	return e.loadPlan(ctx, addr)
}

// DeactivatePlan flips the plan's one-way active latch (merchant only).
// New subscriptions and further renewals are refused. Deactivating an
// already-inactive plan is a no-op.
func (e *Engine) DeactivatePlan(ctx context.Context, merchant id.AccountID, addr address.Address) error {
	p, err := e.loadPlan(ctx, addr)
	if err != nil {
		return err
	}
	if !p.Merchant.Equal(merchant) {
		return ErrUnauthorized
	}

	if !p.Active {
		return nil
	}

	p.Active = false
	p.Touch()

	if err := e.store.UpdatePlan(ctx, p); err != nil {
		return err
	}

	e.plugins.EmitPlanDeactivated(ctx, p)
	return nil
}

// ClosePlan destroys an inactive plan and returns its storage deposit to the
// merchant (merchant only).
func (e *Engine) ClosePlan(ctx context.Context, merchant id.AccountID, addr address.Address) error {
	p, err := e.loadPlan(ctx, addr)
	if err != nil {
		return err
	}
	if !p.Merchant.Equal(merchant) {
		return ErrUnauthorized
	}
	if p.Active {
		return ErrPlanStillActive
	}

	if err := e.store.DestroyPlan(ctx, addr); err != nil {
		return err
	}

	e.refundDeposit(ctx, merchant, "plan", addr)

	e.plugins.EmitPlanClosed(ctx, addr.String())
	return nil
}

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// CreateSubscription subscribes subscriber to the plan at planAddr, charging
// the first period immediately. Amount and interval are snapshotted from the
// plan, so later plan changes never affect this subscription.
func (e *Engine) CreateSubscription(ctx context.Context, subscriber id.AccountID, planAddr address.Address) (*subscription.Subscription, error) {
	p, err := e.loadPlan(ctx, planAddr)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrPlanInactive
	}

	now := e.clock.Now()
	next, ok := now.Add(p.Interval)
	if !ok {
		return nil, ErrOverflow
	}

	sub := &subscription.Subscription{
		Entity:        types.NewEntity(),
		Address:       address.DeriveSubscription(subscriber, planAddr),
		Subscriber:    subscriber,
		Plan:          planAddr,
		Amount:        p.Amount,
		Interval:      p.Interval,
		NextBillingAt: next,
		StartedAt:     now,
		Status:        subscription.StatusActive,
		AutoRenew:     true,
	}

	if err := e.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	if !e.storageDeposit.IsZero() {
		if err := e.store.Transfer(ctx, subscriber, DepositReserve, e.storageDeposit); err != nil {
			if derr := e.store.DestroySubscription(ctx, sub.Address); derr != nil {
				e.logger.Error("failed to unwind subscription after deposit failure",
					"subscription", sub.Address, "error", derr)
			}
			return nil, err
		}
	}

	// First period charge. A subscription must never exist unpaid, so a
	// failed charge unwinds the record and its deposit.
	if err := e.store.Transfer(ctx, subscriber, p.Merchant, p.Amount); err != nil {
		if derr := e.store.DestroySubscription(ctx, sub.Address); derr != nil {
			e.logger.Error("failed to unwind subscription after charge failure",
				"subscription", sub.Address, "error", derr)
		}
		if !e.storageDeposit.IsZero() {
			e.refundDeposit(ctx, subscriber, "subscription", sub.Address)
		}
		return nil, err
	}

	e.recordPayment(ctx, sub, p.Merchant, p.Amount, payment.KindInitial, now)

	e.plugins.EmitSubscriptionCreated(ctx, sub)
	return sub, nil
}

// GetSubscription retrieves a subscription by address.
func (e *Engine) GetSubscription(ctx context.Context, addr address.Address) (*subscription.Subscription, error) {
	return e.loadSubscription(ctx, addr)
}

// Renew charges one more billing period and advances next_billing_at by
// exactly one snapshotted interval (subscriber only). A subscriber several
// periods behind calls Renew once per period owed; there is no catch-up
// multiplier.
func (e *Engine) Renew(ctx context.Context, subscriber id.AccountID, addr address.Address) error {
	sub, err := e.loadSubscription(ctx, addr)
	if err != nil {
		return err
	}
	if !sub.Subscriber.Equal(subscriber) {
		return ErrUnauthorized
	}
	if sub.Status != subscription.StatusActive {
		return ErrNotActive
	}

	now := e.clock.Now()
	if now.Before(sub.NextBillingAt) {
		return ErrRenewalTooEarly
	}

	p, err := e.loadPlan(ctx, sub.Plan)
	if err != nil {
		return err
	}
	if !p.Active {
		return ErrPlanInactive
	}

	// Validate the advance before moving any value: an overflow must leave
	// both the ledger and the record untouched.
	next, ok := sub.NextBillingAt.Add(sub.Interval)
	if !ok {
		return ErrOverflow
	}

	if err := e.store.Transfer(ctx, subscriber, p.Merchant, sub.Amount); err != nil {
		return err
	}

	sub.NextBillingAt = next
	sub.Touch()

	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	e.recordPayment(ctx, sub, p.Merchant, sub.Amount, payment.KindRenewal, now)

	e.plugins.EmitSubscriptionRenewed(ctx, sub)
	return nil
}

// Cancel marks an active subscription cancelled (subscriber only). The
// already-paid period is not refunded.
func (e *Engine) Cancel(ctx context.Context, subscriber id.AccountID, addr address.Address) error {
	sub, err := e.loadSubscription(ctx, addr)
	if err != nil {
		return err
	}
	if !sub.Subscriber.Equal(subscriber) {
		return ErrUnauthorized
	}
	if sub.Status != subscription.StatusActive {
		return ErrNotActive
	}

	sub.Status = subscription.StatusCancelled
	sub.Touch()

	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	e.plugins.EmitSubscriptionCanceled(ctx, sub)
	return nil
}

// CloseSubscription destroys a cancelled subscription and returns its
// storage deposit to the subscriber (subscriber only). Cancel first, then
// close.
func (e *Engine) CloseSubscription(ctx context.Context, subscriber id.AccountID, addr address.Address) error {
	sub, err := e.loadSubscription(ctx, addr)
	if err != nil {
		return err
	}
	if !sub.Subscriber.Equal(subscriber) {
		return ErrUnauthorized
	}
	if sub.Status != subscription.StatusCancelled {
		return ErrNotActive
	}

	if err := e.store.DestroySubscription(ctx, addr); err != nil {
		return err
	}

	e.refundDeposit(ctx, subscriber, "subscription", addr)

	e.plugins.EmitSubscriptionClosed(ctx, addr.String())
	return nil
}

// ──────────────────────────────────────────────────
// Access Checks
// ──────────────────────────────────────────────────

// CheckAccess is the permissionless predicate: anyone holding a subscription
// address can ask whether it currently grants access. Access holds iff the
// subscription is Active and now is strictly before next_billing_at. Denial
// returns ErrSubscriptionExpired alongside a populated Result explaining why.
func (e *Engine) CheckAccess(ctx context.Context, addr address.Address) (*access.Result, error) {
	sub, err := e.loadSubscription(ctx, addr)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()

	result := &access.Result{
		Subscription: addr,
		ExpiresAt:    sub.NextBillingAt,
		CheckedAt:    now,
	}

	switch {
	case sub.Status != subscription.StatusActive:
		result.Reason = "subscription cancelled"
	case !now.Before(sub.NextBillingAt):
		result.Reason = "billing period lapsed"
	default:
		result.Granted = true
	}

	e.plugins.EmitAccessChecked(ctx, result)

	if !result.Granted {
		return result, ErrSubscriptionExpired
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Ledger and Receipts
// ──────────────────────────────────────────────────

// Deposit credits an account on the backing ledger. Test and bootstrap
// helper; production deployments fund accounts out of band.
func (e *Engine) Deposit(ctx context.Context, account id.AccountID, amount types.Amount) error {
	return e.store.Deposit(ctx, account, amount)
}

// Balance returns an account's ledger balance.
func (e *Engine) Balance(ctx context.Context, account id.AccountID) (types.Amount, error) {
	return e.store.Balance(ctx, account)
}

// Payments lists the charge receipts recorded for a subscription.
func (e *Engine) Payments(ctx context.Context, sub address.Address, opts payment.ListOpts) ([]*payment.Payment, error) {
	return e.store.ListPayments(ctx, sub, opts)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// loadPlan fetches a plan and rejects records whose stored address does not
// match the derivation from their defining tuple.
func (e *Engine) loadPlan(ctx context.Context, addr address.Address) (*plan.Plan, error) {
	p, err := e.store.GetPlan(ctx, addr)
	if err != nil {
		return nil, err
	}
	if p.Address != addr || !p.VerifyAddress() {
		return nil, ErrAddressMismatch
	}
	return p, nil
}

func (e *Engine) loadSubscription(ctx context.Context, addr address.Address) (*subscription.Subscription, error) {
	sub, err := e.store.GetSubscription(ctx, addr)
	if err != nil {
		return nil, err
	}
	if sub.Address != addr || !sub.VerifyAddress() {
		return nil, ErrAddressMismatch
	}
	return sub, nil
}

// refundDeposit moves a record's storage deposit from the reserve back to
// its owner. The record is already gone, so a failed refund is logged for
// reconciliation rather than propagated.
func (e *Engine) refundDeposit(ctx context.Context, owner id.AccountID, kind string, addr address.Address) {
	if e.storageDeposit.IsZero() {
		return
	}
	if err := e.store.Transfer(ctx, DepositReserve, owner, e.storageDeposit); err != nil {
		e.logger.Error("failed to refund storage deposit",
			"kind", kind, "record", addr, "owner", owner, "error", err)
	}
}

func (e *Engine) recordPayment(ctx context.Context, sub *subscription.Subscription, merchant id.AccountID, amount types.Amount, kind payment.Kind, paidAt types.Timestamp) {
	receipt := &payment.Payment{
		Entity:       types.NewEntity(),
		ID:           id.NewPaymentID(),
		Subscription: sub.Address,
		Plan:         sub.Plan,
		From:         sub.Subscriber,
		To:           merchant,
		Amount:       amount,
		Kind:         kind,
		PaidAt:       paidAt,
	}

	// The charge already settled; a lost receipt is a reporting gap, not a
	// billing failure.
	if err := e.store.RecordPayment(ctx, receipt); err != nil {
		e.logger.Warn("failed to record payment receipt",
			"subscription", sub.Address, "kind", kind, "error", err)
		return
	}

	e.plugins.EmitPaymentRecorded(ctx, receipt)
}
