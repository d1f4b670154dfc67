package store

import (
	"context"

	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// Store is the unified storage interface for all Recur entities, including
// the balance ledger the engine moves value through. Instead of embedding
// sub-interfaces, all methods are declared explicitly to avoid naming
// conflicts.
//
// Implementations return records by value-copy semantics: mutating a
// returned record must not change stored state until Update is called.
type Store interface {
	// Plan methods
	CreatePlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, addr address.Address) (*plan.Plan, error)
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	DestroyPlan(ctx context.Context, addr address.Address) error

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, addr address.Address) (*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	DestroySubscription(ctx context.Context, addr address.Address) error

	// Payment receipt methods
	RecordPayment(ctx context.Context, p *payment.Payment) error
	ListPayments(ctx context.Context, sub address.Address, opts payment.ListOpts) ([]*payment.Payment, error)

	// Balance ledger methods
	Deposit(ctx context.Context, account id.AccountID, amount types.Amount) error
	Transfer(ctx context.Context, from, to id.AccountID, amount types.Amount) error
	Balance(ctx context.Context, account id.AccountID) (types.Amount, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
