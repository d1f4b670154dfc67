package memory

import (
	"context"
	"sync"

	"github.com/xraph/recur"
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// Store is an in-memory Store backed by maps. All calls serialize under one
// lock, and records cross the boundary as copies so callers never alias
// stored state.
type Store struct {
	mu sync.RWMutex

	// Record storage, keyed by derived address
	plans         map[address.Address]plan.Plan
	subscriptions map[address.Address]subscription.Subscription

	// Balance ledger, keyed by account ID
	balances map[string]types.Amount

	// Payment receipts, append-only
	payments []payment.Payment
}

func New() *Store {
	return &Store{
		plans:         make(map[address.Address]plan.Plan),
		subscriptions: make(map[address.Address]subscription.Subscription),
		balances:      make(map[string]types.Amount),
		payments:      make([]payment.Payment, 0),
	}
}

// Plan Store implementation
func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.Address]; exists {
		return recur.ErrAlreadyExists
	}
	s.plans[p.Address] = *p
	return nil
}

func (s *Store) GetPlan(_ context.Context, addr address.Address) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans[addr]; ok {
		return &p, nil
	}
	return nil, recur.ErrPlanNotFound
}

func (s *Store) UpdatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.Address]; !exists {
		return recur.ErrPlanNotFound
	}
	s.plans[p.Address] = *p
	return nil
}

func (s *Store) DestroyPlan(_ context.Context, addr address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[addr]; !exists {
		return recur.ErrPlanNotFound
	}
	delete(s.plans, addr)
	return nil
}

// Subscription Store implementation
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.Address]; exists {
		return recur.ErrAlreadyExists
	}
	s.subscriptions[sub.Address] = *sub
	return nil
}

func (s *Store) GetSubscription(_ context.Context, addr address.Address) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[addr]; ok {
		return &sub, nil
	}
	return nil, recur.ErrSubscriptionNotFound
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.Address]; !exists {
		return recur.ErrSubscriptionNotFound
	}
	s.subscriptions[sub.Address] = *sub
	return nil
}

func (s *Store) DestroySubscription(_ context.Context, addr address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[addr]; !exists {
		return recur.ErrSubscriptionNotFound
	}
	delete(s.subscriptions, addr)
	return nil
}

// Payment receipt implementation
func (s *Store) RecordPayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments = append(s.payments, *p)
	return nil
}

func (s *Store) ListPayments(_ context.Context, sub address.Address, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for i := range s.payments {
		p := s.payments[i]
		if p.Subscription != sub {
			continue
		}
		if opts.Kind != "" && p.Kind != opts.Kind {
			continue
		}
		result = append(result, &p)
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Balance ledger implementation
func (s *Store) Deposit(_ context.Context, account id.AccountID, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, ok := s.balances[account.String()].Add(amount)
	if !ok {
		return recur.ErrOverflow
	}
	s.balances[account.String()] = updated
	return nil
}

func (s *Store) Transfer(_ context.Context, from, to id.AccountID, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	debited, ok := s.balances[from.String()].Sub(amount)
	if !ok {
		return recur.ErrInsufficientFunds
	}
	if from.String() == to.String() {
		return nil
	}
	credited, ok := s.balances[to.String()].Add(amount)
	if !ok {
		return recur.ErrOverflow
	}

	s.balances[from.String()] = debited
	s.balances[to.String()] = credited
	return nil
}

func (s *Store) Balance(_ context.Context, account id.AccountID) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[account.String()], nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
