package recur_test

import (
	"context"
	"errors"
	"math"
	"testing"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// testClock is a settable time source so tests control billing time exactly.
type testClock struct {
	now types.Timestamp
}

func (c *testClock) Now() types.Timestamp { return c.now }

// fixture bundles an engine on a memory store with two funded parties.
type fixture struct {
	eng        *recur.Engine
	store      *memory.Store
	clock      *testClock
	merchant   id.AccountID
	subscriber id.AccountID
}

func newFixture(t *testing.T, opts ...recur.Option) *fixture {
	t.Helper()

	st := memory.New()
	clk := &testClock{}
	opts = append(opts, recur.WithClock(clk))

	return &fixture{
		eng:        recur.New(st, opts...),
		store:      st,
		clock:      clk,
		merchant:   id.NewAccountID(),
		subscriber: id.NewAccountID(),
	}
}

func (f *fixture) fund(t *testing.T, account id.AccountID, n uint64) {
	t.Helper()
	if err := f.eng.Deposit(context.Background(), account, types.Units(n)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, account id.AccountID) uint64 {
	t.Helper()
	b, err := f.eng.Balance(context.Background(), account)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return uint64(b)
}

// createPlan makes an active plan owned by the fixture merchant.
func (f *fixture) createPlan(t *testing.T, number uint16, amount uint64, interval int64) *plan.Plan {
	t.Helper()
	p, err := f.eng.CreatePlan(context.Background(), f.merchant, number, types.Units(amount), types.Seconds(interval), "Pro Monthly")
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return p
}

func (f *fixture) subscribe(t *testing.T, planAddr address.Address) *subscription.Subscription {
	t.Helper()
	sub, err := f.eng.CreateSubscription(context.Background(), f.subscriber, planAddr)
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	return sub
}

func TestCreatePlan(t *testing.T) {
	longName := make([]byte, plan.MaxNameLen+1)
	for i := range longName {
		longName[i] = 'x'
	}

	t.Run("Validation", func(t *testing.T) {
		tests := []struct {
			name     string
			interval int64
			planName string
			wantErr  error
		}{
			{"ZeroInterval", 0, "Basic", recur.ErrInvalidInterval},
			{"NegativeInterval", -60, "Basic", recur.ErrInvalidInterval},
			{"NameTooLong", 2592000, string(longName), recur.ErrNameTooLong},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				_, err := f.eng.CreatePlan(context.Background(), f.merchant, 1, types.Units(1000), types.Seconds(tt.interval), tt.planName)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("got %v, want %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("IntervalCheckedBeforeName", func(t *testing.T) {
		// Both invalid: the interval error wins.
		f := newFixture(t)
		_, err := f.eng.CreatePlan(context.Background(), f.merchant, 1, types.Units(1000), types.Seconds(0), string(longName))
		if !errors.Is(err, recur.ErrInvalidInterval) {
			t.Errorf("got %v, want ErrInvalidInterval", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 7, 1000, 2592000)

		if !p.Active {
			t.Error("new plan should be active")
		}
		if p.Amount != types.Units(1000) || p.Interval != types.Seconds(2592000) {
			t.Errorf("unexpected pricing: amount=%v interval=%v", p.Amount, p.Interval)
		}
		if want := address.DerivePlan(f.merchant, 7); p.Address != want {
			t.Errorf("address: got %s, want %s", p.Address, want)
		}

		got, err := f.eng.GetPlan(context.Background(), p.Address)
		if err != nil {
			t.Fatalf("GetPlan: %v", err)
		}
		if got.Name != "Pro Monthly" || got.Number != 7 {
			t.Errorf("round-trip mismatch: %+v", got)
		}
	})

	t.Run("MaxLenNameAccepted", func(t *testing.T) {
		f := newFixture(t)
		name := string(longName[:plan.MaxNameLen])
		if _, err := f.eng.CreatePlan(context.Background(), f.merchant, 1, types.Units(10), types.Seconds(60), name); err != nil {
			t.Errorf("64-byte name rejected: %v", err)
		}
	})
}

func TestDeactivatePlan(t *testing.T) {
	t.Run("Unauthorized", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)

		err := f.eng.DeactivatePlan(context.Background(), id.NewAccountID(), p.Address)
		if !errors.Is(err, recur.ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("FlipsLatch", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)

		if err := f.eng.DeactivatePlan(context.Background(), f.merchant, p.Address); err != nil {
			t.Fatalf("DeactivatePlan: %v", err)
		}

		got, err := f.eng.GetPlan(context.Background(), p.Address)
		if err != nil {
			t.Fatalf("GetPlan: %v", err)
		}
		if got.Active {
			t.Error("plan still active after deactivation")
		}

		// One-way latch: a second deactivation is a clean no-op.
		if err := f.eng.DeactivatePlan(context.Background(), f.merchant, p.Address); err != nil {
			t.Errorf("second deactivation: %v", err)
		}
	})
}

func TestClosePlan(t *testing.T) {
	t.Run("StillActive", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)

		err := f.eng.ClosePlan(context.Background(), f.merchant, p.Address)
		if !errors.Is(err, recur.ErrPlanStillActive) {
			t.Errorf("got %v, want ErrPlanStillActive", err)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)

		err := f.eng.ClosePlan(context.Background(), id.NewAccountID(), p.Address)
		if !errors.Is(err, recur.ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("RemovesRecord", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)

		if err := f.eng.DeactivatePlan(context.Background(), f.merchant, p.Address); err != nil {
			t.Fatalf("DeactivatePlan: %v", err)
		}
		if err := f.eng.ClosePlan(context.Background(), f.merchant, p.Address); err != nil {
			t.Fatalf("ClosePlan: %v", err)
		}

		_, err := f.eng.GetPlan(context.Background(), p.Address)
		if !errors.Is(err, recur.ErrPlanNotFound) {
			t.Errorf("got %v, want ErrPlanNotFound", err)
		}
	})
}

func TestCreateSubscription(t *testing.T) {
	t.Run("PlanInactive", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)
		f.fund(t, f.subscriber, 5000)

		if err := f.eng.DeactivatePlan(context.Background(), f.merchant, p.Address); err != nil {
			t.Fatalf("DeactivatePlan: %v", err)
		}

		_, err := f.eng.CreateSubscription(context.Background(), f.subscriber, p.Address)
		if !errors.Is(err, recur.ErrPlanInactive) {
			t.Errorf("got %v, want ErrPlanInactive", err)
		}
	})

	t.Run("PlanNotFound", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.eng.CreateSubscription(context.Background(), f.subscriber, address.DerivePlan(f.merchant, 99))
		if !errors.Is(err, recur.ErrPlanNotFound) {
			t.Errorf("got %v, want ErrPlanNotFound", err)
		}
	})

	t.Run("ChargesFirstPeriod", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)
		f.fund(t, f.subscriber, 5000)
		f.clock.now = 100

		sub := f.subscribe(t, p.Address)

		if sub.Status != subscription.StatusActive {
			t.Errorf("status: got %s, want active", sub.Status)
		}
		if !sub.AutoRenew {
			t.Error("auto_renew should default to true")
		}
		if sub.StartedAt != 100 || sub.NextBillingAt != 100+2592000 {
			t.Errorf("period: started=%d next=%d", sub.StartedAt, sub.NextBillingAt)
		}
		if sub.Amount != types.Units(1000) || sub.Interval != types.Seconds(2592000) {
			t.Errorf("snapshot: amount=%v interval=%v", sub.Amount, sub.Interval)
		}
		if want := address.DeriveSubscription(f.subscriber, p.Address); sub.Address != want {
			t.Errorf("address: got %s, want %s", sub.Address, want)
		}

		if got := f.balance(t, f.subscriber); got != 4000 {
			t.Errorf("subscriber balance: got %d, want 4000", got)
		}
		if got := f.balance(t, f.merchant); got != 1000 {
			t.Errorf("merchant balance: got %d, want 1000", got)
		}

		receipts, err := f.eng.Payments(context.Background(), sub.Address, payment.ListOpts{})
		if err != nil {
			t.Fatalf("Payments: %v", err)
		}
		if len(receipts) != 1 || receipts[0].Kind != payment.KindInitial {
			t.Errorf("want one initial receipt, got %+v", receipts)
		}
	})

	t.Run("InsufficientFundsUnwinds", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)
		f.fund(t, f.subscriber, 999)

		_, err := f.eng.CreateSubscription(context.Background(), f.subscriber, p.Address)
		if !errors.Is(err, recur.ErrInsufficientFunds) {
			t.Fatalf("got %v, want ErrInsufficientFunds", err)
		}

		// No record may survive the failed charge.
		subAddr := address.DeriveSubscription(f.subscriber, p.Address)
		if _, err := f.eng.GetSubscription(context.Background(), subAddr); !errors.Is(err, recur.ErrSubscriptionNotFound) {
			t.Errorf("got %v, want ErrSubscriptionNotFound", err)
		}
		if got := f.balance(t, f.subscriber); got != 999 {
			t.Errorf("subscriber balance changed: %d", got)
		}
	})

	t.Run("NextBillingOverflow", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, math.MaxInt64)
		f.fund(t, f.subscriber, 5000)
		f.clock.now = 100

		_, err := f.eng.CreateSubscription(context.Background(), f.subscriber, p.Address)
		if !errors.Is(err, recur.ErrOverflow) {
			t.Errorf("got %v, want ErrOverflow", err)
		}
		if got := f.balance(t, f.subscriber); got != 5000 {
			t.Errorf("subscriber balance changed: %d", got)
		}
	})
}

func TestRenew(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *subscription.Subscription) {
		t.Helper()
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)
		f.fund(t, f.subscriber, 10000)
		sub := f.subscribe(t, p.Address)
		return f, sub
	}

	t.Run("Unauthorized", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 2592000

		err := f.eng.Renew(context.Background(), id.NewAccountID(), sub.Address)
		if !errors.Is(err, recur.ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("TooEarly", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 1000000

		err := f.eng.Renew(context.Background(), f.subscriber, sub.Address)
		if !errors.Is(err, recur.ErrRenewalTooEarly) {
			t.Fatalf("got %v, want ErrRenewalTooEarly", err)
		}

		got, err := f.eng.GetSubscription(context.Background(), sub.Address)
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if got.NextBillingAt != 2592000 {
			t.Errorf("next_billing_at moved: %d", got.NextBillingAt)
		}
		if b := f.balance(t, f.subscriber); b != 9000 {
			t.Errorf("subscriber balance changed: %d", b)
		}
	})

	t.Run("ExactlyDue", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 2592000

		if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Renew: %v", err)
		}

		got, err := f.eng.GetSubscription(context.Background(), sub.Address)
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if got.NextBillingAt != 5184000 {
			t.Errorf("next_billing_at: got %d, want 5184000", got.NextBillingAt)
		}
		if b := f.balance(t, f.subscriber); b != 8000 {
			t.Errorf("subscriber balance: got %d, want 8000", b)
		}
		if b := f.balance(t, f.merchant); b != 2000 {
			t.Errorf("merchant balance: got %d, want 2000", b)
		}
	})

	t.Run("PlanInactive", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 2592000

		if err := f.eng.DeactivatePlan(context.Background(), f.merchant, sub.Plan); err != nil {
			t.Fatalf("DeactivatePlan: %v", err)
		}

		err := f.eng.Renew(context.Background(), f.subscriber, sub.Address)
		if !errors.Is(err, recur.ErrPlanInactive) {
			t.Errorf("got %v, want ErrPlanInactive", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 2592000

		if err := f.eng.Cancel(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Cancel: %v", err)
		}

		err := f.eng.Renew(context.Background(), f.subscriber, sub.Address)
		if !errors.Is(err, recur.ErrNotActive) {
			t.Errorf("got %v, want ErrNotActive", err)
		}
	})

	t.Run("ChargesSnapshotNotCurrentPrice", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 2592000

		// Reprice the plan behind the engine's back. The subscription's
		// contractual price is the snapshot taken at creation.
		stored, err := f.store.GetPlan(context.Background(), sub.Plan)
		if err != nil {
			t.Fatalf("GetPlan: %v", err)
		}
		stored.Amount = types.Units(9999)
		if err := f.store.UpdatePlan(context.Background(), stored); err != nil {
			t.Fatalf("UpdatePlan: %v", err)
		}

		if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Renew: %v", err)
		}
		if b := f.balance(t, f.subscriber); b != 8000 {
			t.Errorf("renewal charged current price, not snapshot: balance %d", b)
		}
	})

	t.Run("CatchUpOnePeriodPerCall", func(t *testing.T) {
		f, sub := setup(t)

		// Two full periods behind: each call advances exactly one interval.
		f.clock.now = 3*2592000 - 100

		if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("first catch-up renew: %v", err)
		}
		if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("second catch-up renew: %v", err)
		}

		got, err := f.eng.GetSubscription(context.Background(), sub.Address)
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if got.NextBillingAt != 3*2592000 {
			t.Errorf("next_billing_at: got %d, want %d", got.NextBillingAt, 3*2592000)
		}

		err = f.eng.Renew(context.Background(), f.subscriber, sub.Address)
		if !errors.Is(err, recur.ErrRenewalTooEarly) {
			t.Errorf("caught-up renew: got %v, want ErrRenewalTooEarly", err)
		}
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)
		f.fund(t, f.subscriber, 1500)
		sub := f.subscribe(t, p.Address)
		f.clock.now = 2592000

		err := f.eng.Renew(context.Background(), f.subscriber, sub.Address)
		if !errors.Is(err, recur.ErrInsufficientFunds) {
			t.Fatalf("got %v, want ErrInsufficientFunds", err)
		}

		got, err := f.eng.GetSubscription(context.Background(), sub.Address)
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if got.NextBillingAt != 2592000 {
			t.Errorf("next_billing_at moved on failed charge: %d", got.NextBillingAt)
		}
	})

	t.Run("OverflowLeavesStateUntouched", func(t *testing.T) {
		f := newFixture(t)
		interval := int64(math.MaxInt64/2 + 1)
		p := f.createPlan(t, 1, 1000, interval)
		f.fund(t, f.subscriber, 10000)
		sub := f.subscribe(t, p.Address)

		f.clock.now = types.Timestamp(interval)

		err := f.eng.Renew(context.Background(), f.subscriber, sub.Address)
		if !errors.Is(err, recur.ErrOverflow) {
			t.Fatalf("got %v, want ErrOverflow", err)
		}

		got, err := f.eng.GetSubscription(context.Background(), sub.Address)
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if got.NextBillingAt != sub.NextBillingAt {
			t.Errorf("next_billing_at moved: %d", got.NextBillingAt)
		}
		if b := f.balance(t, f.subscriber); b != 9000 {
			t.Errorf("overflow still charged the subscriber: balance %d", b)
		}
	})
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	p := f.createPlan(t, 1, 1000, 2592000)
	f.fund(t, f.subscriber, 5000)
	sub := f.subscribe(t, p.Address)

	if err := f.eng.Cancel(context.Background(), id.NewAccountID(), sub.Address); !errors.Is(err, recur.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}

	if err := f.eng.Cancel(context.Background(), f.subscriber, sub.Address); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, err := f.eng.GetSubscription(context.Background(), sub.Address)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if got.Status != subscription.StatusCancelled {
		t.Errorf("status: got %s, want cancelled", got.Status)
	}

	// Cancelled is terminal for this field: a second cancel fails.
	if err := f.eng.Cancel(context.Background(), f.subscriber, sub.Address); !errors.Is(err, recur.ErrNotActive) {
		t.Errorf("second cancel: got %v, want ErrNotActive", err)
	}
}

func TestCheckAccess(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *subscription.Subscription) {
		t.Helper()
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)
		f.fund(t, f.subscriber, 5000)
		sub := f.subscribe(t, p.Address)
		return f, sub
	}

	t.Run("GrantedWithinPeriod", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 1000000

		result, err := f.eng.CheckAccess(context.Background(), sub.Address)
		if err != nil {
			t.Fatalf("CheckAccess: %v", err)
		}
		if !result.Granted {
			t.Errorf("access denied: %s", result.Reason)
		}
		if result.ExpiresAt != sub.NextBillingAt {
			t.Errorf("expires_at: got %d, want %d", result.ExpiresAt, sub.NextBillingAt)
		}
	})

	t.Run("DeniedAtPeriodBoundary", func(t *testing.T) {
		// now == next_billing_at is already outside the paid period.
		f, sub := setup(t)
		f.clock.now = 2592000

		result, err := f.eng.CheckAccess(context.Background(), sub.Address)
		if !errors.Is(err, recur.ErrSubscriptionExpired) {
			t.Fatalf("got %v, want ErrSubscriptionExpired", err)
		}
		if result == nil || result.Granted {
			t.Fatalf("denial must return an ungranted result, got %+v", result)
		}
		if result.Reason != "billing period lapsed" {
			t.Errorf("reason: got %q", result.Reason)
		}
	})

	t.Run("DeniedWhenCancelled", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 1000000

		if err := f.eng.Cancel(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Cancel: %v", err)
		}

		result, err := f.eng.CheckAccess(context.Background(), sub.Address)
		if !errors.Is(err, recur.ErrSubscriptionExpired) {
			t.Fatalf("got %v, want ErrSubscriptionExpired", err)
		}
		if result.Reason != "subscription cancelled" {
			t.Errorf("reason: got %q", result.Reason)
		}
	})

	t.Run("RegrantedAfterRenew", func(t *testing.T) {
		f, sub := setup(t)
		f.clock.now = 2592000

		if _, err := f.eng.CheckAccess(context.Background(), sub.Address); !errors.Is(err, recur.ErrSubscriptionExpired) {
			t.Fatalf("pre-renew check: got %v, want ErrSubscriptionExpired", err)
		}
		if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Renew: %v", err)
		}

		result, err := f.eng.CheckAccess(context.Background(), sub.Address)
		if err != nil {
			t.Fatalf("post-renew check: %v", err)
		}
		if !result.Granted {
			t.Errorf("access denied after renewal: %s", result.Reason)
		}
	})

	t.Run("UnknownSubscription", func(t *testing.T) {
		f, _ := setup(t)
		unknown := address.DeriveSubscription(id.NewAccountID(), address.DerivePlan(f.merchant, 2))

		_, err := f.eng.CheckAccess(context.Background(), unknown)
		if !errors.Is(err, recur.ErrSubscriptionNotFound) {
			t.Errorf("got %v, want ErrSubscriptionNotFound", err)
		}
	})
}

func TestCloseSubscription(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *subscription.Subscription) {
		t.Helper()
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)
		f.fund(t, f.subscriber, 5000)
		sub := f.subscribe(t, p.Address)
		return f, sub
	}

	t.Run("RequiresCancelledFirst", func(t *testing.T) {
		f, sub := setup(t)

		err := f.eng.CloseSubscription(context.Background(), f.subscriber, sub.Address)
		if !errors.Is(err, recur.ErrNotActive) {
			t.Errorf("got %v, want ErrNotActive", err)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		f, sub := setup(t)

		if err := f.eng.Cancel(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		err := f.eng.CloseSubscription(context.Background(), id.NewAccountID(), sub.Address)
		if !errors.Is(err, recur.ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("RemovesRecordAndFreesTuple", func(t *testing.T) {
		f, sub := setup(t)

		if err := f.eng.Cancel(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if err := f.eng.CloseSubscription(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("CloseSubscription: %v", err)
		}

		if _, err := f.eng.GetSubscription(context.Background(), sub.Address); !errors.Is(err, recur.ErrSubscriptionNotFound) {
			t.Errorf("got %v, want ErrSubscriptionNotFound", err)
		}

		// The (subscriber, plan) tuple is free again.
		if _, err := f.eng.CreateSubscription(context.Background(), f.subscriber, sub.Plan); err != nil {
			t.Errorf("re-subscribe after close: %v", err)
		}
	})
}

func TestStorageDeposit(t *testing.T) {
	t.Run("PlanDepositAndRefund", func(t *testing.T) {
		f := newFixture(t, recur.WithStorageDeposit(types.Units(50)))
		f.fund(t, f.merchant, 100)

		p := f.createPlan(t, 1, 1000, 2592000)
		if b := f.balance(t, f.merchant); b != 50 {
			t.Errorf("merchant balance after create: got %d, want 50", b)
		}
		if b := f.balance(t, recur.DepositReserve); b != 50 {
			t.Errorf("reserve balance: got %d, want 50", b)
		}

		if err := f.eng.DeactivatePlan(context.Background(), f.merchant, p.Address); err != nil {
			t.Fatalf("DeactivatePlan: %v", err)
		}
		if err := f.eng.ClosePlan(context.Background(), f.merchant, p.Address); err != nil {
			t.Fatalf("ClosePlan: %v", err)
		}

		if b := f.balance(t, f.merchant); b != 100 {
			t.Errorf("merchant balance after close: got %d, want 100", b)
		}
	})

	t.Run("CreatePlanUnwoundWhenDepositFails", func(t *testing.T) {
		f := newFixture(t, recur.WithStorageDeposit(types.Units(50)))

		_, err := f.eng.CreatePlan(context.Background(), f.merchant, 1, types.Units(1000), types.Seconds(2592000), "Pro")
		if !errors.Is(err, recur.ErrInsufficientFunds) {
			t.Fatalf("got %v, want ErrInsufficientFunds", err)
		}

		addr := address.DerivePlan(f.merchant, 1)
		if _, err := f.eng.GetPlan(context.Background(), addr); !errors.Is(err, recur.ErrPlanNotFound) {
			t.Errorf("got %v, want ErrPlanNotFound", err)
		}
	})

	t.Run("SubscriptionDepositAndRefund", func(t *testing.T) {
		f := newFixture(t, recur.WithStorageDeposit(types.Units(50)))
		f.fund(t, f.merchant, 50)
		f.fund(t, f.subscriber, 2000)

		p := f.createPlan(t, 1, 1000, 2592000)
		sub := f.subscribe(t, p.Address)

		// 2000 - 50 deposit - 1000 first period.
		if b := f.balance(t, f.subscriber); b != 950 {
			t.Errorf("subscriber balance after create: got %d, want 950", b)
		}

		if err := f.eng.Cancel(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if err := f.eng.CloseSubscription(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("CloseSubscription: %v", err)
		}

		if b := f.balance(t, f.subscriber); b != 1000 {
			t.Errorf("subscriber balance after close: got %d, want 1000", b)
		}
	})

	t.Run("DepositRefundedWhenFirstChargeFails", func(t *testing.T) {
		f := newFixture(t, recur.WithStorageDeposit(types.Units(50)))
		f.fund(t, f.merchant, 50)
		f.fund(t, f.subscriber, 100) // covers the deposit, not the charge

		p := f.createPlan(t, 1, 1000, 2592000)

		_, err := f.eng.CreateSubscription(context.Background(), f.subscriber, p.Address)
		if !errors.Is(err, recur.ErrInsufficientFunds) {
			t.Fatalf("got %v, want ErrInsufficientFunds", err)
		}
		if b := f.balance(t, f.subscriber); b != 100 {
			t.Errorf("deposit not refunded: balance %d", b)
		}
	})
}

func TestAddressIntegrity(t *testing.T) {
	t.Run("TamperedPlanRejected", func(t *testing.T) {
		f := newFixture(t)

		// A record stored under the right address but claiming a different
		// defining tuple must be refused.
		addr := address.DerivePlan(f.merchant, 2)
		forged := &plan.Plan{
			Entity:   types.NewEntity(),
			Address:  addr,
			Merchant: f.merchant,
			Number:   3,
			Amount:   types.Units(1),
			Interval: types.Seconds(60),
			Active:   true,
		}
		if err := f.store.CreatePlan(context.Background(), forged); err != nil {
			t.Fatalf("CreatePlan: %v", err)
		}

		_, err := f.eng.GetPlan(context.Background(), addr)
		if !errors.Is(err, recur.ErrAddressMismatch) {
			t.Errorf("got %v, want ErrAddressMismatch", err)
		}
	})

	t.Run("TamperedSubscriptionRejected", func(t *testing.T) {
		f := newFixture(t)
		p := f.createPlan(t, 1, 1000, 2592000)

		addr := address.DeriveSubscription(f.subscriber, p.Address)
		forged := &subscription.Subscription{
			Entity:     types.NewEntity(),
			Address:    addr,
			Subscriber: id.NewAccountID(), // not the derivation input
			Plan:       p.Address,
			Status:     subscription.StatusActive,
		}
		if err := f.store.CreateSubscription(context.Background(), forged); err != nil {
			t.Fatalf("CreateSubscription: %v", err)
		}

		_, err := f.eng.CheckAccess(context.Background(), addr)
		if !errors.Is(err, recur.ErrAddressMismatch) {
			t.Errorf("got %v, want ErrAddressMismatch", err)
		}
	})
}

func TestPayments(t *testing.T) {
	f := newFixture(t)
	p := f.createPlan(t, 1, 1000, 2592000)
	f.fund(t, f.subscriber, 10000)
	sub := f.subscribe(t, p.Address)

	f.clock.now = 2 * 2592000
	for i := 0; i < 2; i++ {
		if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); err != nil {
			t.Fatalf("Renew %d: %v", i, err)
		}
	}

	all, err := f.eng.Payments(context.Background(), sub.Address, payment.ListOpts{})
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("receipts: got %d, want 3", len(all))
	}
	if all[0].Kind != payment.KindInitial {
		t.Errorf("first receipt kind: got %s, want initial", all[0].Kind)
	}

	renewals, err := f.eng.Payments(context.Background(), sub.Address, payment.ListOpts{Kind: payment.KindRenewal})
	if err != nil {
		t.Fatalf("Payments(renewal): %v", err)
	}
	if len(renewals) != 2 {
		t.Errorf("renewal receipts: got %d, want 2", len(renewals))
	}

	page, err := f.eng.Payments(context.Background(), sub.Address, payment.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Payments(page): %v", err)
	}
	if len(page) != 1 || page[0].Kind != payment.KindRenewal {
		t.Errorf("page: got %+v", page)
	}
}

// TestBillingScenario walks one subscription through a full lifecycle with a
// 30-day plan priced at 1000 units.
func TestBillingScenario(t *testing.T) {
	const (
		amount   = 1000
		interval = 2592000
	)

	f := newFixture(t)
	f.fund(t, f.subscriber, 10000)
	p := f.createPlan(t, 1, amount, interval)

	f.clock.now = 0
	sub := f.subscribe(t, p.Address)
	if sub.NextBillingAt != interval {
		t.Fatalf("next_billing_at: got %d, want %d", sub.NextBillingAt, interval)
	}
	if b := f.balance(t, f.merchant); b != amount {
		t.Fatalf("merchant balance: got %d, want %d", b, amount)
	}

	f.clock.now = 1000000
	if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); !errors.Is(err, recur.ErrRenewalTooEarly) {
		t.Fatalf("renew at t=1000000: got %v, want ErrRenewalTooEarly", err)
	}

	f.clock.now = interval
	if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); err != nil {
		t.Fatalf("renew at t=%d: %v", interval, err)
	}
	got, err := f.eng.GetSubscription(context.Background(), sub.Address)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextBillingAt != 2*interval {
		t.Fatalf("next_billing_at: got %d, want %d", got.NextBillingAt, 2*interval)
	}
	if b := f.balance(t, f.merchant); b != 2*amount {
		t.Fatalf("merchant balance: got %d, want %d", b, 2*amount)
	}

	if err := f.eng.DeactivatePlan(context.Background(), f.merchant, p.Address); err != nil {
		t.Fatal(err)
	}
	f.clock.now = 2 * interval
	if err := f.eng.Renew(context.Background(), f.subscriber, sub.Address); !errors.Is(err, recur.ErrPlanInactive) {
		t.Fatalf("renew on deactivated plan: got %v, want ErrPlanInactive", err)
	}
}
