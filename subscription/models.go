package subscription

import (
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

type Subscription struct {
	types.Entity
	Address       address.Address `json:"address"`
	Subscriber    id.AccountID    `json:"subscriber"`
	Plan          address.Address `json:"plan"`
	Amount        types.Amount    `json:"amount"`
	Interval      types.Duration  `json:"interval"`
	NextBillingAt types.Timestamp `json:"next_billing_at"`
	StartedAt     types.Timestamp `json:"started_at"`
	Status        Status          `json:"status"`
	AutoRenew     bool            `json:"auto_renew"`
}

// VerifyAddress recomputes the subscription's derived address from its
// defining tuple and reports whether the stored address matches.
func (s *Subscription) VerifyAddress() bool {
	return s.Address == address.DeriveSubscription(s.Subscriber, s.Plan)
}
