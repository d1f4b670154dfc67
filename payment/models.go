package payment

import (
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/types"
)

type Kind string

const (
	KindInitial Kind = "initial"
	KindRenewal Kind = "renewal"
)

// Payment is the receipt for one successful charge.
type Payment struct {
	types.Entity
	ID           id.PaymentID    `json:"id"`
	Subscription address.Address `json:"subscription"`
	Plan         address.Address `json:"plan"`
	From         id.AccountID    `json:"from"`
	To           id.AccountID    `json:"to"`
	Amount       types.Amount    `json:"amount"`
	Kind         Kind            `json:"kind"`
	PaidAt       types.Timestamp `json:"paid_at"`
}

type ListOpts struct {
	Kind   Kind
	Limit  int
	Offset int
}
