package plan

import (
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/types"
)

// MaxNameLen is the maximum plan name length in bytes.
const MaxNameLen = 64

type Plan struct {
	types.Entity
	Address  address.Address `json:"address"`
	Merchant id.AccountID    `json:"merchant"`
	Number   uint16          `json:"number"`
	Amount   types.Amount    `json:"amount"`
	Interval types.Duration  `json:"interval"`
	Name     string          `json:"name"`
	Active   bool            `json:"active"`
}

// VerifyAddress recomputes the plan's derived address from its defining
// tuple and reports whether the stored address matches.
func (p *Plan) VerifyAddress() bool {
	return p.Address == address.DerivePlan(p.Merchant, p.Number)
}
