package access

import (
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/types"
)

// Result is the outcome of an access check. It is populated on both grant
// and denial so callers can always see why and until when.
type Result struct {
	Granted      bool            `json:"granted"`
	Subscription address.Address `json:"subscription"`
	ExpiresAt    types.Timestamp `json:"expires_at"`
	CheckedAt    types.Timestamp `json:"checked_at"`
	Reason       string          `json:"reason,omitempty"`
}
