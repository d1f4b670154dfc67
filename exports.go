package recur

import "github.com/xraph/recur/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Timestamp is re-exported from types package.
type Timestamp = types.Timestamp

// Duration is re-exported from types package.
type Duration = types.Duration

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export unit constructors
var (
	Units   = types.Units
	Seconds = types.Seconds
	At      = types.At
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
