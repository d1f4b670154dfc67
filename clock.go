package recur

import (
	"time"

	"github.com/xraph/recur/types"
)

// Clock supplies the current time for billing decisions. Every operation
// reads the clock exactly once, so a single call sees one consistent "now".
type Clock interface {
	Now() types.Timestamp
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() types.Timestamp

func (f ClockFunc) Now() types.Timestamp { return f() }

type systemClock struct{}

func (systemClock) Now() types.Timestamp { return types.At(time.Now()) }
