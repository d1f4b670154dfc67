// Package types provides common types used across Recur.
package types

import (
	"fmt"
	"math"
	"time"
)

// Amount is a value in the smallest indivisible unit of the backing ledger's
// currency. All arithmetic is integer-only — no floating point. The zero
// value is a valid amount of zero units.
type Amount uint64

// Units creates an Amount from a raw unit count.
func Units(n uint64) Amount { return Amount(n) }

// Add returns the sum of two amounts and reports whether it fit without
// wrapping.
func (a Amount) Add(other Amount) (Amount, bool) {
	if a > math.MaxUint64-other {
		return 0, false
	}
	return a + other, true
}

// Sub returns the difference of two amounts and reports whether the
// subtraction stayed non-negative.
func (a Amount) Sub(other Amount) (Amount, bool) {
	if a < other {
		return 0, false
	}
	return a - other, true
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// LessThan returns true if this amount is less than other.
func (a Amount) LessThan(other Amount) bool { return a < other }

// String returns the raw unit count in decimal.
func (a Amount) String() string { return fmt.Sprintf("%d", uint64(a)) }

// Duration is a billing interval in whole seconds. Intervals are signed so
// that invalid (non-positive) configurations can be represented and rejected.
type Duration int64

// Seconds creates a Duration from a second count.
func Seconds(n int64) Duration { return Duration(n) }

// IsPositive returns true if the duration is strictly positive.
func (d Duration) IsPositive() bool { return d > 0 }

// Std converts the duration to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) * time.Second }

// String returns the duration formatted as seconds, e.g. "2592000s".
func (d Duration) String() string { return fmt.Sprintf("%ds", int64(d)) }

// Timestamp is a point in time as whole seconds since the Unix epoch.
type Timestamp int64

// At creates a Timestamp from a time.Time, truncating sub-second precision.
func At(t time.Time) Timestamp { return Timestamp(t.Unix()) }

// Add advances the timestamp by d and reports whether the result fit in the
// signed 64-bit range. The timestamp is unchanged when it did not.
func (t Timestamp) Add(d Duration) (Timestamp, bool) {
	if d > 0 && t > Timestamp(math.MaxInt64-int64(d)) {
		return t, false
	}
	if d < 0 && t < Timestamp(math.MinInt64-int64(d)) {
		return t, false
	}
	return t + Timestamp(d), true
}

// Before returns true if t is strictly earlier than other.
func (t Timestamp) Before(other Timestamp) bool { return t < other }

// After returns true if t is strictly later than other.
func (t Timestamp) After(other Timestamp) bool { return t > other }

// IsZero returns true if the timestamp is the epoch zero value.
func (t Timestamp) IsZero() bool { return t == 0 }

// Time converts the timestamp to a time.Time in UTC.
func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0).UTC() }

// Unix returns the raw second count.
func (t Timestamp) Unix() int64 { return int64(t) }

// String returns the timestamp in RFC 3339 form.
func (t Timestamp) String() string { return t.Time().Format(time.RFC3339) }
