package types

import (
	"math"
	"testing"
	"time"
)

func TestAmountAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b Amount
		want Amount
		ok   bool
	}{
		{"Simple", Units(100), Units(200), Units(300), true},
		{"Zero", Units(0), Units(0), Units(0), true},
		{"MaxPlusZero", Amount(math.MaxUint64), Units(0), Amount(math.MaxUint64), true},
		{"Overflow", Amount(math.MaxUint64), Units(1), 0, false},
		{"OverflowBoth", Amount(math.MaxUint64), Amount(math.MaxUint64), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Add(tt.b)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAmountSub(t *testing.T) {
	tests := []struct {
		name string
		a, b Amount
		want Amount
		ok   bool
	}{
		{"Simple", Units(300), Units(200), Units(100), true},
		{"ToZero", Units(100), Units(100), Units(0), true},
		{"Underflow", Units(100), Units(101), 0, false},
		{"ZeroMinusOne", Units(0), Units(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Sub(tt.b)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAmountPredicates(t *testing.T) {
	if !Units(0).IsZero() {
		t.Error("Units(0) should be zero")
	}
	if Units(1).IsZero() {
		t.Error("Units(1) should not be zero")
	}
	if !Units(1).LessThan(Units(2)) {
		t.Error("1 should be less than 2")
	}
	if Units(2).LessThan(Units(2)) {
		t.Error("LessThan should be strict")
	}
	if got := Units(1000).String(); got != "1000" {
		t.Errorf("String: got %q, want %q", got, "1000")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name     string
		d        Duration
		positive bool
	}{
		{"Positive", Seconds(2592000), true},
		{"Zero", Seconds(0), false},
		{"Negative", Seconds(-60), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.IsPositive(); got != tt.positive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.positive)
			}
		})
	}

	if got := Seconds(90).Std(); got != 90*time.Second {
		t.Errorf("Std: got %v, want %v", got, 90*time.Second)
	}
	if got := Seconds(2592000).String(); got != "2592000s" {
		t.Errorf("String: got %q", got)
	}
}

func TestTimestampAdd(t *testing.T) {
	tests := []struct {
		name string
		t    Timestamp
		d    Duration
		want Timestamp
		ok   bool
	}{
		{"Simple", Timestamp(100), Seconds(2592000), Timestamp(2592100), true},
		{"Negative", Timestamp(100), Seconds(-100), Timestamp(0), true},
		{"MaxExact", Timestamp(math.MaxInt64 - 10), Seconds(10), Timestamp(math.MaxInt64), true},
		{"Overflow", Timestamp(math.MaxInt64 - 9), Seconds(10), Timestamp(math.MaxInt64 - 9), false},
		{"Underflow", Timestamp(math.MinInt64 + 9), Seconds(-10), Timestamp(math.MinInt64 + 9), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.t.Add(tt.d)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				// On failure the timestamp must come back unchanged.
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimestampComparison(t *testing.T) {
	a := Timestamp(100)
	b := Timestamp(200)

	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering wrong")
	}
	if a.Before(a) {
		t.Error("Before should be strict")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After ordering wrong")
	}
}

func TestTimestampConversion(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ts := At(now)
	if ts.Unix() != now.Unix() {
		t.Errorf("Unix: got %d, want %d", ts.Unix(), now.Unix())
	}
	if !ts.Time().Equal(now) {
		t.Errorf("Time: got %v, want %v", ts.Time(), now)
	}
	if got := ts.String(); got != "2025-06-01T12:00:00Z" {
		t.Errorf("String: got %q", got)
	}

	// Sub-second precision truncates.
	if At(now.Add(500*time.Millisecond)) != ts {
		t.Error("sub-second precision should truncate")
	}

	if !Timestamp(0).IsZero() {
		t.Error("Timestamp(0) should be zero")
	}
	if Timestamp(1).IsZero() {
		t.Error("Timestamp(1) should not be zero")
	}
}
