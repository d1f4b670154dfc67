// Package address implements deterministic record addressing.
//
// Plan and subscription records are located by an address derived from their
// defining tuple, not by a random identifier: the same inputs always produce
// the same address, so a caller holding (merchant, plan number) or
// (subscriber, plan address) can locate the record with no enumeration API,
// and at most one record can exist per tuple. Derivation is a namespaced
// SHA-256 over the tuple components, so plan and subscription addresses can
// never collide with each other.
package address

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/xraph/recur/id"
)

// Size is the byte length of an address.
const Size = 32

// Derivation namespaces. Each record kind hashes under its own tag.
const (
	nsPlan         = "plan"
	nsSubscription = "subscription"
)

// Address is a 32-byte derived record address.
type Address [Size]byte

// Nil is the zero-value Address.
var Nil Address

// DerivePlan computes the address of the plan record for (merchant, number).
// The merchant's canonical string form and the little-endian encoding of the
// 16-bit plan number feed the hash, separated so no two tuples can produce
// the same preimage.
func DerivePlan(merchant id.AccountID, number uint16) Address {
	var le [2]byte
	binary.LittleEndian.PutUint16(le[:], number)

	return derive(nsPlan, []byte(merchant.String()), le[:])
}

// DeriveSubscription computes the address of the subscription record for
// (subscriber, plan address).
func DeriveSubscription(subscriber id.AccountID, plan Address) Address {
	return derive(nsSubscription, []byte(subscriber.String()), plan[:])
}

func derive(namespace string, components ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(namespace))

	for _, c := range components {
		h.Write([]byte{0}) // component separator
		h.Write(c)
	}

	var a Address
	copy(a[:], h.Sum(nil))

	return a
}

// Parse parses a 64-character hex string into an Address.
func Parse(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Nil, fmt.Errorf("address: parse %q: %w", s, err)
	}

	if len(raw) != Size {
		return Nil, fmt.Errorf("address: parse %q: want %d bytes, got %d", s, Size, len(raw))
	}

	var a Address
	copy(a[:], raw)

	return a, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded addresses.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("address: must parse %q: %v", s, err))
	}

	return a
}

// String returns the lowercase hex representation.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsNil reports whether this address is the zero value.
func (a Address) IsNil() bool {
	return a == Nil
}

// Equal reports whether two addresses are the same.
func (a Address) Equal(other Address) bool {
	return a == other
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
func (a Address) Value() (driver.Value, error) {
	if a.IsNil() {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return a.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (a *Address) Scan(src any) error {
	if src == nil {
		*a = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("address: cannot scan %T into Address", src)
	}
}
