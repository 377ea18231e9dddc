// Package types provides the value types shared across the faucet packages.
package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// maxAmount is the largest representable token amount (2^128 - 1), the
// range of a fungible-token balance on the external ledger.
var maxAmount = uint256.MustFromDecimal("340282366920938463463374607431768211455")

// Amount is a non-negative token quantity in the token's smallest unit.
// All arithmetic is checked: Add reports ErrOverflow and Sub reports
// ErrUnderflow instead of wrapping.
//
// The zero value is a zero amount.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an Amount holding n base units.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// MaxAmount returns the largest valid Amount.
func MaxAmount() Amount {
	return Amount{v: *maxAmount}
}

// ParseAmount parses a base-10 string such as "1000000000000000000".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if v.Gt(maxAmount) {
		return Amount{}, fmt.Errorf("%w: %q exceeds 128 bits", ErrInvalidAmount, s)
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is like ParseAmount but panics on error. Use for constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Arithmetic

// Add returns a + other, or ErrOverflow if the result exceeds MaxAmount.
func (a Amount) Add(other Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &other.v); overflow || out.v.Gt(maxAmount) {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrOverflow, a, other)
	}
	return out, nil
}

// Sub returns a - other, or ErrUnderflow if other is greater than a.
func (a Amount) Sub(other Amount) (Amount, error) {
	var out Amount
	if _, underflow := out.v.SubOverflow(&a.v, &other.v); underflow {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, other)
	}
	return out, nil
}

// Inc returns a + 1.
func (a Amount) Inc() (Amount, error) {
	return a.Add(NewAmount(1))
}

// Sum adds all values, stopping at the first overflow.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}

// Comparison

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or
// greater than other.
func (a Amount) Cmp(other Amount) int { return a.v.Cmp(&other.v) }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Equal reports whether both amounts are the same.
func (a Amount) Equal(other Amount) bool { return a.v.Eq(&other.v) }

// LessThan reports whether a < other.
func (a Amount) LessThan(other Amount) bool { return a.v.Lt(&other.v) }

// GreaterThan reports whether a > other.
func (a Amount) GreaterThan(other Amount) bool { return a.v.Gt(&other.v) }

// Uint64 returns the amount as a uint64 and whether it fit.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// Encoding

// String returns the base-10 representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalText implements encoding.TextMarshaler. Amounts are encoded as
// decimal strings so JSON consumers never lose precision.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
