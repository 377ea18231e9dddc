package types

import "fmt"

// Account id length bounds enforced by the token ledger.
const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

// AccountID identifies an account on the ledger the faucet runs against,
// for example "alice.testnet" or "faucet.icebear.near".
type AccountID string

// ParseAccountID validates s and returns it as an AccountID.
//
// A valid id is 2 to 64 characters of lowercase letters and digits, split
// into parts by '.', where each part may contain single '-' or '_'
// separators between alphanumeric runs.
func ParseAccountID(s string) (AccountID, error) {
	if len(s) < MinAccountIDLen || len(s) > MaxAccountIDLen {
		return "", fmt.Errorf("%w: %q: length must be between %d and %d",
			ErrInvalidAccountID, s, MinAccountIDLen, MaxAccountIDLen)
	}

	lastSeparator := true // the id may not start with a separator
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			lastSeparator = false
		case c == '-' || c == '_' || c == '.':
			if lastSeparator {
				return "", fmt.Errorf("%w: %q: unexpected %q at position %d",
					ErrInvalidAccountID, s, c, i)
			}
			lastSeparator = true
		default:
			return "", fmt.Errorf("%w: %q: invalid character %q at position %d",
				ErrInvalidAccountID, s, c, i)
		}
	}
	if lastSeparator {
		return "", fmt.Errorf("%w: %q: must not end with a separator", ErrInvalidAccountID, s)
	}

	return AccountID(s), nil
}

// MustParseAccountID is like ParseAccountID but panics on error.
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String implements fmt.Stringer.
func (a AccountID) String() string { return string(a) }

// IsZero reports whether the id is empty.
func (a AccountID) IsZero() bool { return a == "" }
