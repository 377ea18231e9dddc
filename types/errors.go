package types

import "errors"

var (
	// ErrOverflow indicates an addition exceeded the maximum token amount.
	ErrOverflow = errors.New("faucet: arithmetic overflow")

	// ErrUnderflow indicates a subtraction would drop below zero.
	ErrUnderflow = errors.New("faucet: arithmetic underflow")

	// ErrInvalidAmount indicates a token amount could not be parsed.
	ErrInvalidAmount = errors.New("faucet: invalid amount")

	// ErrInvalidAccountID indicates an account identifier is malformed.
	ErrInvalidAccountID = errors.New("faucet: invalid account id")
)
