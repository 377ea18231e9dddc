package faucet

import (
	"errors"

	"github.com/xraph/faucet/types"
)

// Sentinel errors for faucet failure scenarios.
var (
	// Authorization errors
	ErrNotOwner         = errors.New("faucet: caller is not the owner")
	ErrNotTokenContract = errors.New("faucet: caller is not the token contract")
	ErrSenderNotOwner   = errors.New("faucet: funding sender is not the owner")
	ErrNotSelf          = errors.New("faucet: settlement must come from the faucet itself")

	// Validation errors
	ErrInvalidDeposit   = errors.New("faucet: attached deposit is too small")
	ErrPaused           = errors.New("faucet: faucet is paused")
	ErrInsufficientPool = errors.New("faucet: insufficient pool balance")
	ErrCapExceeded      = errors.New("faucet: per-account cap exceeded")
	ErrInvalidAccountID = types.ErrInvalidAccountID
	ErrInvalidAmount    = types.ErrInvalidAmount

	// Arithmetic errors
	ErrOverflow  = types.ErrOverflow
	ErrUnderflow = types.ErrUnderflow

	// Lifecycle errors
	ErrNotInitialized     = errors.New("faucet: not initialized")
	ErrAlreadyInitialized = errors.New("faucet: already initialized")
	ErrNotStarted         = errors.New("faucet: transfer worker not started")
	ErrTransferQueueFull  = errors.New("faucet: transfer queue full")

	// Transfer errors
	ErrTransferNotFound   = errors.New("faucet: transfer not found")
	ErrAlreadySettled     = errors.New("faucet: transfer already settled")
	ErrSettlementMismatch = errors.New("faucet: settlement does not match transfer")
	ErrTransferFailed     = errors.New("faucet: token transfer failed")

	// Store errors
	ErrStoreClosed = errors.New("faucet: store is closed")
)

// IsAuthorization returns true if the caller was not allowed to make the call.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrNotTokenContract) ||
		errors.Is(err, ErrSenderNotOwner) ||
		errors.Is(err, ErrNotSelf)
}

// IsValidation returns true if the call was rejected by a precondition.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDeposit) ||
		errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrInsufficientPool) ||
		errors.Is(err, ErrCapExceeded) ||
		errors.Is(err, ErrInvalidAccountID) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsArithmetic returns true if a checked addition or subtraction failed.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrUnderflow)
}

// IsNotFound returns true if the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransferNotFound) || errors.Is(err, ErrNotInitialized)
}
