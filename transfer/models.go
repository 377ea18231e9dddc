// Package transfer tracks outbound token transfers between admission and
// settlement.
package transfer

import (
	"time"

	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Mode selects the accounting applied between admission and settlement.
type Mode string

const (
	// ModeReserve takes the amount out of the pool at admission and returns
	// it if the transfer fails.
	ModeReserve Mode = "reserve"

	// ModeLegacy leaves the pool untouched until settlement and credits the
	// account whatever the transfer outcome.
	ModeLegacy Mode = "legacy"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeReserve || m == ModeLegacy
}

// Transfer is the durable record of one distribution.
type Transfer struct {
	types.Entity
	ID             id.TransferID   `json:"id"`
	AccountID      types.AccountID `json:"account_id"`
	Amount         types.Amount    `json:"amount"`
	Memo           string          `json:"memo"`
	Status         Status          `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Mode           Mode            `json:"mode"`
	CapAtAdmission types.Amount    `json:"cap_at_admission"`
	SettledAt      *time.Time      `json:"settled_at,omitempty"`
}

// Clone returns an independent copy of t.
func (t *Transfer) Clone() *Transfer {
	c := *t
	if t.SettledAt != nil {
		at := *t.SettledAt
		c.SettledAt = &at
	}
	return &c
}

// IsPending reports whether t still awaits settlement.
func (t *Transfer) IsPending() bool { return t.Status == StatusPending }

// Request is what the faucet asks the token ledger to do.
type Request struct {
	Receiver types.AccountID
	Amount   types.Amount
	Memo     string
	// Deposit is attached to the ledger call (one base unit, as NEP-141
	// requires for ft_transfer).
	Deposit types.Amount
}

// Outcome is the result the token ledger reported for a transfer.
type Outcome struct {
	Success bool
	Reason  string
}

// Succeeded is the outcome of a completed transfer.
func Succeeded() Outcome { return Outcome{Success: true} }

// Failed is the outcome of a rejected transfer.
func Failed(reason string) Outcome { return Outcome{Reason: reason} }

// Settlement is the callback payload that finalizes a transfer.
type Settlement struct {
	TransferID id.TransferID
	AccountID  types.AccountID
	Amount     types.Amount
	Outcome    Outcome
}
