package faucet

import (
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Re-export common types for convenience so users don't have to import the
// types and transfer packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// AccountID is re-exported from types package.
type AccountID = types.AccountID

// Entity is re-exported from types package.
type Entity = types.Entity

// SettlementMode is re-exported from transfer package.
type SettlementMode = transfer.Mode

// Settlement modes.
const (
	ModeReserve = transfer.ModeReserve
	ModeLegacy  = transfer.ModeLegacy
)

// Re-export constructors
var (
	NewAmount       = types.NewAmount
	ParseAmount     = types.ParseAmount
	MustParseAmount = types.MustParseAmount
	ParseAccountID  = types.ParseAccountID
	NewEntity       = types.NewEntity
)
