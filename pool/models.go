// Package pool holds the faucet's singleton accounting state.
package pool

import "github.com/xraph/faucet/types"

// State is the faucet-wide record. Exactly one exists per store, written by
// Init and rewritten by every mutating entry point.
type State struct {
	types.Entity

	// Owner and TokenContract are fixed at Init.
	Owner         types.AccountID `json:"owner"`
	TokenContract types.AccountID `json:"token_contract"`

	TotalBalanceShare  types.Amount `json:"total_balance_share"`
	TotalShared        types.Amount `json:"total_shared"`
	TotalAccountShared types.Amount `json:"total_account_shared"`
	MaxSharePerAccount types.Amount `json:"max_share_per_account"`
	IsPaused           bool         `json:"is_paused"`

	// Reserved is the sum of amounts held back for pending transfers that
	// were admitted in reserve mode.
	Reserved types.Amount `json:"reserved"`
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// Info returns the public snapshot of s.
func (s *State) Info() *Info {
	return &Info{
		TotalBalanceShare:  s.TotalBalanceShare,
		TotalShared:        s.TotalShared,
		TotalAccountShared: s.TotalAccountShared,
		MaxSharePerAccount: s.MaxSharePerAccount,
		IsPaused:           s.IsPaused,
		Reserved:           s.Reserved,
		Owner:              s.Owner,
		TokenContract:      s.TokenContract,
	}
}

// Info is the read-only view returned to query callers.
type Info struct {
	TotalBalanceShare  types.Amount    `json:"total_balance_share"`
	TotalShared        types.Amount    `json:"total_shared"`
	TotalAccountShared types.Amount    `json:"total_account_shared"`
	MaxSharePerAccount types.Amount    `json:"max_share_per_account"`
	IsPaused           bool            `json:"is_paused"`
	Reserved           types.Amount    `json:"reserved"`
	Owner              types.AccountID `json:"owner"`
	TokenContract      types.AccountID `json:"token_contract"`
}
