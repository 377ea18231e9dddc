// Package share holds the per-account distribution ledger.
package share

import "github.com/xraph/faucet/types"

// Entry is the cumulative amount credited to one account. Entries are
// created on first credit and never removed.
type Entry struct {
	types.Entity
	AccountID types.AccountID `json:"account_id"`
	Amount    types.Amount    `json:"amount"`
}
