package share

import (
	"context"

	"github.com/xraph/faucet/types"
)

type Store interface {
	// GetShare returns the account's entry amount, or zero when absent.
	GetShare(ctx context.Context, account types.AccountID) (types.Amount, error)
	ListShares(ctx context.Context, opts ListOpts) ([]*Entry, error)
}

// ListOpts pages through entries ordered by account id.
type ListOpts struct {
	Limit  int
	Offset int
}
