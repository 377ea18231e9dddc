package transfer

import (
	"context"

	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/types"
)

type Store interface {
	GetTransfer(ctx context.Context, transferID id.TransferID) (*Transfer, error)
	ListTransfers(ctx context.Context, opts ListOpts) ([]*Transfer, error)
}

// ListOpts filters transfers. Results are ordered oldest first.
type ListOpts struct {
	AccountID types.AccountID
	Status    Status
	Limit     int
	Offset    int
}
