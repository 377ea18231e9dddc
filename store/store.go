package store

import (
	"context"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Store is the unified storage interface for all faucet records.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Pool methods
	InitPool(ctx context.Context, s *pool.State) error
	GetPool(ctx context.Context) (*pool.State, error)

	// Share methods
	GetShare(ctx context.Context, account types.AccountID) (types.Amount, error)
	ListShares(ctx context.Context, opts share.ListOpts) ([]*share.Entry, error)

	// Transfer methods
	GetTransfer(ctx context.Context, transferID id.TransferID) (*transfer.Transfer, error)
	ListTransfers(ctx context.Context, opts transfer.ListOpts) ([]*transfer.Transfer, error)

	// Funding methods
	ListFundings(ctx context.Context, opts funding.ListOpts) ([]*funding.Record, error)

	// Apply writes every record in cs. Nothing is written if cs is invalid.
	Apply(ctx context.Context, cs *Changeset) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Changeset is the set of writes produced by one faucet call.
type Changeset struct {
	// Pool replaces the singleton. Required.
	Pool *pool.State

	// Share upserts one ledger entry, keeping its original CreatedAt.
	Share *share.Entry

	// Transfer upserts a transfer record by ID.
	Transfer *transfer.Transfer

	// Funding inserts a funding record.
	Funding *funding.Record
}

// Validate reports whether cs can be applied.
func (cs *Changeset) Validate() error {
	if cs == nil || cs.Pool == nil {
		return ErrEmptyChangeset
	}
	return nil
}
