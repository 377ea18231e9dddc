package faucet

import (
	"context"
	"fmt"

	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Call carries the caller context of a mutating entry point: who is calling
// and what they attached.
type Call struct {
	Predecessor types.AccountID
	Deposit     types.Amount
}

// From returns a Call with no deposit.
func From(account types.AccountID) Call {
	return Call{Predecessor: account}
}

// WithDeposit returns a copy of c carrying deposit.
func (c Call) WithDeposit(deposit types.Amount) Call {
	c.Deposit = deposit
	return c
}

// TokenLedger moves tokens on the external fungible-token ledger. A nil
// error means the ledger reported the transfer as successful.
type TokenLedger interface {
	Transfer(ctx context.Context, req transfer.Request) error
}

// Receipt tracks one admitted distribution until it is settled.
type Receipt struct {
	admitted *transfer.Transfer

	done    chan struct{}
	settled *transfer.Transfer
	err     error
}

func newReceipt(t *transfer.Transfer) *Receipt {
	return &Receipt{
		admitted: t.Clone(),
		done:     make(chan struct{}),
	}
}

// Transfer returns the pending transfer as it was admitted.
func (r *Receipt) Transfer() *transfer.Transfer {
	return r.admitted.Clone()
}

// Done is closed once the transfer has been settled or settlement failed.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the transfer is settled. It returns the settled transfer
// and, when the token ledger rejected the transfer, an error wrapping
// ErrTransferFailed. A settlement that could not be applied is returned as is.
func (r *Receipt) Wait(ctx context.Context) (*transfer.Transfer, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if r.err != nil {
		return r.settled, r.err
	}
	if r.settled != nil && r.settled.Status == transfer.StatusFailed {
		return r.settled, fmt.Errorf("%w: %s", ErrTransferFailed, r.settled.Reason)
	}
	return r.settled, nil
}

func (r *Receipt) resolve(settled *transfer.Transfer, err error) {
	r.settled = settled
	r.err = err
	close(r.done)
}
