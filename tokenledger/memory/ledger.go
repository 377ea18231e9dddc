// Package memory is an in-process fungible-token ledger with NEP-141 style
// semantics. Accounts must be registered before they can receive tokens,
// plain transfers carry a one-unit deposit, and transfer-call notifies the
// receiver and refunds whatever it hands back.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Errors reported by the ledger.
var (
	ErrNotRegistered       = errors.New("tokenledger: account is not registered")
	ErrInsufficientBalance = errors.New("tokenledger: insufficient balance")
	ErrSelfTransfer        = errors.New("tokenledger: sender and receiver must differ")
	ErrZeroAmount          = errors.New("tokenledger: amount must be positive")
	ErrDeposit             = errors.New("tokenledger: requires attached deposit of exactly 1")
)

// Receiver is notified by TransferCall. It returns the unused amount, which
// is refunded to the sender.
type Receiver interface {
	NotifyFunding(ctx context.Context, call faucet.Call, sender types.AccountID, amount types.Amount, msg string) (types.Amount, error)
}

// FailFunc decides whether a transfer should be rejected. A nil error lets
// the transfer proceed.
type FailFunc func(from types.AccountID, req transfer.Request) error

// Ledger holds balances for one token contract.
type Ledger struct {
	contract types.AccountID

	mu       sync.Mutex
	balances map[types.AccountID]types.Amount
	fail     FailFunc
	gate     chan struct{}
}

// New creates an empty ledger for the token contract account.
func New(contract types.AccountID) *Ledger {
	return &Ledger{
		contract: contract,
		balances: make(map[types.AccountID]types.Amount),
	}
}

// Contract returns the token contract account.
func (l *Ledger) Contract() types.AccountID { return l.contract }

// RegisterAccount opens a zero balance for account. Registering twice is a
// no-op.
func (l *Ledger) RegisterAccount(account types.AccountID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.balances[account]; !ok {
		l.balances[account] = types.Amount{}
	}
}

// Mint registers account if needed and credits amount to it.
func (l *Ledger) Mint(account types.AccountID, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	updated, err := l.balances[account].Add(amount)
	if err != nil {
		return err
	}
	l.balances[account] = updated
	return nil
}

// BalanceOf returns the balance of account, zero when unregistered.
func (l *Ledger) BalanceOf(account types.AccountID) types.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// IsRegistered reports whether account can receive tokens.
func (l *Ledger) IsRegistered(account types.AccountID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.balances[account]
	return ok
}

// FailWith installs fn to reject transfers. Pass nil to clear it.
func (l *Ledger) FailWith(fn FailFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = fn
}

// Hold makes every following Transfer block until Release is called.
func (l *Ledger) Hold() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gate == nil {
		l.gate = make(chan struct{})
	}
}

// Release lets held transfers proceed.
func (l *Ledger) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gate != nil {
		close(l.gate)
		l.gate = nil
	}
}

// Account returns a faucet.TokenLedger that sends from account.
func (l *Ledger) Account(account types.AccountID) *Account {
	return &Account{ledger: l, id: account}
}

// Transfer moves req.Amount from one account to req.Receiver.
func (l *Ledger) Transfer(ctx context.Context, from types.AccountID, req transfer.Request) error {
	if !req.Deposit.Equal(types.NewAmount(1)) {
		return ErrDeposit
	}

	l.mu.Lock()
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fail != nil {
		if err := l.fail(from, req); err != nil {
			return err
		}
	}
	return l.move(from, req.Receiver, req.Amount)
}

// TransferCall moves amount to receiverID, notifies receiver, and refunds
// the unused part. A receiver error refunds everything. It returns the
// amount the receiver kept.
func (l *Ledger) TransferCall(ctx context.Context, from, receiverID types.AccountID, receiver Receiver, amount types.Amount, msg string) (types.Amount, error) {
	l.mu.Lock()
	err := l.move(from, receiverID, amount)
	l.mu.Unlock()
	if err != nil {
		return types.Amount{}, err
	}

	unused, callErr := receiver.NotifyFunding(ctx, faucet.From(l.contract), from, amount, msg)
	if callErr != nil || unused.GreaterThan(amount) {
		unused = amount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !unused.IsZero() {
		// The receiver may have spent part of the refund already.
		refund := unused
		if held := l.balances[receiverID]; held.LessThan(refund) {
			refund = held
		}
		if err := l.move(receiverID, from, refund); err != nil && !errors.Is(err, ErrZeroAmount) {
			return types.Amount{}, err
		}
		unused = refund
	}

	used, err := amount.Sub(unused)
	if err != nil {
		return types.Amount{}, err
	}
	if callErr != nil {
		return used, fmt.Errorf("tokenledger: receiver rejected transfer: %w", callErr)
	}
	return used, nil
}

// move transfers between registered accounts. Callers hold mu.
func (l *Ledger) move(from, to types.AccountID, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	fromBalance, ok := l.balances[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, from)
	}
	toBalance, ok := l.balances[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, to)
	}

	debited, err := fromBalance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, fromBalance, amount)
	}
	credited, err := toBalance.Add(amount)
	if err != nil {
		return err
	}
	l.balances[from] = debited
	l.balances[to] = credited
	return nil
}

// Account is a ledger handle bound to one sender.
type Account struct {
	ledger *Ledger
	id     types.AccountID
}

// compile-time interface check
var _ faucet.TokenLedger = (*Account)(nil)

// ID returns the sending account.
func (a *Account) ID() types.AccountID { return a.id }

// Transfer implements faucet.TokenLedger.
func (a *Account) Transfer(ctx context.Context, req transfer.Request) error {
	return a.ledger.Transfer(ctx, a.id, req)
}
