package faucet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/plugin"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/store/memory"
	ledger "github.com/xraph/faucet/tokenledger/memory"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

const (
	owner   types.AccountID = "owner.testnet"
	token   types.AccountID = "token.testnet"
	self    types.AccountID = "faucet.testnet"
	alice   types.AccountID = "alice.testnet"
	bob     types.AccountID = "bob.testnet"
	mallory types.AccountID = "mallory.testnet"
)

type fixture struct {
	f      *faucet.Faucet
	tokens *ledger.Ledger
	store  *memory.Store
}

func amt(n uint64) types.Amount { return types.NewAmount(n) }

func deposit(account types.AccountID) faucet.Call {
	return faucet.From(account).WithDeposit(amt(1))
}

// newFixture starts a faucet over a memory store with the pool initialized
// at the given cap. The owner holds 10000 tokens on the ledger.
func newFixture(t *testing.T, maxShare uint64, opts ...faucet.Option) *fixture {
	t.Helper()
	return newFixtureWith(t, maxShare, nil, opts...)
}

// newGatedFixture is newFixture with every token transfer held at a gate.
func newGatedFixture(t *testing.T, maxShare uint64, opts ...faucet.Option) (*fixture, *gatedLedger) {
	t.Helper()
	var gate *gatedLedger
	fx := newFixtureWith(t, maxShare, func(next faucet.TokenLedger) faucet.TokenLedger {
		gate = newGatedLedger(next)
		return gate
	}, opts...)
	// Unblock held transfers so Stop can drain the workers.
	t.Cleanup(gate.open)
	return fx, gate
}

func newFixtureWith(t *testing.T, maxShare uint64, wrap func(faucet.TokenLedger) faucet.TokenLedger, opts ...faucet.Option) *fixture {
	t.Helper()

	tokens := ledger.New(token)
	for _, a := range []types.AccountID{self, alice, bob, mallory} {
		tokens.RegisterAccount(a)
	}
	require.NoError(t, tokens.Mint(owner, amt(10000)))
	require.NoError(t, tokens.Mint(mallory, amt(100)))

	var tl faucet.TokenLedger = tokens.Account(self)
	if wrap != nil {
		tl = wrap(tl)
	}

	s := memory.New()
	f := faucet.New(s, tl, append([]faucet.Option{faucet.WithAccountID(self)}, opts...)...)

	ctx := context.Background()
	require.NoError(t, f.Start(ctx))
	t.Cleanup(func() { _ = f.Stop() })
	require.NoError(t, f.Init(ctx, owner, token, amt(maxShare)))

	return &fixture{f: f, tokens: tokens, store: s}
}

func (fx *fixture) fund(t *testing.T, n uint64) {
	t.Helper()
	used, err := fx.tokens.TransferCall(context.Background(), owner, self, fx.f, amt(n), "top up")
	require.NoError(t, err)
	require.True(t, used.Equal(amt(n)), "used = %s", used)
}

func (fx *fixture) info(t *testing.T) (balance, shared, accounts, reserved string) {
	t.Helper()
	info, err := fx.f.Info(context.Background())
	require.NoError(t, err)
	return info.TotalBalanceShare.String(), info.TotalShared.String(),
		info.TotalAccountShared.String(), info.Reserved.String()
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// gatedLedger signals when a transfer starts and holds it until released.
type gatedLedger struct {
	next    faucet.TokenLedger
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedLedger) open() { g.once.Do(func() { close(g.release) }) }

func newGatedLedger(next faucet.TokenLedger) *gatedLedger {
	return &gatedLedger{
		next:    next,
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedLedger) Transfer(ctx context.Context, req transfer.Request) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.next.Transfer(ctx, req)
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("starts with zero counters", func(t *testing.T) {
		fx := newFixture(t, 1000)

		info, err := fx.f.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, owner, info.Owner)
		assert.Equal(t, token, info.TokenContract)
		assert.Equal(t, "1000", info.MaxSharePerAccount.String())
		assert.True(t, info.TotalBalanceShare.IsZero())
		assert.True(t, info.TotalShared.IsZero())
		assert.True(t, info.TotalAccountShared.IsZero())
		assert.False(t, info.IsPaused)
	})

	t.Run("only once", func(t *testing.T) {
		fx := newFixture(t, 1000)
		err := fx.f.Init(ctx, owner, token, amt(5))
		assert.ErrorIs(t, err, faucet.ErrAlreadyInitialized)
	})

	t.Run("rejects malformed accounts", func(t *testing.T) {
		f := faucet.New(memory.New(), nil)
		assert.ErrorIs(t, f.Init(ctx, "Owner!", token, amt(1)), faucet.ErrInvalidAccountID)
		assert.ErrorIs(t, f.Init(ctx, owner, "", amt(1)), faucet.ErrInvalidAccountID)
	})

	t.Run("queries before init", func(t *testing.T) {
		f := faucet.New(memory.New(), nil)
		_, err := f.Info(ctx)
		assert.ErrorIs(t, err, faucet.ErrNotInitialized)
		assert.True(t, faucet.IsNotFound(err))
	})
}

// ──────────────────────────────────────────────────
// Funding
// ──────────────────────────────────────────────────

func TestNotifyFunding(t *testing.T) {
	ctx := context.Background()

	t.Run("owner through token contract", func(t *testing.T) {
		fx := newFixture(t, 1000)
		fx.fund(t, 500)
		fx.fund(t, 250)

		balance, _, _, _ := fx.info(t)
		assert.Equal(t, "750", balance)
		assert.Equal(t, "750", fx.tokens.BalanceOf(self).String())

		recs, err := fx.f.Fundings(ctx, funding.ListOpts{})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, owner, recs[0].Sender)
		assert.Equal(t, "500", recs[0].Amount.String())
		assert.Equal(t, "top up", recs[0].Message)
		assert.Equal(t, id.PrefixFunding, recs[0].ID.Prefix())
	})

	tests := []struct {
		name   string
		call   faucet.Call
		sender types.AccountID
		want   error
	}{
		{"predecessor is not the token contract", faucet.From(mallory), owner, faucet.ErrNotTokenContract},
		{"sender is not the owner", faucet.From(token), mallory, faucet.ErrSenderNotOwner},
		{"neither", faucet.From(mallory), mallory, faucet.ErrSenderNotOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, 1000)
			fx.fund(t, 100)

			refund, err := fx.f.NotifyFunding(ctx, tt.call, tt.sender, amt(50), "")
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, faucet.IsAuthorization(err))
			assert.True(t, refund.IsZero())

			balance, _, _, _ := fx.info(t)
			assert.Equal(t, "100", balance)
		})
	}

	t.Run("rejected transfer call is refunded", func(t *testing.T) {
		fx := newFixture(t, 1000)

		_, err := fx.tokens.TransferCall(ctx, mallory, self, fx.f, amt(40), "")
		assert.ErrorIs(t, err, faucet.ErrSenderNotOwner)
		assert.Equal(t, "100", fx.tokens.BalanceOf(mallory).String())
		assert.True(t, fx.tokens.BalanceOf(self).IsZero())
	})

	t.Run("overflow leaves the pool unchanged", func(t *testing.T) {
		fx := newFixture(t, 1000)
		fx.fund(t, 10)

		_, err := fx.f.NotifyFunding(ctx, faucet.From(token), owner, types.MaxAmount(), "")
		assert.ErrorIs(t, err, faucet.ErrOverflow)
		assert.True(t, faucet.IsArithmetic(err))

		balance, _, _, _ := fx.info(t)
		assert.Equal(t, "10", balance)
	})
}

// ──────────────────────────────────────────────────
// Distribution
// ──────────────────────────────────────────────────

func TestDistributionScenario(t *testing.T) {
	ctx := waitCtx(t)
	fx := newFixture(t, 1000)
	fx.fund(t, 500)

	balance, _, _, _ := fx.info(t)
	require.Equal(t, "500", balance)

	receipt, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(200))
	require.NoError(t, err)

	admitted := receipt.Transfer()
	assert.Equal(t, transfer.StatusPending, admitted.Status)
	assert.Equal(t, "Faucet of ICB Token", admitted.Memo)
	assert.Equal(t, "1000", admitted.CapAtAdmission.String())

	settled, err := receipt.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusSucceeded, settled.Status)
	require.NotNil(t, settled.SettledAt)

	balance, shared, accounts, reserved := fx.info(t)
	assert.Equal(t, "300", balance)
	assert.Equal(t, "200", shared)
	assert.Equal(t, "1", accounts)
	assert.Equal(t, "0", reserved)

	got, err := fx.f.SharedBalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "200", got.String())
	assert.Equal(t, "200", fx.tokens.BalanceOf(alice).String())

	_, err = fx.f.RequestDistribution(ctx, deposit(alice), amt(900))
	assert.Error(t, err)
	assert.True(t, faucet.IsValidation(err))

	// With enough in the pool the same request trips the cap.
	fx.fund(t, 1000)
	_, err = fx.f.RequestDistribution(ctx, deposit(alice), amt(900))
	assert.ErrorIs(t, err, faucet.ErrCapExceeded)

	got, err = fx.f.SharedBalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "200", got.String())
}

func TestRequestDistributionValidation(t *testing.T) {
	ctx := waitCtx(t)

	tests := []struct {
		name   string
		call   faucet.Call
		amount uint64
		want   error
	}{
		{"no deposit", faucet.From(alice), 10, faucet.ErrInvalidDeposit},
		{"zero amount", deposit(alice), 0, faucet.ErrInvalidAmount},
		{"malformed account", deposit("Alice"), 10, faucet.ErrInvalidAccountID},
		{"more than the pool", deposit(alice), 101, faucet.ErrInsufficientPool},
		{"over the cap", deposit(alice), 51, faucet.ErrCapExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, 50)
			fx.fund(t, 100)

			receipt, err := fx.f.RequestDistribution(ctx, tt.call, amt(tt.amount))
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, faucet.IsValidation(err))
			assert.Nil(t, receipt)

			balance, _, _, reserved := fx.info(t)
			assert.Equal(t, "100", balance)
			assert.Equal(t, "0", reserved)

			pending, err := fx.f.Transfers(ctx, transfer.ListOpts{})
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}

	t.Run("deposit floor", func(t *testing.T) {
		floors := []struct {
			name     string
			opts     []faucet.Option
			accepted map[uint64]bool
		}{
			{"default", nil, map[uint64]bool{0: false, 1: true, 2: true, 5: true}},
			{"floor of one", []faucet.Option{faucet.WithDepositFloor(amt(1))}, map[uint64]bool{0: false, 1: false, 2: true, 5: true}},
		}
		for _, floor := range floors {
			for _, n := range []uint64{0, 1, 2, 5} {
				fx := newFixture(t, 50, floor.opts...)
				fx.fund(t, 100)

				receipt, err := fx.f.RequestDistribution(ctx, faucet.From(alice).WithDeposit(amt(n)), amt(10))
				if !floor.accepted[n] {
					assert.ErrorIs(t, err, faucet.ErrInvalidDeposit, "%s: deposit %d", floor.name, n)
					continue
				}
				require.NoError(t, err, "%s: deposit %d", floor.name, n)
				_, err = receipt.Wait(ctx)
				require.NoError(t, err)
			}
		}
	})

	t.Run("not started", func(t *testing.T) {
		f := faucet.New(memory.New(), nil)
		require.NoError(t, f.Init(ctx, owner, token, amt(50)))

		_, err := f.RequestDistribution(ctx, deposit(alice), amt(10))
		assert.ErrorIs(t, err, faucet.ErrNotStarted)
	})

	t.Run("after stop", func(t *testing.T) {
		fx := newFixture(t, 50)
		fx.fund(t, 100)
		require.NoError(t, fx.f.Stop())

		_, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(10))
		assert.ErrorIs(t, err, faucet.ErrNotStarted)
	})
}

func TestReserveMode(t *testing.T) {
	t.Run("pending transfers count against pool and cap", func(t *testing.T) {
		ctx := waitCtx(t)
		fx, gate := newGatedFixture(t, 100)
		fx.fund(t, 150)

		first, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(60))
		require.NoError(t, err)
		<-gate.entered

		balance, shared, _, reserved := fx.info(t)
		assert.Equal(t, "90", balance)
		assert.Equal(t, "0", shared)
		assert.Equal(t, "60", reserved)

		// 60 pending + 50 > 100 even though nothing is credited yet.
		_, err = fx.f.RequestDistribution(ctx, deposit(alice), amt(50))
		assert.ErrorIs(t, err, faucet.ErrCapExceeded)

		pending, err := fx.f.Transfers(ctx, transfer.ListOpts{AccountID: alice, Status: transfer.StatusPending})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, first.Transfer().ID, pending[0].ID)

		gate.open()
		_, err = first.Wait(ctx)
		require.NoError(t, err)

		balance, shared, accounts, reserved := fx.info(t)
		assert.Equal(t, "90", balance)
		assert.Equal(t, "60", shared)
		assert.Equal(t, "1", accounts)
		assert.Equal(t, "0", reserved)
	})

	t.Run("failed transfer returns to the pool", func(t *testing.T) {
		ctx := waitCtx(t)
		fx := newFixture(t, 1000)
		fx.fund(t, 500)
		fx.tokens.FailWith(func(types.AccountID, transfer.Request) error {
			return errors.New("receiver storage not paid")
		})

		receipt, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(200))
		require.NoError(t, err)

		settled, err := receipt.Wait(ctx)
		assert.ErrorIs(t, err, faucet.ErrTransferFailed)
		require.NotNil(t, settled)
		assert.Equal(t, transfer.StatusFailed, settled.Status)
		assert.Equal(t, "receiver storage not paid", settled.Reason)

		balance, shared, accounts, reserved := fx.info(t)
		assert.Equal(t, "500", balance)
		assert.Equal(t, "0", shared)
		assert.Equal(t, "0", accounts)
		assert.Equal(t, "0", reserved)

		got, err := fx.f.SharedBalanceOf(ctx, alice)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
		assert.True(t, fx.tokens.BalanceOf(alice).IsZero())
	})
}

func TestLegacyMode(t *testing.T) {
	t.Run("failed transfer is still credited", func(t *testing.T) {
		ctx := waitCtx(t)
		fx := newFixture(t, 1000, faucet.WithSettlementMode(faucet.ModeLegacy))
		fx.fund(t, 500)
		fx.tokens.FailWith(func(types.AccountID, transfer.Request) error {
			return errors.New("boom")
		})

		receipt, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(200))
		require.NoError(t, err)
		assert.Equal(t, faucet.ModeLegacy, receipt.Transfer().Mode)

		settled, err := receipt.Wait(ctx)
		assert.ErrorIs(t, err, faucet.ErrTransferFailed)
		assert.Equal(t, transfer.StatusFailed, settled.Status)

		balance, shared, accounts, _ := fx.info(t)
		assert.Equal(t, "300", balance)
		assert.Equal(t, "200", shared)
		assert.Equal(t, "1", accounts)

		got, err := fx.f.SharedBalanceOf(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "200", got.String())
		assert.True(t, fx.tokens.BalanceOf(alice).IsZero())
	})

	t.Run("stale pool surfaces as underflow", func(t *testing.T) {
		ctx := waitCtx(t)
		fx := newFixture(t, 1000,
			faucet.WithSettlementMode(faucet.ModeLegacy),
			faucet.WithTransferConfig(1, 8, 5*time.Second),
		)
		fx.fund(t, 100)
		fx.tokens.Hold()

		first, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(80))
		require.NoError(t, err)
		second, err := fx.f.RequestDistribution(ctx, deposit(bob), amt(80))
		require.NoError(t, err, "legacy admission checks the stale pool")

		fx.tokens.Release()

		_, err = first.Wait(ctx)
		require.NoError(t, err)

		stuck, err := second.Wait(ctx)
		assert.ErrorIs(t, err, faucet.ErrUnderflow)
		assert.True(t, faucet.IsArithmetic(err))
		require.NotNil(t, stuck)
		assert.Equal(t, transfer.StatusPending, stuck.Status)

		// The aborted settlement left no trace.
		balance, shared, accounts, _ := fx.info(t)
		assert.Equal(t, "20", balance)
		assert.Equal(t, "80", shared)
		assert.Equal(t, "1", accounts)

		got, err := fx.f.SharedBalanceOf(ctx, bob)
		require.NoError(t, err)
		assert.True(t, got.IsZero())

		stored, err := fx.f.Transfer(ctx, second.Transfer().ID)
		require.NoError(t, err)
		assert.True(t, stored.IsPending())
	})

	t.Run("same race is refused at admission in reserve mode", func(t *testing.T) {
		ctx := waitCtx(t)
		fx := newFixture(t, 1000, faucet.WithTransferConfig(1, 8, 5*time.Second))
		fx.fund(t, 100)
		fx.tokens.Hold()

		first, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(80))
		require.NoError(t, err)
		_, err = fx.f.RequestDistribution(ctx, deposit(bob), amt(80))
		assert.ErrorIs(t, err, faucet.ErrInsufficientPool)

		fx.tokens.Release()
		_, err = first.Wait(ctx)
		require.NoError(t, err)
	})
}

func TestTransferQueueFull(t *testing.T) {
	ctx := waitCtx(t)
	fx, gate := newGatedFixture(t, 1000, faucet.WithTransferConfig(1, 1, 5*time.Second))
	fx.fund(t, 500)

	first, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(10))
	require.NoError(t, err)
	<-gate.entered

	second, err := fx.f.RequestDistribution(ctx, deposit(bob), amt(10))
	require.NoError(t, err)

	_, err = fx.f.RequestDistribution(ctx, deposit(mallory), amt(10))
	assert.ErrorIs(t, err, faucet.ErrTransferQueueFull)

	balance, _, _, reserved := fx.info(t)
	assert.Equal(t, "480", balance)
	assert.Equal(t, "20", reserved)

	gate.open()
	_, err = first.Wait(ctx)
	require.NoError(t, err)
	_, err = second.Wait(ctx)
	require.NoError(t, err)

	balance, shared, _, reserved := fx.info(t)
	assert.Equal(t, "480", balance)
	assert.Equal(t, "20", shared)
	assert.Equal(t, "0", reserved)
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

func TestSettle(t *testing.T) {
	t.Run("only from the faucet itself", func(t *testing.T) {
		ctx := waitCtx(t)
		fx := newFixture(t, 1000)
		fx.fund(t, 500)

		err := fx.f.Settle(ctx, faucet.From(alice), transfer.Settlement{
			TransferID: id.NewTransferID(),
			AccountID:  alice,
			Amount:     amt(400),
			Outcome:    transfer.Succeeded(),
		})
		assert.ErrorIs(t, err, faucet.ErrNotSelf)
		assert.True(t, faucet.IsAuthorization(err))

		got, err := fx.f.SharedBalanceOf(ctx, alice)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("unknown transfer", func(t *testing.T) {
		ctx := waitCtx(t)
		fx := newFixture(t, 1000)

		err := fx.f.Settle(ctx, faucet.From(self), transfer.Settlement{
			TransferID: id.NewTransferID(),
			AccountID:  alice,
			Amount:     amt(1),
			Outcome:    transfer.Succeeded(),
		})
		assert.ErrorIs(t, err, faucet.ErrTransferNotFound)
		assert.True(t, faucet.IsNotFound(err))
	})

	t.Run("already settled", func(t *testing.T) {
		ctx := waitCtx(t)
		fx := newFixture(t, 1000)
		fx.fund(t, 500)

		receipt, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(100))
		require.NoError(t, err)
		settled, err := receipt.Wait(ctx)
		require.NoError(t, err)

		err = fx.f.Settle(ctx, faucet.From(self), transfer.Settlement{
			TransferID: settled.ID,
			AccountID:  alice,
			Amount:     amt(100),
			Outcome:    transfer.Succeeded(),
		})
		assert.ErrorIs(t, err, faucet.ErrAlreadySettled)

		got, err := fx.f.SharedBalanceOf(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "100", got.String())
	})

	t.Run("manual settlement of a pending transfer", func(t *testing.T) {
		ctx := waitCtx(t)
		fx, gate := newGatedFixture(t, 1000)
		fx.fund(t, 500)

		receipt, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(100))
		require.NoError(t, err)
		<-gate.entered
		pending := receipt.Transfer()

		err = fx.f.Settle(ctx, faucet.From(self), transfer.Settlement{
			TransferID: pending.ID,
			AccountID:  bob,
			Amount:     amt(100),
			Outcome:    transfer.Succeeded(),
		})
		assert.ErrorIs(t, err, faucet.ErrSettlementMismatch)

		err = fx.f.Settle(ctx, faucet.From(self), transfer.Settlement{
			TransferID: pending.ID,
			AccountID:  alice,
			Amount:     amt(99),
			Outcome:    transfer.Succeeded(),
		})
		assert.ErrorIs(t, err, faucet.ErrSettlementMismatch)

		err = fx.f.Settle(ctx, faucet.From(self), transfer.Settlement{
			TransferID: pending.ID,
			AccountID:  alice,
			Amount:     amt(100),
			Outcome:    transfer.Failed("abandoned"),
		})
		require.NoError(t, err)

		gate.open()
		_, err = receipt.Wait(ctx)
		assert.ErrorIs(t, err, faucet.ErrAlreadySettled)

		stored, err := fx.f.Transfer(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, transfer.StatusFailed, stored.Status)
		assert.Equal(t, "abandoned", stored.Reason)

		balance, _, _, reserved := fx.info(t)
		assert.Equal(t, "500", balance)
		assert.Equal(t, "0", reserved)
	})
}

// ──────────────────────────────────────────────────
// Admin
// ──────────────────────────────────────────────────

func TestAdminRequiresOwner(t *testing.T) {
	ctx := waitCtx(t)
	fx := newFixture(t, 1000)
	fx.fund(t, 500)

	before, err := fx.f.Info(ctx)
	require.NoError(t, err)

	for _, caller := range []types.AccountID{alice, token, self} {
		err := fx.f.UpdateCap(ctx, faucet.From(caller), amt(1))
		assert.ErrorIs(t, err, faucet.ErrNotOwner)
		assert.True(t, faucet.IsAuthorization(err))

		err = fx.f.Pause(ctx, faucet.From(caller))
		assert.ErrorIs(t, err, faucet.ErrNotOwner)
	}

	after, err := fx.f.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateCap(t *testing.T) {
	ctx := waitCtx(t)
	fx := newFixture(t, 1000)
	fx.fund(t, 500)

	receipt, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(300))
	require.NoError(t, err)
	_, err = receipt.Wait(ctx)
	require.NoError(t, err)

	require.NoError(t, fx.f.UpdateCap(ctx, faucet.From(owner), amt(200)))

	info, err := fx.f.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "200", info.MaxSharePerAccount.String())

	// Lowering the cap keeps existing balances but blocks further requests.
	got, err := fx.f.SharedBalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "300", got.String())

	_, err = fx.f.RequestDistribution(ctx, deposit(alice), amt(1))
	assert.ErrorIs(t, err, faucet.ErrCapExceeded)

	receipt, err = fx.f.RequestDistribution(ctx, deposit(bob), amt(200))
	require.NoError(t, err)
	settled, err := receipt.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "200", settled.CapAtAdmission.String())
}

func TestPause(t *testing.T) {
	ctx := waitCtx(t)
	fx := newFixture(t, 1000)
	fx.fund(t, 500)

	require.NoError(t, fx.f.Pause(ctx, faucet.From(owner)))
	require.NoError(t, fx.f.Pause(ctx, faucet.From(owner)), "pause is idempotent")

	info, err := fx.f.Info(ctx)
	require.NoError(t, err)
	assert.True(t, info.IsPaused)

	for _, caller := range []types.AccountID{alice, bob, owner} {
		for _, n := range []uint64{1, 100, 500} {
			_, err := fx.f.RequestDistribution(ctx, deposit(caller), amt(n))
			assert.ErrorIs(t, err, faucet.ErrPaused)
			assert.True(t, faucet.IsValidation(err))
		}
	}

	// Funding is still accepted while paused.
	fx.fund(t, 10)
	balance, _, _, _ := fx.info(t)
	assert.Equal(t, "510", balance)
}

// ──────────────────────────────────────────────────
// Invariants
// ──────────────────────────────────────────────────

func TestLedgerInvariants(t *testing.T) {
	for _, mode := range []transfer.Mode{faucet.ModeReserve, faucet.ModeLegacy} {
		t.Run(string(mode), func(t *testing.T) {
			ctx := waitCtx(t)
			fx := newFixture(t, 120, faucet.WithSettlementMode(mode))
			fx.fund(t, 1000)

			accounts := []types.AccountID{alice, bob, mallory}
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				receipts []*faucet.Receipt
			)
			for i := range 30 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					r, err := fx.f.RequestDistribution(ctx, deposit(accounts[i%len(accounts)]), amt(uint64(10+i%4*5)))
					if err != nil {
						return
					}
					mu.Lock()
					receipts = append(receipts, r)
					mu.Unlock()
				}(i)
			}
			wg.Wait()
			for _, r := range receipts {
				_, _ = r.Wait(ctx)
			}

			info, err := fx.f.Info(ctx)
			require.NoError(t, err)

			entries, err := fx.f.Shares(ctx, share.ListOpts{})
			require.NoError(t, err)

			sum := types.Amount{}
			for _, e := range entries {
				sum, err = sum.Add(e.Amount)
				require.NoError(t, err)
			}
			assert.Equal(t, info.TotalShared.String(), sum.String())
			assert.Equal(t, uint64(len(entries)), mustUint64(t, info.TotalAccountShared))

			if mode == faucet.ModeReserve {
				// Legacy admission does not count pending transfers, so only
				// reserve mode guarantees the cap.
				for _, e := range entries {
					assert.False(t, e.Amount.GreaterThan(info.MaxSharePerAccount), "%s holds %s", e.AccountID, e.Amount)
				}
				assert.True(t, info.Reserved.IsZero())
			}

			total, err := info.TotalBalanceShare.Add(info.TotalShared)
			require.NoError(t, err)
			assert.Equal(t, "1000", total.String())
		})
	}
}

// ──────────────────────────────────────────────────
// Plugins
// ──────────────────────────────────────────────────

type recordingPlugin struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPlugin) Name() string { return "recorder" }

func (p *recordingPlugin) add(ev string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPlugin) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPlugin) OnPoolInitialized(context.Context, *pool.State) error {
	p.add("pool_initialized")
	return nil
}

func (p *recordingPlugin) OnFunded(context.Context, *funding.Record) error {
	p.add("funded")
	return nil
}

func (p *recordingPlugin) OnDistributionRequested(context.Context, *transfer.Transfer) error {
	p.add("requested")
	return nil
}

func (p *recordingPlugin) OnDistributionRejected(_ context.Context, _ types.AccountID, _ types.Amount, reason error) error {
	p.add("rejected")
	return nil
}

func (p *recordingPlugin) OnSettled(_ context.Context, t *transfer.Transfer) error {
	p.add("settled:" + string(t.Status))
	return nil
}

func (p *recordingPlugin) OnSettlementFailed(context.Context, transfer.Settlement, error) error {
	p.add("settlement_failed")
	return nil
}

func (p *recordingPlugin) OnCapUpdated(context.Context, types.Amount, types.Amount) error {
	p.add("cap_updated")
	return nil
}

func (p *recordingPlugin) OnPaused(context.Context) error {
	p.add("paused")
	return nil
}

var _ plugin.Plugin = (*recordingPlugin)(nil)

func TestPluginHooks(t *testing.T) {
	ctx := waitCtx(t)
	rec := &recordingPlugin{}
	fx := newFixture(t, 1000, faucet.WithPlugin(rec))
	fx.fund(t, 500)

	receipt, err := fx.f.RequestDistribution(ctx, deposit(alice), amt(100))
	require.NoError(t, err)
	_, err = receipt.Wait(ctx)
	require.NoError(t, err)

	_, err = fx.f.RequestDistribution(ctx, deposit(alice), amt(10000))
	require.Error(t, err)

	require.NoError(t, fx.f.UpdateCap(ctx, faucet.From(owner), amt(50)))
	require.NoError(t, fx.f.Pause(ctx, faucet.From(owner)))

	assert.Equal(t, []string{
		"pool_initialized",
		"funded",
		"requested",
		"settled:succeeded",
		"rejected",
		"cap_updated",
		"paused",
	}, rec.Events())
	assert.Equal(t, 1, fx.f.Plugins().Count())
}

func mustUint64(t *testing.T, a types.Amount) uint64 {
	t.Helper()
	n, ok := a.Uint64()
	require.True(t, ok)
	return n
}
