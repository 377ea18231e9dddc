// Package storetest holds the behavior every store.Store backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/store"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Opener returns a fresh, migrated store for one test.
type Opener func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, open Opener) {
	t.Run("Pool", func(t *testing.T) { testPool(t, open(t)) })
	t.Run("ApplyRequiresPool", func(t *testing.T) { testApplyRequiresPool(t, open(t)) })
	t.Run("FailedApplyWritesNothing", func(t *testing.T) { testFailedApplyWritesNothing(t, open(t)) })
	t.Run("Shares", func(t *testing.T) { testShares(t, open(t)) })
	t.Run("Transfers", func(t *testing.T) { testTransfers(t, open(t)) })
	t.Run("Fundings", func(t *testing.T) { testFundings(t, open(t)) })
}

func newPool() *pool.State {
	return &pool.State{
		Entity:             types.NewEntity(),
		Owner:              "owner.testnet",
		TokenContract:      "token.testnet",
		MaxSharePerAccount: types.NewAmount(1000),
	}
}

func initPool(t *testing.T, s store.Store) *pool.State {
	t.Helper()
	p := newPool()
	require.NoError(t, s.InitPool(context.Background(), p))
	return p
}

func testPool(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetPool(ctx)
	assert.ErrorIs(t, err, faucet.ErrNotInitialized)

	p := initPool(t, s)
	assert.ErrorIs(t, s.InitPool(ctx, newPool()), faucet.ErrAlreadyInitialized)

	got, err := s.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.Owner, got.Owner)
	assert.Equal(t, p.TokenContract, got.TokenContract)
	assert.Equal(t, "1000", got.MaxSharePerAccount.String())
	assert.True(t, got.TotalBalanceShare.IsZero())
	assert.False(t, got.IsPaused)

	next := got.Clone()
	next.TotalBalanceShare = types.MustParseAmount("340282366920938463463374607431768211455")
	next.Reserved = types.NewAmount(7)
	next.IsPaused = true
	require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: next}))

	got, err = s.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455", got.TotalBalanceShare.String())
	assert.Equal(t, "7", got.Reserved.String())
	assert.True(t, got.IsPaused)

	assert.NoError(t, s.Ping(ctx))
}

func testApplyRequiresPool(t *testing.T, s store.Store) {
	ctx := context.Background()

	assert.ErrorIs(t, s.Apply(ctx, nil), store.ErrEmptyChangeset)
	assert.ErrorIs(t, s.Apply(ctx, &store.Changeset{}), store.ErrEmptyChangeset)
	assert.ErrorIs(t, s.Apply(ctx, &store.Changeset{
		Pool:  newPool(),
		Share: &share.Entry{Entity: types.NewEntity(), AccountID: "alice.testnet", Amount: types.NewAmount(5)},
	}), faucet.ErrNotInitialized)

	_, err := s.GetPool(ctx)
	assert.ErrorIs(t, err, faucet.ErrNotInitialized)

	got, err := s.GetShare(ctx, "alice.testnet")
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "share written without a pool")
}

func testFailedApplyWritesNothing(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := initPool(t, s)

	funded := p.Clone()
	funded.TotalBalanceShare = types.NewAmount(100)
	rec := &funding.Record{
		ID:        id.NewFundingID(),
		Sender:    "owner.testnet",
		Amount:    types.NewAmount(100),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: funded, Funding: rec}))

	// A settlement credit that also replays an existing funding record.
	credited := funded.Clone()
	credited.TotalBalanceShare = types.NewAmount(50)
	credited.TotalShared = types.NewAmount(50)
	credited.TotalAccountShared = types.NewAmount(1)
	now := time.Now().UTC()
	tr := &transfer.Transfer{
		Entity:         types.NewEntity(),
		ID:             id.NewTransferID(),
		AccountID:      "alice.testnet",
		Amount:         types.NewAmount(50),
		Status:         transfer.StatusSucceeded,
		Mode:           transfer.ModeLegacy,
		CapAtAdmission: types.NewAmount(1000),
		SettledAt:      &now,
	}
	replayed := *rec
	err := s.Apply(ctx, &store.Changeset{
		Pool:     credited,
		Share:    &share.Entry{Entity: types.NewEntity(), AccountID: "alice.testnet", Amount: types.NewAmount(50)},
		Transfer: tr,
		Funding:  &replayed,
	})
	require.Error(t, err)

	balance, err := s.GetShare(ctx, "alice.testnet")
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "share = %s", balance)

	_, err = s.GetTransfer(ctx, tr.ID)
	assert.ErrorIs(t, err, faucet.ErrTransferNotFound)

	state, err := s.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", state.TotalBalanceShare.String())
	assert.True(t, state.TotalShared.IsZero())
	assert.True(t, state.TotalAccountShared.IsZero())

	recs, err := s.ListFundings(ctx, funding.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func testShares(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := initPool(t, s)

	got, err := s.GetShare(ctx, "alice.testnet")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	first := &share.Entry{Entity: types.NewEntity(), AccountID: "carol.testnet", Amount: types.NewAmount(10)}
	require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: p, Share: first}))
	for _, account := range []types.AccountID{"alice.testnet", "bob.testnet"} {
		e := &share.Entry{Entity: types.NewEntity(), AccountID: account, Amount: types.NewAmount(5)}
		require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: p, Share: e}))
	}

	// Upsert keeps the original creation time.
	later := types.NewEntity()
	later.CreatedAt = later.CreatedAt.Add(time.Hour)
	require.NoError(t, s.Apply(ctx, &store.Changeset{
		Pool:  p,
		Share: &share.Entry{Entity: later, AccountID: "carol.testnet", Amount: types.NewAmount(25)},
	}))

	got, err = s.GetShare(ctx, "carol.testnet")
	require.NoError(t, err)
	assert.Equal(t, "25", got.String())

	entries, err := s.ListShares(ctx, share.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, types.AccountID("alice.testnet"), entries[0].AccountID)
	assert.Equal(t, types.AccountID("bob.testnet"), entries[1].AccountID)
	assert.Equal(t, types.AccountID("carol.testnet"), entries[2].AccountID)
	assert.WithinDuration(t, first.CreatedAt, entries[2].CreatedAt, time.Second)

	page, err := s.ListShares(ctx, share.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, types.AccountID("bob.testnet"), page[0].AccountID)

	page, err = s.ListShares(ctx, share.ListOpts{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = s.ListShares(ctx, share.ListOpts{Limit: -1, Offset: -1})
	require.NoError(t, err)
	assert.Len(t, page, 3)
}

func testTransfers(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := initPool(t, s)

	_, err := s.GetTransfer(ctx, id.NewTransferID())
	assert.ErrorIs(t, err, faucet.ErrTransferNotFound)

	newTransfer := func(account types.AccountID, n uint64) *transfer.Transfer {
		return &transfer.Transfer{
			Entity:         types.NewEntity(),
			ID:             id.NewTransferID(),
			AccountID:      account,
			Amount:         types.NewAmount(n),
			Memo:           "Faucet of ICB Token",
			Status:         transfer.StatusPending,
			Mode:           transfer.ModeReserve,
			CapAtAdmission: types.NewAmount(1000),
		}
	}

	a1 := newTransfer("alice.testnet", 10)
	a2 := newTransfer("alice.testnet", 20)
	b1 := newTransfer("bob.testnet", 30)
	for _, tr := range []*transfer.Transfer{a1, a2, b1} {
		require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: p, Transfer: tr}))
	}

	got, err := s.GetTransfer(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, a1.ID.String(), got.ID.String())
	assert.Equal(t, "10", got.Amount.String())
	assert.Equal(t, "Faucet of ICB Token", got.Memo)
	assert.Equal(t, transfer.ModeReserve, got.Mode)
	assert.Equal(t, "1000", got.CapAtAdmission.String())
	assert.Nil(t, got.SettledAt)
	assert.True(t, got.IsPending())

	settled := a2.Clone()
	settled.Status = transfer.StatusFailed
	settled.Reason = "receiver not registered"
	now := time.Now().UTC()
	settled.SettledAt = &now
	require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: p, Transfer: settled}))

	got, err = s.GetTransfer(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusFailed, got.Status)
	assert.Equal(t, "receiver not registered", got.Reason)
	require.NotNil(t, got.SettledAt)
	assert.WithinDuration(t, now, *got.SettledAt, time.Second)

	all, err := s.ListTransfers(ctx, transfer.ListOpts{})
	require.NoError(t, err)
	assert.ElementsMatch(t, transferIDs(a1, a2, b1), transferIDs(all...))

	byAccount, err := s.ListTransfers(ctx, transfer.ListOpts{AccountID: "alice.testnet"})
	require.NoError(t, err)
	assert.ElementsMatch(t, transferIDs(a1, a2), transferIDs(byAccount...))

	pending, err := s.ListTransfers(ctx, transfer.ListOpts{AccountID: "alice.testnet", Status: transfer.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, transferIDs(a1), transferIDs(pending...))

	page, err := s.ListTransfers(ctx, transfer.ListOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func testFundings(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := initPool(t, s)

	var want []string
	for i, n := range []uint64{100, 200, 300} {
		next := p.Clone()
		next.TotalBalanceShare = types.NewAmount(n * uint64(i+1))
		rec := &funding.Record{
			ID:        id.NewFundingID(),
			Sender:    "owner.testnet",
			Amount:    types.NewAmount(n),
			Message:   "top up",
			CreatedAt: time.Now().UTC(),
		}
		want = append(want, rec.ID.String())
		require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: next, Funding: rec}))
	}

	recs, err := s.ListFundings(ctx, funding.ListOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	var got []string
	for _, r := range recs {
		got = append(got, r.ID.String())
		assert.Equal(t, types.AccountID("owner.testnet"), r.Sender)
		assert.Equal(t, "top up", r.Message)
	}
	assert.ElementsMatch(t, want, got)

	state, err := s.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "900", state.TotalBalanceShare.String())

	page, err := s.ListFundings(ctx, funding.ListOpts{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func transferIDs(ts ...*transfer.Transfer) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID.String())
	}
	return out
}
