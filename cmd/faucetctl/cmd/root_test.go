package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/store"
	"github.com/xraph/faucet/store/bolt"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestAdminCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faucet.db")

	require.NoError(t, run(t, "init", "--db", path, "--owner", "owner.testnet", "--token-contract", "token.testnet", "--cap", "1000"))
	assert.ErrorIs(t, run(t, "init", "--db", path, "--owner", "owner.testnet", "--token-contract", "token.testnet", "--cap", "1000"), faucet.ErrAlreadyInitialized)

	assert.ErrorIs(t, run(t, "set-cap", "5", "--db", path, "--as", "alice.testnet"), faucet.ErrNotOwner)
	require.NoError(t, run(t, "set-cap", "250", "--db", path, "--as", "owner.testnet"))
	require.NoError(t, run(t, "pause", "--db", path, "--as", "owner.testnet"))
	require.NoError(t, run(t, "info", "--db", path))

	s, err := bolt.Open(path)
	require.NoError(t, err)
	defer s.Close()

	state, err := s.GetPool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "250", state.MaxSharePerAccount.String())
	assert.True(t, state.IsPaused)
}

func TestSettleCommand(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "faucet.db")

	// Seed a pool with one reserve-mode transfer left pending.
	s, err := bolt.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.InitPool(ctx, &pool.State{
		Entity:             types.NewEntity(),
		Owner:              "owner.testnet",
		TokenContract:      "token.testnet",
		MaxSharePerAccount: types.NewAmount(1000),
	}))
	state, err := s.GetPool(ctx)
	require.NoError(t, err)
	state.TotalBalanceShare = types.NewAmount(400)
	state.Reserved = types.NewAmount(100)

	pending := &transfer.Transfer{
		Entity:    types.NewEntity(),
		ID:        id.NewTransferID(),
		AccountID: "alice.testnet",
		Amount:    types.NewAmount(100),
		Status:    transfer.StatusPending,
		Mode:      transfer.ModeReserve,
	}
	require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: state, Transfer: pending}))
	require.NoError(t, s.Close())

	require.NoError(t, run(t, "settle", pending.ID.String(), "--db", path, "--failed", "--reason", "never sent"))
	assert.ErrorIs(t, run(t, "settle", pending.ID.String(), "--db", path), faucet.ErrAlreadySettled)
	assert.Error(t, run(t, "settle", "not-an-id", "--db", path))

	s, err = bolt.Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetTransfer(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusFailed, got.Status)
	assert.Equal(t, "never sent", got.Reason)

	state, err = s.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "500", state.TotalBalanceShare.String())
	assert.True(t, state.Reserved.IsZero())
}

func TestMissingDatabase(t *testing.T) {
	dbPath = ""
	rootCmd.SetArgs([]string{"info"})
	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "no database")
}
