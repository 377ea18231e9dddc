package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/store"
	"github.com/xraph/faucet/store/memory"
	"github.com/xraph/faucet/store/storetest"
	"github.com/xraph/faucet/types"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

func TestDuplicateFunding(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	p := &pool.State{Entity: types.NewEntity(), Owner: "owner.testnet", TokenContract: "token.testnet"}
	require.NoError(t, s.InitPool(ctx, p))

	rec := &funding.Record{ID: id.NewFundingID(), Sender: "owner.testnet", Amount: types.NewAmount(5), CreatedAt: time.Now()}
	require.NoError(t, s.Apply(ctx, &store.Changeset{Pool: p, Funding: rec}))

	err := s.Apply(ctx, &store.Changeset{Pool: p, Funding: rec})
	assert.ErrorIs(t, err, store.ErrDuplicateFunding)

	recs, err := s.ListFundings(ctx, funding.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
