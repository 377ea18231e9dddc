package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/tokenledger/memory"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

func one() types.Amount { return types.NewAmount(1) }

func newLedger(t *testing.T) *memory.Ledger {
	t.Helper()
	l := memory.New("token.testnet")
	l.RegisterAccount("faucet.testnet")
	l.RegisterAccount("alice.testnet")
	require.NoError(t, l.Mint("faucet.testnet", types.NewAmount(100)))
	return l
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  transfer.Request
		want error
	}{
		{"ok", transfer.Request{Receiver: "alice.testnet", Amount: types.NewAmount(40), Deposit: one()}, nil},
		{"missing deposit", transfer.Request{Receiver: "alice.testnet", Amount: types.NewAmount(40)}, memory.ErrDeposit},
		{"unregistered receiver", transfer.Request{Receiver: "bob.testnet", Amount: types.NewAmount(40), Deposit: one()}, memory.ErrNotRegistered},
		{"self transfer", transfer.Request{Receiver: "faucet.testnet", Amount: types.NewAmount(40), Deposit: one()}, memory.ErrSelfTransfer},
		{"zero amount", transfer.Request{Receiver: "alice.testnet", Deposit: one()}, memory.ErrZeroAmount},
		{"insufficient balance", transfer.Request{Receiver: "alice.testnet", Amount: types.NewAmount(101), Deposit: one()}, memory.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			err := l.Account("faucet.testnet").Transfer(ctx, tt.req)
			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, "60", l.BalanceOf("faucet.testnet").String())
				assert.Equal(t, "40", l.BalanceOf("alice.testnet").String())
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, "100", l.BalanceOf("faucet.testnet").String())
		})
	}
}

func TestFailWith(t *testing.T) {
	l := newLedger(t)
	boom := errors.New("boom")
	l.FailWith(func(from types.AccountID, req transfer.Request) error {
		if req.Receiver == "alice.testnet" {
			return boom
		}
		return nil
	})

	err := l.Transfer(context.Background(), "faucet.testnet", transfer.Request{
		Receiver: "alice.testnet", Amount: types.NewAmount(1), Deposit: one(),
	})
	assert.ErrorIs(t, err, boom)

	l.FailWith(nil)
	err = l.Transfer(context.Background(), "faucet.testnet", transfer.Request{
		Receiver: "alice.testnet", Amount: types.NewAmount(1), Deposit: one(),
	})
	assert.NoError(t, err)
}

func TestHold(t *testing.T) {
	l := newLedger(t)
	l.Hold()

	done := make(chan error, 1)
	go func() {
		done <- l.Transfer(context.Background(), "faucet.testnet", transfer.Request{
			Receiver: "alice.testnet", Amount: types.NewAmount(5), Deposit: one(),
		})
	}()

	select {
	case <-done:
		t.Fatal("transfer finished while held")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()
	require.NoError(t, <-done)
	assert.Equal(t, "5", l.BalanceOf("alice.testnet").String())

	ctx, cancel := context.WithCancel(context.Background())
	l.Hold()
	cancel()
	err := l.Transfer(ctx, "faucet.testnet", transfer.Request{
		Receiver: "alice.testnet", Amount: types.NewAmount(5), Deposit: one(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	l.Release()
}

type receiverFunc func(ctx context.Context, call faucet.Call, sender types.AccountID, amount types.Amount, msg string) (types.Amount, error)

func (f receiverFunc) NotifyFunding(ctx context.Context, call faucet.Call, sender types.AccountID, amount types.Amount, msg string) (types.Amount, error) {
	return f(ctx, call, sender, amount, msg)
}

func TestTransferCall(t *testing.T) {
	ctx := context.Background()

	t.Run("receiver keeps part", func(t *testing.T) {
		l := newLedger(t)
		var gotCall faucet.Call
		used, err := l.TransferCall(ctx, "faucet.testnet", "alice.testnet",
			receiverFunc(func(_ context.Context, call faucet.Call, sender types.AccountID, amount types.Amount, msg string) (types.Amount, error) {
				gotCall = call
				assert.Equal(t, types.AccountID("faucet.testnet"), sender)
				assert.Equal(t, "memo", msg)
				return types.NewAmount(30), nil
			}),
			types.NewAmount(50), "memo")
		require.NoError(t, err)

		assert.Equal(t, types.AccountID("token.testnet"), gotCall.Predecessor)
		assert.Equal(t, "20", used.String())
		assert.Equal(t, "80", l.BalanceOf("faucet.testnet").String())
		assert.Equal(t, "20", l.BalanceOf("alice.testnet").String())
	})

	t.Run("receiver error refunds everything", func(t *testing.T) {
		l := newLedger(t)
		rejected := errors.New("not yours")
		used, err := l.TransferCall(ctx, "faucet.testnet", "alice.testnet",
			receiverFunc(func(context.Context, faucet.Call, types.AccountID, types.Amount, string) (types.Amount, error) {
				return types.Amount{}, rejected
			}),
			types.NewAmount(50), "")
		assert.ErrorIs(t, err, rejected)
		assert.True(t, used.IsZero())
		assert.Equal(t, "100", l.BalanceOf("faucet.testnet").String())
		assert.True(t, l.BalanceOf("alice.testnet").IsZero())
	})

	t.Run("sender must hold the amount", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.TransferCall(ctx, "alice.testnet", "faucet.testnet",
			receiverFunc(func(context.Context, faucet.Call, types.AccountID, types.Amount, string) (types.Amount, error) {
				t.Fatal("receiver called without tokens moving")
				return types.Amount{}, nil
			}),
			types.NewAmount(1), "")
		assert.ErrorIs(t, err, memory.ErrInsufficientBalance)
	})
}

func TestRegistration(t *testing.T) {
	l := memory.New("token.testnet")
	assert.Equal(t, types.AccountID("token.testnet"), l.Contract())
	assert.False(t, l.IsRegistered("alice.testnet"))

	l.RegisterAccount("alice.testnet")
	l.RegisterAccount("alice.testnet")
	assert.True(t, l.IsRegistered("alice.testnet"))
	assert.True(t, l.BalanceOf("alice.testnet").IsZero())
	assert.Equal(t, types.AccountID("alice.testnet"), l.Account("alice.testnet").ID())
}
