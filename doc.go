// Package faucet provides an embeddable fungible-token faucet engine for Go
// applications.
//
// Faucet is designed as a library, not a service. The owner funds a pool
// through the token contract, and any account may then request bounded
// amounts from it. It provides:
//
//   - A per-account lifetime cap and a one-way pause switch
//   - Two-phase distribution: admission, external transfer, settlement
//   - Checked 128-bit token arithmetic that never wraps
//   - Pluggable stores (memory, bbolt, PostgreSQL, SQLite, MongoDB)
//   - Lifecycle hooks for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/faucet"
//	    "github.com/xraph/faucet/store/memory"
//	)
//
//	f := faucet.New(memory.New(), tokenLedger,
//	    faucet.WithAccountID("faucet.testnet"),
//	)
//	if err := f.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Stop()
//
//	err := f.Init(ctx, "owner.testnet", "token.testnet", faucet.NewAmount(1000))
//
// # Distribution
//
// A request must attach a deposit above the configured floor (any nonzero
// deposit by default, see WithDepositFloor). Admission checks the pause flag, the pool balance and the
// caller's cap, stores a pending transfer and queues it:
//
//	receipt, err := f.RequestDistribution(ctx,
//	    faucet.From("alice.testnet").WithDeposit(faucet.NewAmount(1)),
//	    faucet.NewAmount(200),
//	)
//	settled, err := receipt.Wait(ctx)
//
// A background worker asks the TokenLedger to move the tokens, then settles
// the transfer as a separate call from the faucet's own account.
//
// # Settlement Modes
//
// ModeReserve (the default) takes the amount out of the pool at admission,
// counts pending transfers against the cap, and returns the amount to the
// pool if the transfer fails. ModeLegacy leaves the pool untouched until
// settlement and credits the account whatever the outcome; two concurrent
// requests can then overdraw the pool, and the second settlement fails with
// ErrUnderflow instead of wrapping.
//
// # TypeID
//
// Transfers and funding records use TypeIDs:
//
//	xfer_01h2xcejqtf2nbrexx3vqjhp41  // Transfer ID
//	fund_01h455vb4pex5vsknk084sn02q  // Funding ID
package faucet
