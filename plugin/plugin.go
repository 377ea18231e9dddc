// Package plugin provides an extensible plugin system for the faucet.
// Plugins can hook into lifecycle and accounting events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, f interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnPoolInitialized is called once the pool singleton has been stored.
type OnPoolInitialized interface {
	Plugin
	OnPoolInitialized(ctx context.Context, state *pool.State) error
}

// ──────────────────────────────────────────────────
// Funding hooks
// ──────────────────────────────────────────────────

// OnFunded is called after a funding notification was accepted.
type OnFunded interface {
	Plugin
	OnFunded(ctx context.Context, rec *funding.Record) error
}

// ──────────────────────────────────────────────────
// Distribution hooks
// ──────────────────────────────────────────────────

// OnDistributionRequested is called when a transfer has been admitted and queued.
type OnDistributionRequested interface {
	Plugin
	OnDistributionRequested(ctx context.Context, t *transfer.Transfer) error
}

// OnDistributionRejected is called when a request failed validation.
type OnDistributionRejected interface {
	Plugin
	OnDistributionRejected(ctx context.Context, account types.AccountID, amount types.Amount, reason error) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettled is called after a settlement was applied. The transfer's status
// carries the outcome reported by the token ledger.
type OnSettled interface {
	Plugin
	OnSettled(ctx context.Context, t *transfer.Transfer) error
}

// OnSettlementFailed is called when a settlement could not be applied.
type OnSettlementFailed interface {
	Plugin
	OnSettlementFailed(ctx context.Context, s transfer.Settlement, err error) error
}

// ──────────────────────────────────────────────────
// Admin hooks
// ──────────────────────────────────────────────────

// OnCapUpdated is called when the owner changes the per-account cap.
type OnCapUpdated interface {
	Plugin
	OnCapUpdated(ctx context.Context, oldCap, newCap types.Amount) error
}

// OnPaused is called when the owner pauses the faucet.
type OnPaused interface {
	Plugin
	OnPaused(ctx context.Context) error
}
