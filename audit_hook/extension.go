// Package audithook bridges faucet events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/plugin"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnPoolInitialized       = (*Extension)(nil)
	_ plugin.OnFunded                = (*Extension)(nil)
	_ plugin.OnDistributionRequested = (*Extension)(nil)
	_ plugin.OnDistributionRejected  = (*Extension)(nil)
	_ plugin.OnSettled               = (*Extension)(nil)
	_ plugin.OnSettlementFailed      = (*Extension)(nil)
	_ plugin.OnCapUpdated            = (*Extension)(nil)
	_ plugin.OnPaused                = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges faucet events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Pool hooks
// ──────────────────────────────────────────────────

// OnPoolInitialized implements plugin.OnPoolInitialized.
func (e *Extension) OnPoolInitialized(ctx context.Context, state *pool.State) error {
	return e.record(ctx, ActionPoolInitialized, SeverityInfo, OutcomeSuccess,
		ResourcePool, state.TokenContract.String(), CategoryAdmin, nil,
		"owner", state.Owner.String(),
		"token_contract", state.TokenContract.String(),
		"max_share_per_account", state.MaxSharePerAccount.String(),
	)
}

// OnFunded implements plugin.OnFunded.
func (e *Extension) OnFunded(ctx context.Context, rec *funding.Record) error {
	return e.record(ctx, ActionPoolFunded, SeverityInfo, OutcomeSuccess,
		ResourceFunding, rec.ID.String(), CategoryFunding, nil,
		"sender", rec.Sender.String(),
		"amount", rec.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Distribution hooks
// ──────────────────────────────────────────────────

// OnDistributionRequested implements plugin.OnDistributionRequested.
func (e *Extension) OnDistributionRequested(ctx context.Context, t *transfer.Transfer) error {
	return e.record(ctx, ActionDistributionRequested, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, t.ID.String(), CategoryDistribution, nil,
		"account", t.AccountID.String(),
		"amount", t.Amount.String(),
		"mode", string(t.Mode),
	)
}

// OnDistributionRejected implements plugin.OnDistributionRejected.
func (e *Extension) OnDistributionRejected(ctx context.Context, account types.AccountID, amount types.Amount, reason error) error {
	return e.record(ctx, ActionDistributionRejected, SeverityWarning, OutcomeFailure,
		ResourceAccount, account.String(), CategoryDistribution, reason,
		"amount", amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettled implements plugin.OnSettled.
func (e *Extension) OnSettled(ctx context.Context, t *transfer.Transfer) error {
	if t.Status == transfer.StatusFailed {
		return e.record(ctx, ActionTransferFailed, SeverityError, OutcomeFailure,
			ResourceTransfer, t.ID.String(), CategorySettlement, nil,
			"account", t.AccountID.String(),
			"amount", t.Amount.String(),
			"mode", string(t.Mode),
			"transfer_reason", t.Reason,
		)
	}
	return e.record(ctx, ActionTransferSucceeded, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, t.ID.String(), CategorySettlement, nil,
		"account", t.AccountID.String(),
		"amount", t.Amount.String(),
		"mode", string(t.Mode),
	)
}

// OnSettlementFailed implements plugin.OnSettlementFailed.
func (e *Extension) OnSettlementFailed(ctx context.Context, s transfer.Settlement, err error) error {
	return e.record(ctx, ActionSettlementFailed, SeverityCritical, OutcomeFailure,
		ResourceTransfer, s.TransferID.String(), CategorySettlement, err,
		"account", s.AccountID.String(),
		"amount", s.Amount.String(),
		"transfer_succeeded", s.Outcome.Success,
	)
}

// ──────────────────────────────────────────────────
// Admin hooks
// ──────────────────────────────────────────────────

// OnCapUpdated implements plugin.OnCapUpdated.
func (e *Extension) OnCapUpdated(ctx context.Context, oldCap, newCap types.Amount) error {
	return e.record(ctx, ActionCapUpdated, SeverityInfo, OutcomeSuccess,
		ResourcePool, "", CategoryAdmin, nil,
		"old_cap", oldCap.String(),
		"new_cap", newCap.String(),
	)
}

// OnPaused implements plugin.OnPaused.
func (e *Extension) OnPaused(ctx context.Context) error {
	return e.record(ctx, ActionPaused, SeverityWarning, OutcomeSuccess,
		ResourcePool, "", CategoryAdmin, nil,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
