// Package observability provides a metrics extension for the faucet that
// records event counts and amounts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/plugin"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnPoolInitialized       = (*MetricsExtension)(nil)
	_ plugin.OnFunded                = (*MetricsExtension)(nil)
	_ plugin.OnDistributionRequested = (*MetricsExtension)(nil)
	_ plugin.OnDistributionRejected  = (*MetricsExtension)(nil)
	_ plugin.OnSettled               = (*MetricsExtension)(nil)
	_ plugin.OnSettlementFailed      = (*MetricsExtension)(nil)
	_ plugin.OnCapUpdated            = (*MetricsExtension)(nil)
	_ plugin.OnPaused                = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records faucet-wide metrics.
// Register it as a faucet plugin to track distribution activity.
type MetricsExtension struct {
	factory MetricFactory

	// Pool metrics
	PoolInitialized Counter
	Fundings        Counter
	FundingAmount   Histogram

	// Distribution metrics
	DistributionRequested Counter
	DistributionRejected  Counter
	DistributionAmount    Histogram

	// Settlement metrics
	TransferSucceeded Counter
	TransferFailed    Counter
	SettlementErrors  Counter
	SettlementLatency Histogram

	// Admin metrics
	CapUpdates Counter
	Pauses     Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Pool metrics
		PoolInitialized: factory.Counter("faucet.pool.initialized"),
		Fundings:        factory.Counter("faucet.pool.fundings"),
		FundingAmount:   factory.Histogram("faucet.pool.funding.amount"),

		// Distribution metrics
		DistributionRequested: factory.Counter("faucet.distribution.requested"),
		DistributionRejected:  factory.Counter("faucet.distribution.rejected"),
		DistributionAmount:    factory.Histogram("faucet.distribution.amount"),

		// Settlement metrics
		TransferSucceeded: factory.Counter("faucet.transfer.succeeded"),
		TransferFailed:    factory.Counter("faucet.transfer.failed"),
		SettlementErrors:  factory.Counter("faucet.settlement.errors"),
		SettlementLatency: factory.Histogram("faucet.settlement.latency_ms"),

		// Admin metrics
		CapUpdates: factory.Counter("faucet.admin.cap_updates"),
		Pauses:     factory.Counter("faucet.admin.pauses"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Pool hooks
// ──────────────────────────────────────────────────

// OnPoolInitialized implements plugin.OnPoolInitialized.
func (m *MetricsExtension) OnPoolInitialized(_ context.Context, _ *pool.State) error {
	m.PoolInitialized.Inc()
	return nil
}

// OnFunded implements plugin.OnFunded.
func (m *MetricsExtension) OnFunded(_ context.Context, rec *funding.Record) error {
	m.Fundings.Inc()
	observeAmount(m.FundingAmount, rec.Amount)
	return nil
}

// ──────────────────────────────────────────────────
// Distribution hooks
// ──────────────────────────────────────────────────

// OnDistributionRequested implements plugin.OnDistributionRequested.
func (m *MetricsExtension) OnDistributionRequested(_ context.Context, t *transfer.Transfer) error {
	m.DistributionRequested.Inc()
	observeAmount(m.DistributionAmount, t.Amount)
	return nil
}

// OnDistributionRejected implements plugin.OnDistributionRejected.
func (m *MetricsExtension) OnDistributionRejected(_ context.Context, _ types.AccountID, _ types.Amount, _ error) error {
	m.DistributionRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettled implements plugin.OnSettled.
func (m *MetricsExtension) OnSettled(_ context.Context, t *transfer.Transfer) error {
	if t.Status == transfer.StatusFailed {
		m.TransferFailed.Inc()
	} else {
		m.TransferSucceeded.Inc()
	}
	if t.SettledAt != nil {
		m.SettlementLatency.Observe(float64(t.SettledAt.Sub(t.CreatedAt).Milliseconds()))
	}
	return nil
}

// OnSettlementFailed implements plugin.OnSettlementFailed.
func (m *MetricsExtension) OnSettlementFailed(_ context.Context, _ transfer.Settlement, _ error) error {
	m.SettlementErrors.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Admin hooks
// ──────────────────────────────────────────────────

// OnCapUpdated implements plugin.OnCapUpdated.
func (m *MetricsExtension) OnCapUpdated(_ context.Context, _, _ types.Amount) error {
	m.CapUpdates.Inc()
	return nil
}

// OnPaused implements plugin.OnPaused.
func (m *MetricsExtension) OnPaused(_ context.Context) error {
	m.Pauses.Inc()
	return nil
}

// observeAmount records amounts that fit in a uint64. Larger values are
// beyond what a float histogram can place usefully.
func observeAmount(h Histogram, a types.Amount) {
	if v, ok := a.Uint64(); ok {
		h.Observe(float64(v))
	}
}
