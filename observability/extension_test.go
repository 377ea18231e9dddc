package observability_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/observability"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

type counter struct {
	mu sync.Mutex
	n  float64
}

func (c *counter) Inc()          { c.Add(1) }
func (c *counter) Add(v float64) { c.mu.Lock(); c.n += v; c.mu.Unlock() }

type histogram struct {
	mu  sync.Mutex
	obs []float64
}

func (h *histogram) Observe(v float64) { h.mu.Lock(); h.obs = append(h.obs, v); h.mu.Unlock() }

type factory struct {
	counters   map[string]*counter
	histograms map[string]*histogram
}

func newFactory() *factory {
	return &factory{counters: map[string]*counter{}, histograms: map[string]*histogram{}}
}

func (f *factory) Counter(name string) observability.Counter {
	c := &counter{}
	f.counters[name] = c
	return c
}

func (f *factory) Histogram(name string) observability.Histogram {
	h := &histogram{}
	f.histograms[name] = h
	return h
}

func TestMetricsExtension(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	assert.Equal(t, "observability-metrics", m.Name())

	_ = m.OnFunded(ctx, &funding.Record{Amount: types.NewAmount(500)})
	_ = m.OnFunded(ctx, &funding.Record{Amount: types.MaxAmount()})

	created := time.Now().Add(-250 * time.Millisecond)
	settledAt := time.Now()
	succeeded := &transfer.Transfer{
		Entity:    types.Entity{CreatedAt: created},
		Amount:    types.NewAmount(200),
		Status:    transfer.StatusSucceeded,
		SettledAt: &settledAt,
	}
	bad := succeeded.Clone()
	bad.Status = transfer.StatusFailed

	_ = m.OnDistributionRequested(ctx, succeeded)
	_ = m.OnDistributionRejected(ctx, "bob.testnet", types.NewAmount(1), errors.New("paused"))
	_ = m.OnSettled(ctx, succeeded)
	_ = m.OnSettled(ctx, bad)
	_ = m.OnSettlementFailed(ctx, transfer.Settlement{}, errors.New("underflow"))
	_ = m.OnCapUpdated(ctx, types.NewAmount(1), types.NewAmount(2))
	_ = m.OnPaused(ctx)

	tests := []struct {
		name string
		want float64
	}{
		{"faucet.pool.fundings", 2},
		{"faucet.distribution.requested", 1},
		{"faucet.distribution.rejected", 1},
		{"faucet.transfer.succeeded", 1},
		{"faucet.transfer.failed", 1},
		{"faucet.settlement.errors", 1},
		{"faucet.admin.cap_updates", 1},
		{"faucet.admin.pauses", 1},
		{"faucet.pool.initialized", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := f.counters[tt.name]
			if !ok {
				t.Fatalf("counter %s not registered", tt.name)
			}
			assert.Equal(t, tt.want, c.n)
		})
	}

	// The 128-bit maximum does not fit a uint64 and is skipped.
	assert.Equal(t, []float64{500}, f.histograms["faucet.pool.funding.amount"].obs)
	assert.Equal(t, []float64{200}, f.histograms["faucet.distribution.amount"].obs)

	latency := f.histograms["faucet.settlement.latency_ms"].obs
	if assert.Len(t, latency, 2) {
		assert.GreaterOrEqual(t, latency[0], float64(250))
	}
}
