package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// defaultHookTimeout bounds a single plugin hook call.
const defaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onPoolInitialized       []OnPoolInitialized
	onFunded                []OnFunded
	onDistributionRequested []OnDistributionRequested
	onDistributionRejected  []OnDistributionRejected
	onSettled               []OnSettled
	onSettlementFailed      []OnSettlementFailed
	onCapUpdated            []OnCapUpdated
	onPaused                []OnPaused
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: defaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single hook may run before it is abandoned.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPoolInitialized); ok {
		r.onPoolInitialized = append(r.onPoolInitialized, v)
	}
	if v, ok := p.(OnFunded); ok {
		r.onFunded = append(r.onFunded, v)
	}
	if v, ok := p.(OnDistributionRequested); ok {
		r.onDistributionRequested = append(r.onDistributionRequested, v)
	}
	if v, ok := p.(OnDistributionRejected); ok {
		r.onDistributionRejected = append(r.onDistributionRejected, v)
	}
	if v, ok := p.(OnSettled); ok {
		r.onSettled = append(r.onSettled, v)
	}
	if v, ok := p.(OnSettlementFailed); ok {
		r.onSettlementFailed = append(r.onSettlementFailed, v)
	}
	if v, ok := p.(OnCapUpdated); ok {
		r.onCapUpdated = append(r.onCapUpdated, v)
	}
	if v, ok := p.(OnPaused); ok {
		r.onPaused = append(r.onPaused, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPoolInitialized)(nil)).Elem(), "OnPoolInitialized")
	checkInterface(reflect.TypeOf((*OnFunded)(nil)).Elem(), "OnFunded")
	checkInterface(reflect.TypeOf((*OnDistributionRequested)(nil)).Elem(), "OnDistributionRequested")
	checkInterface(reflect.TypeOf((*OnDistributionRejected)(nil)).Elem(), "OnDistributionRejected")
	checkInterface(reflect.TypeOf((*OnSettled)(nil)).Elem(), "OnSettled")
	checkInterface(reflect.TypeOf((*OnSettlementFailed)(nil)).Elem(), "OnSettlementFailed")
	checkInterface(reflect.TypeOf((*OnCapUpdated)(nil)).Elem(), "OnCapUpdated")
	checkInterface(reflect.TypeOf((*OnPaused)(nil)).Elem(), "OnPaused")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, f interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, f)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitPoolInitialized emits a pool initialized event.
func (r *Registry) EmitPoolInitialized(ctx context.Context, state *pool.State) {
	r.mu.RLock()
	plugins := r.onPoolInitialized
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnPoolInitialized", func() error {
			return p.OnPoolInitialized(ctx, state)
		})
	}
}

// EmitFunded emits a funding accepted event.
func (r *Registry) EmitFunded(ctx context.Context, rec *funding.Record) {
	r.mu.RLock()
	plugins := r.onFunded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnFunded", func() error {
			return p.OnFunded(ctx, rec)
		})
	}
}

// EmitDistributionRequested emits a distribution admitted event.
func (r *Registry) EmitDistributionRequested(ctx context.Context, t *transfer.Transfer) {
	r.mu.RLock()
	plugins := r.onDistributionRequested
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnDistributionRequested", func() error {
			return p.OnDistributionRequested(ctx, t)
		})
	}
}

// EmitDistributionRejected emits a distribution rejected event.
func (r *Registry) EmitDistributionRejected(ctx context.Context, account types.AccountID, amount types.Amount, reason error) {
	r.mu.RLock()
	plugins := r.onDistributionRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnDistributionRejected", func() error {
			return p.OnDistributionRejected(ctx, account, amount, reason)
		})
	}
}

// EmitSettled emits a settlement applied event.
func (r *Registry) EmitSettled(ctx context.Context, t *transfer.Transfer) {
	r.mu.RLock()
	plugins := r.onSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnSettled", func() error {
			return p.OnSettled(ctx, t)
		})
	}
}

// EmitSettlementFailed emits a settlement rejected event.
func (r *Registry) EmitSettlementFailed(ctx context.Context, s transfer.Settlement, err error) {
	r.mu.RLock()
	plugins := r.onSettlementFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnSettlementFailed", func() error {
			return p.OnSettlementFailed(ctx, s, err)
		})
	}
}

// EmitCapUpdated emits a cap updated event.
func (r *Registry) EmitCapUpdated(ctx context.Context, oldCap, newCap types.Amount) {
	r.mu.RLock()
	plugins := r.onCapUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnCapUpdated", func() error {
			return p.OnCapUpdated(ctx, oldCap, newCap)
		})
	}
}

// EmitPaused emits a paused event.
func (r *Registry) EmitPaused(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onPaused
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnPaused", func() error {
			return p.OnPaused(ctx)
		})
	}
}

// dispatch runs one hook and logs its failure. Hook errors never reach the
// caller of the faucet operation.
func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout executes a plugin function with a timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
