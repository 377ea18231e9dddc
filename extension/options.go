package extension

import (
	"time"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/plugin"
	"github.com/xraph/faucet/store"
)

// Option configures the faucet Forge extension.
type Option func(*Extension)

// WithStore sets the store for the faucet engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTokenLedger sets the connector to the external token ledger. Required.
func WithTokenLedger(tl faucet.TokenLedger) Option {
	return func(e *Extension) {
		e.tokens = tl
	}
}

// WithFaucetOption passes a faucet.Option through to the underlying engine.
func WithFaucetOption(opt faucet.Option) Option {
	return func(e *Extension) {
		e.faucetOpts = append(e.faucetOpts, opt)
	}
}

// WithPlugin registers a faucet plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.faucetOpts = append(e.faucetOpts, faucet.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithAccountID sets the faucet's own account.
func WithAccountID(account string) Option {
	return func(e *Extension) { e.config.AccountID = account }
}

// WithSettlementMode sets "reserve" or "legacy" accounting.
func WithSettlementMode(mode string) Option {
	return func(e *Extension) { e.config.SettlementMode = mode }
}

// WithTransferTimeout bounds a single token ledger call.
func WithTransferTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.TransferTimeout = d }
}

// WithBoltPath opens a bbolt store at path when no store is set.
func WithBoltPath(path string) Option {
	return func(e *Extension) { e.config.BoltPath = path }
}

// WithBootstrap initializes the pool on start if it does not exist yet.
func WithBootstrap(owner, tokenContract, maxSharePerAccount string) Option {
	return func(e *Extension) {
		e.config.Owner = owner
		e.config.TokenContract = tokenContract
		e.config.MaxSharePerAccount = maxSharePerAccount
	}
}
