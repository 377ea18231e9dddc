package extension

import "time"

// Config holds the faucet extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.faucet" or "faucet" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// AccountID is the faucet's own account (default: "faucet").
	AccountID string `json:"account_id" mapstructure:"account_id" yaml:"account_id"`

	// SettlementMode is "reserve" (default) or "legacy".
	SettlementMode string `json:"settlement_mode" mapstructure:"settlement_mode" yaml:"settlement_mode"`

	// DepositFloor is the amount, in base units, a distribution request's
	// deposit must exceed (default: "0").
	DepositFloor string `json:"deposit_floor" mapstructure:"deposit_floor" yaml:"deposit_floor"`

	// TokenName appears in transfer memos (default: "ICB").
	TokenName string `json:"token_name" mapstructure:"token_name" yaml:"token_name"`

	// TransferWorkers is the number of goroutines moving tokens (default: 4).
	TransferWorkers int `json:"transfer_workers" mapstructure:"transfer_workers" yaml:"transfer_workers"`

	// TransferQueueSize bounds the admitted transfers waiting for a worker
	// (default: 1024).
	TransferQueueSize int `json:"transfer_queue_size" mapstructure:"transfer_queue_size" yaml:"transfer_queue_size"`

	// TransferTimeout bounds a single token ledger call (default: 30s).
	TransferTimeout time.Duration `json:"transfer_timeout" mapstructure:"transfer_timeout" yaml:"transfer_timeout"`

	// BoltPath opens a bbolt store at this path when no store was provided
	// programmatically. Empty means an in-memory store.
	BoltPath string `json:"bolt_path" mapstructure:"bolt_path" yaml:"bolt_path"`

	// Owner, TokenContract and MaxSharePerAccount initialize the pool on
	// start when Owner is set. An already initialized pool is left as is.
	Owner              string `json:"owner" mapstructure:"owner" yaml:"owner"`
	TokenContract      string `json:"token_contract" mapstructure:"token_contract" yaml:"token_contract"`
	MaxSharePerAccount string `json:"max_share_per_account" mapstructure:"max_share_per_account" yaml:"max_share_per_account"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AccountID:         "faucet",
		SettlementMode:    "reserve",
		DepositFloor:      "0",
		TokenName:         "ICB",
		TransferWorkers:   4,
		TransferQueueSize: 1024,
		TransferTimeout:   30 * time.Second,
	}
}
