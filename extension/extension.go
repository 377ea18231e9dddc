// Package extension provides the Forge extension adapter for the faucet.
//
// It implements the forge.Extension interface to integrate the faucet
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.faucet" or "faucet" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/store"
	"github.com/xraph/faucet/store/bolt"
	"github.com/xraph/faucet/store/memory"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "faucet"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fungible-token faucet engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the faucet as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *faucet.Faucet
	store      store.Store
	tokens     faucet.TokenLedger
	faucetOpts []faucet.Option
}

// New creates a new faucet Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying faucet instance.
// This is nil until Register is called.
func (e *Extension) Engine() *faucet.Faucet { return e.engine }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// initializes the faucet engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.tokens == nil {
		return errors.New("faucet: extension requires a token ledger (use WithTokenLedger)")
	}

	if e.store == nil {
		s, err := e.openStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildFaucetOpts()
	if err != nil {
		return err
	}

	e.engine = faucet.New(e.store, e.tokens, opts...)

	return vessel.Provide(fapp.Container(), func() (*faucet.Faucet, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("faucet: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}
	if err := e.bootstrapPool(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("faucet: store not initialized")
	}
	return e.store.Ping(ctx)
}

// openStore picks the backend named by the config.
func (e *Extension) openStore() (store.Store, error) {
	if e.config.BoltPath == "" {
		return memory.New(), nil
	}
	s, err := bolt.Open(e.config.BoltPath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// bootstrapPool initializes the pool from config when an owner is set.
func (e *Extension) bootstrapPool(ctx context.Context) error {
	if e.config.Owner == "" {
		return nil
	}

	maxShare := types.Amount{}
	if e.config.MaxSharePerAccount != "" {
		var err error
		if maxShare, err = types.ParseAmount(e.config.MaxSharePerAccount); err != nil {
			return fmt.Errorf("faucet: max_share_per_account: %w", err)
		}
	}

	err := e.engine.Init(ctx,
		types.AccountID(e.config.Owner),
		types.AccountID(e.config.TokenContract),
		maxShare,
	)
	if errors.Is(err, faucet.ErrAlreadyInitialized) {
		return nil
	}
	return err
}

// buildFaucetOpts constructs faucet.Option values from the resolved config.
func (e *Extension) buildFaucetOpts() ([]faucet.Option, error) {
	opts := make([]faucet.Option, 0, len(e.faucetOpts)+7)

	if e.config.AccountID != "" {
		account, err := types.ParseAccountID(e.config.AccountID)
		if err != nil {
			return nil, fmt.Errorf("faucet: account_id: %w", err)
		}
		opts = append(opts, faucet.WithAccountID(account))
	}

	if e.config.SettlementMode != "" {
		mode := transfer.Mode(e.config.SettlementMode)
		if !mode.Valid() {
			return nil, fmt.Errorf("faucet: unknown settlement_mode %q", e.config.SettlementMode)
		}
		opts = append(opts, faucet.WithSettlementMode(mode))
	}

	if e.config.DepositFloor != "" {
		floor, err := types.ParseAmount(e.config.DepositFloor)
		if err != nil {
			return nil, fmt.Errorf("faucet: deposit_floor: %w", err)
		}
		opts = append(opts, faucet.WithDepositFloor(floor))
	}

	opts = append(opts,
		faucet.WithTokenName(e.config.TokenName),
		faucet.WithTransferConfig(e.config.TransferWorkers, e.config.TransferQueueSize, e.config.TransferTimeout),
		faucet.WithAutoMigrate(!e.config.DisableMigrate),
	)

	// Append any pass-through faucet options.
	opts = append(opts, e.faucetOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("faucet: configuration is required but not found in config files; " +
				"ensure 'extensions.faucet' or 'faucet' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("faucet: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("account_id", e.config.AccountID),
		forge.F("settlement_mode", e.config.SettlementMode),
		forge.F("transfer_workers", e.config.TransferWorkers),
		forge.F("transfer_queue_size", e.config.TransferQueueSize),
		forge.F("transfer_timeout", e.config.TransferTimeout),
		forge.F("bolt_path", e.config.BoltPath),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.faucet", "faucet"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("faucet: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("faucet: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.AccountID == "" {
		cfg.AccountID = defaults.AccountID
	}
	if cfg.SettlementMode == "" {
		cfg.SettlementMode = defaults.SettlementMode
	}
	if cfg.DepositFloor == "" {
		cfg.DepositFloor = defaults.DepositFloor
	}
	if cfg.TokenName == "" {
		cfg.TokenName = defaults.TokenName
	}
	if cfg.TransferWorkers == 0 {
		cfg.TransferWorkers = defaults.TransferWorkers
	}
	if cfg.TransferQueueSize == 0 {
		cfg.TransferQueueSize = defaults.TransferQueueSize
	}
	if cfg.TransferTimeout == 0 {
		cfg.TransferTimeout = defaults.TransferTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	fillString(&yamlConfig.AccountID, programmaticConfig.AccountID)
	fillString(&yamlConfig.SettlementMode, programmaticConfig.SettlementMode)
	fillString(&yamlConfig.DepositFloor, programmaticConfig.DepositFloor)
	fillString(&yamlConfig.TokenName, programmaticConfig.TokenName)
	fillString(&yamlConfig.BoltPath, programmaticConfig.BoltPath)
	fillString(&yamlConfig.Owner, programmaticConfig.Owner)
	fillString(&yamlConfig.TokenContract, programmaticConfig.TokenContract)
	fillString(&yamlConfig.MaxSharePerAccount, programmaticConfig.MaxSharePerAccount)

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.TransferWorkers == 0 && programmaticConfig.TransferWorkers != 0 {
		yamlConfig.TransferWorkers = programmaticConfig.TransferWorkers
	}
	if yamlConfig.TransferQueueSize == 0 && programmaticConfig.TransferQueueSize != 0 {
		yamlConfig.TransferQueueSize = programmaticConfig.TransferQueueSize
	}
	if yamlConfig.TransferTimeout == 0 && programmaticConfig.TransferTimeout != 0 {
		yamlConfig.TransferTimeout = programmaticConfig.TransferTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}

func fillString(dst *string, fallback string) {
	if *dst == "" && fallback != "" {
		*dst = fallback
	}
}
