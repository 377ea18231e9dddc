package faucet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/plugin"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/store"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Defaults applied by New.
const (
	DefaultAccountID       types.AccountID = "faucet"
	DefaultTokenName                       = "ICB"
	DefaultTransferWorkers                 = 4
	DefaultQueueSize                       = 1024
	DefaultTransferTimeout                 = 30 * time.Second
)

// Faucet is the distribution engine.
type Faucet struct {
	store   store.Store
	tokens  TokenLedger
	plugins *plugin.Registry
	logger  *slog.Logger

	// mu serializes every entry point that reads and writes the pool.
	mu sync.Mutex

	// Background workers
	lifecycle sync.Mutex
	running   bool
	baseCtx   context.Context
	jobs      chan *job
	stopChan  chan struct{}
	wg        sync.WaitGroup

	// Configuration
	self            types.AccountID
	mode            transfer.Mode
	depositFloor    types.Amount
	transferDeposit types.Amount
	tokenName       string
	workers         int
	queueSize       int
	transferTimeout time.Duration
	autoMigrate     bool
}

type job struct {
	transfer *transfer.Transfer
	receipt  *Receipt
}

// New creates a new Faucet backed by s that moves tokens through tokens.
func New(s store.Store, tokens TokenLedger, opts ...Option) *Faucet {
	f := &Faucet{
		store:           s,
		tokens:          tokens,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		self:            DefaultAccountID,
		mode:            transfer.ModeReserve,
		depositFloor:    types.Amount{},
		transferDeposit: types.NewAmount(1),
		tokenName:       DefaultTokenName,
		workers:         DefaultTransferWorkers,
		queueSize:       DefaultQueueSize,
		transferTimeout: DefaultTransferTimeout,
		autoMigrate:     true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Option configures a Faucet instance.
type Option func(*Faucet)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Faucet) {
		f.logger = logger
		f.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(f *Faucet) {
		_ = f.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds how long a single plugin hook may run.
func WithPluginTimeout(d time.Duration) Option {
	return func(f *Faucet) {
		f.plugins.WithTimeout(d)
	}
}

// WithAccountID sets the faucet's own account. Settlements are only
// accepted from this account.
func WithAccountID(account types.AccountID) Option {
	return func(f *Faucet) {
		f.self = account
	}
}

// WithSettlementMode selects reserve or legacy accounting for new transfers.
// Unknown modes are ignored.
func WithSettlementMode(mode transfer.Mode) Option {
	return func(f *Faucet) {
		if mode.Valid() {
			f.mode = mode
		}
	}
}

// WithDepositFloor sets the bound a distribution request's deposit must
// exceed. The default floor of zero accepts any nonzero deposit; a floor of 1
// requires at least 2 units.
func WithDepositFloor(floor types.Amount) Option {
	return func(f *Faucet) {
		f.depositFloor = floor
	}
}

// WithTransferConfig configures the transfer workers. Zero values keep the
// defaults.
func WithTransferConfig(workers, queueSize int, timeout time.Duration) Option {
	return func(f *Faucet) {
		if workers > 0 {
			f.workers = workers
		}
		if queueSize > 0 {
			f.queueSize = queueSize
		}
		if timeout > 0 {
			f.transferTimeout = timeout
		}
	}
}

// WithTokenName sets the token name used in transfer memos.
func WithTokenName(name string) Option {
	return func(f *Faucet) {
		if name != "" {
			f.tokenName = name
		}
	}
}

// WithAutoMigrate controls whether Start migrates the store.
func WithAutoMigrate(enabled bool) Option {
	return func(f *Faucet) {
		f.autoMigrate = enabled
	}
}

// AccountID returns the faucet's own account.
func (f *Faucet) AccountID() types.AccountID { return f.self }

// Mode returns the settlement mode applied to new transfers.
func (f *Faucet) Mode() transfer.Mode { return f.mode }

// Store returns the underlying store.
func (f *Faucet) Store() store.Store { return f.store }

// Plugins returns the plugin registry.
func (f *Faucet) Plugins() *plugin.Registry { return f.plugins }

// Start migrates the store and begins the transfer workers.
func (f *Faucet) Start(ctx context.Context) error {
	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()

	if f.running {
		return nil
	}

	// Migrate database
	if f.autoMigrate {
		if err := f.store.Migrate(ctx); err != nil {
			return err
		}
	}

	// Initialize plugins
	f.plugins.EmitInit(ctx, f)

	f.baseCtx = context.WithoutCancel(ctx)
	f.jobs = make(chan *job, f.queueSize)
	f.stopChan = make(chan struct{})
	for range f.workers {
		f.wg.Add(1)
		go f.transferWorker()
	}
	f.mu.Lock()
	f.running = true
	f.mu.Unlock()

	f.logger.Info("faucet started",
		"account", f.self,
		"mode", f.mode,
		"workers", f.workers,
		"queue_size", f.queueSize,
		"transfer_timeout", f.transferTimeout,
	)

	return nil
}

// Stop waits for in-flight transfers to settle, then closes the store.
// Transfers still queued stay pending.
func (f *Faucet) Stop() error {
	f.lifecycle.Lock()
	if f.running {
		// Holding mu keeps RequestDistribution from enqueueing while we stop.
		f.mu.Lock()
		f.running = false
		close(f.stopChan)
		f.mu.Unlock()
	}
	f.lifecycle.Unlock()

	f.wg.Wait()

	if n := len(f.jobs); n > 0 {
		f.logger.Warn("faucet stopped with queued transfers left pending", "count", n)
	}

	f.plugins.EmitShutdown(context.Background())

	return f.store.Close()
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

// Init stores the pool with zero counters. It can only succeed once per store.
func (f *Faucet) Init(ctx context.Context, owner, tokenContract types.AccountID, maxSharePerAccount types.Amount) error {
	if _, err := types.ParseAccountID(owner.String()); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if _, err := types.ParseAccountID(tokenContract.String()); err != nil {
		return fmt.Errorf("token contract: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	state := &pool.State{
		Entity:             types.NewEntity(),
		Owner:              owner,
		TokenContract:      tokenContract,
		MaxSharePerAccount: maxSharePerAccount,
	}
	if err := f.store.InitPool(ctx, state); err != nil {
		return err
	}

	f.logger.Info("faucet pool initialized",
		"owner", owner,
		"token_contract", tokenContract,
		"max_share_per_account", maxSharePerAccount.String(),
	)
	f.plugins.EmitPoolInitialized(ctx, state.Clone())
	return nil
}

// ──────────────────────────────────────────────────
// Funding Intake
// ──────────────────────────────────────────────────

// NotifyFunding accepts tokens sent to the faucet by the owner through the
// token contract. The whole amount is kept, so the returned refund is zero.
func (f *Faucet) NotifyFunding(ctx context.Context, call Call, sender types.AccountID, amount types.Amount, msg string) (types.Amount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.store.GetPool(ctx)
	if err != nil {
		return types.Amount{}, err
	}

	if sender != state.Owner {
		return types.Amount{}, fmt.Errorf("%w: %s", ErrSenderNotOwner, sender)
	}
	if call.Predecessor != state.TokenContract {
		return types.Amount{}, fmt.Errorf("%w: %s", ErrNotTokenContract, call.Predecessor)
	}

	next := state.Clone()
	next.Touch()
	if next.TotalBalanceShare, err = state.TotalBalanceShare.Add(amount); err != nil {
		return types.Amount{}, err
	}

	rec := &funding.Record{
		ID:        id.NewFundingID(),
		Sender:    sender,
		Amount:    amount,
		Message:   msg,
		CreatedAt: next.UpdatedAt,
	}
	if err := f.store.Apply(ctx, &store.Changeset{Pool: next, Funding: rec}); err != nil {
		return types.Amount{}, err
	}

	f.logger.Info("faucet funded",
		"sender", sender,
		"amount", amount.String(),
		"total_balance_share", next.TotalBalanceShare.String(),
	)
	f.plugins.EmitFunded(ctx, rec)
	return types.Amount{}, nil
}

// ──────────────────────────────────────────────────
// Distribution Engine
// ──────────────────────────────────────────────────

// RequestDistribution admits a transfer of amount to the caller and queues it.
// The returned receipt resolves once the transfer has been settled.
func (f *Faucet) RequestDistribution(ctx context.Context, call Call, amount types.Amount) (*Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.admit(ctx, call, amount)
	if err != nil {
		if IsValidation(err) || IsArithmetic(err) {
			f.plugins.EmitDistributionRejected(ctx, call.Predecessor, amount, err)
		}
		f.logger.Debug("distribution rejected",
			"account", call.Predecessor,
			"amount", amount.String(),
			"error", err,
		)
		return nil, err
	}

	r := newReceipt(t)
	// Only admit enqueues and it holds mu, so the free slot checked in admit
	// is still free here.
	f.jobs <- &job{transfer: t.Clone(), receipt: r}

	f.logger.Info("distribution admitted",
		"transfer_id", t.ID.String(),
		"account", t.AccountID,
		"amount", t.Amount.String(),
		"mode", t.Mode,
	)
	f.plugins.EmitDistributionRequested(ctx, t.Clone())
	return r, nil
}

// admit validates a request and stores its pending transfer. Callers hold mu.
func (f *Faucet) admit(ctx context.Context, call Call, amount types.Amount) (*transfer.Transfer, error) {
	if !f.running {
		return nil, ErrNotStarted
	}
	account, err := types.ParseAccountID(call.Predecessor.String())
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: distribution amount must be positive", ErrInvalidAmount)
	}
	if !call.Deposit.GreaterThan(f.depositFloor) {
		return nil, fmt.Errorf("%w: attached %s, want more than %s", ErrInvalidDeposit, call.Deposit, f.depositFloor)
	}

	state, err := f.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	if state.IsPaused {
		return nil, ErrPaused
	}
	if state.TotalBalanceShare.LessThan(amount) {
		return nil, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientPool, amount, state.TotalBalanceShare)
	}

	committed, err := f.store.GetShare(ctx, account)
	if err != nil {
		return nil, err
	}
	if f.mode == transfer.ModeReserve {
		pending, err := f.pendingFor(ctx, account)
		if err != nil {
			return nil, err
		}
		if committed, err = committed.Add(pending); err != nil {
			return nil, err
		}
	}
	total, err := committed.Add(amount)
	if err != nil {
		return nil, err
	}
	if total.GreaterThan(state.MaxSharePerAccount) {
		return nil, fmt.Errorf("%w: %s would reach %s of %s", ErrCapExceeded, account, total, state.MaxSharePerAccount)
	}

	if len(f.jobs) == cap(f.jobs) {
		return nil, ErrTransferQueueFull
	}

	next := state.Clone()
	next.Touch()
	if f.mode == transfer.ModeReserve {
		if next.TotalBalanceShare, err = state.TotalBalanceShare.Sub(amount); err != nil {
			return nil, err
		}
		if next.Reserved, err = state.Reserved.Add(amount); err != nil {
			return nil, err
		}
	}

	t := &transfer.Transfer{
		Entity:         types.NewEntity(),
		ID:             id.NewTransferID(),
		AccountID:      account,
		Amount:         amount,
		Memo:           f.memo(),
		Status:         transfer.StatusPending,
		Mode:           f.mode,
		CapAtAdmission: state.MaxSharePerAccount,
	}
	if err := f.store.Apply(ctx, &store.Changeset{Pool: next, Transfer: t}); err != nil {
		return nil, err
	}
	return t, nil
}

// pendingFor sums the reserve-mode transfers still awaiting settlement for account.
func (f *Faucet) pendingFor(ctx context.Context, account types.AccountID) (types.Amount, error) {
	pending, err := f.store.ListTransfers(ctx, transfer.ListOpts{
		AccountID: account,
		Status:    transfer.StatusPending,
	})
	if err != nil {
		return types.Amount{}, err
	}

	var total types.Amount
	for _, t := range pending {
		if t.Mode != transfer.ModeReserve {
			continue
		}
		if total, err = total.Add(t.Amount); err != nil {
			return types.Amount{}, err
		}
	}
	return total, nil
}

func (f *Faucet) memo() string {
	return fmt.Sprintf("Faucet of %s Token", f.tokenName)
}

// transferWorker runs queued transfers until Stop is called.
func (f *Faucet) transferWorker() {
	defer f.wg.Done()

	for {
		select {
		case <-f.stopChan:
			return
		case j := <-f.jobs:
			f.runTransfer(j)
		}
	}
}

// runTransfer moves the tokens, then settles as a separate call from the
// faucet's own account.
func (f *Faucet) runTransfer(j *job) {
	t := j.transfer
	start := time.Now()

	ctx, cancel := context.WithTimeout(f.baseCtx, f.transferTimeout)
	err := f.tokens.Transfer(ctx, transfer.Request{
		Receiver: t.AccountID,
		Amount:   t.Amount,
		Memo:     t.Memo,
		Deposit:  f.transferDeposit,
	})
	cancel()

	outcome := transfer.Succeeded()
	if err != nil {
		outcome = transfer.Failed(err.Error())
		f.logger.Warn("token transfer failed",
			"transfer_id", t.ID.String(),
			"account", t.AccountID,
			"amount", t.Amount.String(),
			"error", err,
		)
	}

	settled, err := f.settle(f.baseCtx, From(f.self), transfer.Settlement{
		TransferID: t.ID,
		AccountID:  t.AccountID,
		Amount:     t.Amount,
		Outcome:    outcome,
	})
	if err != nil {
		f.logger.Error("settlement failed",
			"transfer_id", t.ID.String(),
			"error", err,
		)
	} else {
		f.logger.Debug("transfer settled",
			"transfer_id", t.ID.String(),
			"status", settled.Status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	j.receipt.resolve(settled, err)
}

// ──────────────────────────────────────────────────
// Settlement Handler
// ──────────────────────────────────────────────────

// Settle finalizes a pending transfer with the outcome reported by the token
// ledger. Only the faucet's own account may settle.
func (f *Faucet) Settle(ctx context.Context, call Call, s transfer.Settlement) error {
	_, err := f.settle(ctx, call, s)
	return err
}

func (f *Faucet) settle(ctx context.Context, call Call, s transfer.Settlement) (*transfer.Transfer, error) {
	if call.Predecessor != f.self {
		err := fmt.Errorf("%w: %s", ErrNotSelf, call.Predecessor)
		f.plugins.EmitSettlementFailed(ctx, s, err)
		return nil, err
	}

	f.mu.Lock()
	settled, err := f.applySettlement(ctx, s)
	f.mu.Unlock()

	if err != nil {
		f.plugins.EmitSettlementFailed(ctx, s, err)
		return settled, err
	}

	f.plugins.EmitSettled(ctx, settled.Clone())
	return settled, nil
}

// applySettlement does the accounting for one settlement. Callers hold mu.
func (f *Faucet) applySettlement(ctx context.Context, s transfer.Settlement) (*transfer.Transfer, error) {
	t, err := f.store.GetTransfer(ctx, s.TransferID)
	if err != nil {
		return nil, err
	}
	if !t.IsPending() {
		return t, fmt.Errorf("%w: %s is %s", ErrAlreadySettled, t.ID, t.Status)
	}
	if t.AccountID != s.AccountID || !t.Amount.Equal(s.Amount) {
		return t, fmt.Errorf("%w: %s", ErrSettlementMismatch, t.ID)
	}

	state, err := f.store.GetPool(ctx)
	if err != nil {
		return t, err
	}

	next := state.Clone()
	next.Touch()
	settled := t.Clone()
	settled.Touch()
	settledAt := settled.UpdatedAt
	settled.SettledAt = &settledAt
	if s.Outcome.Success {
		settled.Status = transfer.StatusSucceeded
	} else {
		settled.Status = transfer.StatusFailed
		settled.Reason = s.Outcome.Reason
	}

	var entry *share.Entry
	switch t.Mode {
	case transfer.ModeLegacy:
		// The account is credited whatever the outcome.
		if entry, err = f.credit(ctx, next, t.AccountID, t.Amount); err != nil {
			return t, err
		}
		if next.TotalBalanceShare, err = next.TotalBalanceShare.Sub(t.Amount); err != nil {
			return t, err
		}
	default:
		if next.Reserved, err = next.Reserved.Sub(t.Amount); err != nil {
			return t, err
		}
		if s.Outcome.Success {
			if entry, err = f.credit(ctx, next, t.AccountID, t.Amount); err != nil {
				return t, err
			}
		} else if next.TotalBalanceShare, err = next.TotalBalanceShare.Add(t.Amount); err != nil {
			return t, err
		}
	}

	if err := f.store.Apply(ctx, &store.Changeset{Pool: next, Share: entry, Transfer: settled}); err != nil {
		return t, err
	}
	return settled, nil
}

// credit adds amount to account's entry and the pool counters in next.
func (f *Faucet) credit(ctx context.Context, next *pool.State, account types.AccountID, amount types.Amount) (*share.Entry, error) {
	balance, err := f.store.GetShare(ctx, account)
	if err != nil {
		return nil, err
	}
	if balance.IsZero() {
		if next.TotalAccountShared, err = next.TotalAccountShared.Inc(); err != nil {
			return nil, err
		}
	}
	updated, err := balance.Add(amount)
	if err != nil {
		return nil, err
	}
	if next.TotalShared, err = next.TotalShared.Add(amount); err != nil {
		return nil, err
	}
	return &share.Entry{
		Entity:    types.NewEntity(),
		AccountID: account,
		Amount:    updated,
	}, nil
}

// ──────────────────────────────────────────────────
// Admin Control
// ──────────────────────────────────────────────────

// UpdateCap replaces the per-account cap. Owner only.
func (f *Faucet) UpdateCap(ctx context.Context, call Call, newCap types.Amount) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.ownerState(ctx, call)
	if err != nil {
		return err
	}

	oldCap := state.MaxSharePerAccount
	next := state.Clone()
	next.Touch()
	next.MaxSharePerAccount = newCap
	if err := f.store.Apply(ctx, &store.Changeset{Pool: next}); err != nil {
		return err
	}

	f.logger.Info("faucet cap updated",
		"old_cap", oldCap.String(),
		"new_cap", newCap.String(),
	)
	f.plugins.EmitCapUpdated(ctx, oldCap, newCap)
	return nil
}

// Pause stops all further distributions. There is no way back. Owner only.
func (f *Faucet) Pause(ctx context.Context, call Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.ownerState(ctx, call)
	if err != nil {
		return err
	}
	if state.IsPaused {
		return nil
	}

	next := state.Clone()
	next.Touch()
	next.IsPaused = true
	if err := f.store.Apply(ctx, &store.Changeset{Pool: next}); err != nil {
		return err
	}

	f.logger.Info("faucet paused", "by", call.Predecessor)
	f.plugins.EmitPaused(ctx)
	return nil
}

func (f *Faucet) ownerState(ctx context.Context, call Call) (*pool.State, error) {
	state, err := f.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	if call.Predecessor != state.Owner {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, call.Predecessor)
	}
	return state, nil
}

// ──────────────────────────────────────────────────
// Query Interface
// ──────────────────────────────────────────────────

// Info returns a snapshot of the pool counters.
func (f *Faucet) Info(ctx context.Context) (*pool.Info, error) {
	state, err := f.store.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	return state.Info(), nil
}

// SharedBalanceOf returns the amount already distributed to account.
func (f *Faucet) SharedBalanceOf(ctx context.Context, account types.AccountID) (types.Amount, error) {
	return f.store.GetShare(ctx, account)
}

// Shares lists ledger entries ordered by account.
func (f *Faucet) Shares(ctx context.Context, opts share.ListOpts) ([]*share.Entry, error) {
	return f.store.ListShares(ctx, opts)
}

// Transfers lists transfer records, oldest first.
func (f *Faucet) Transfers(ctx context.Context, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	return f.store.ListTransfers(ctx, opts)
}

// Transfer returns one transfer record.
func (f *Faucet) Transfer(ctx context.Context, transferID id.TransferID) (*transfer.Transfer, error) {
	return f.store.GetTransfer(ctx, transferID)
}

// Fundings lists accepted funding notifications, oldest first.
func (f *Faucet) Fundings(ctx context.Context, opts funding.ListOpts) ([]*funding.Record, error) {
	return f.store.ListFundings(ctx, opts)
}
