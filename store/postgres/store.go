package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migrate executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	faucetstore "github.com/xraph/faucet/store"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// compile-time interface check
var _ faucetstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("faucet/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("faucet/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Pool Store ====================

func (s *Store) InitPool(ctx context.Context, p *pool.State) error {
	res, err := s.pg.NewInsert(toPoolModel(p)).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return faucet.ErrAlreadyInitialized
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context) (*pool.State, error) {
	m := new(poolModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", poolRowID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, faucet.ErrNotInitialized
		}
		return nil, err
	}
	return fromPoolModel(m)
}

// ==================== Share Store ====================

func (s *Store) GetShare(ctx context.Context, account types.AccountID) (types.Amount, error) {
	m := new(shareModel)
	err := s.pg.NewSelect(m).
		Where("account_id = $1", account.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return types.Amount{}, nil
		}
		return types.Amount{}, err
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) ListShares(ctx context.Context, opts share.ListOpts) ([]*share.Entry, error) {
	var models []shareModel
	q := s.pg.NewSelect(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("account_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*share.Entry, len(models))
	for i := range models {
		e, err := fromShareModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Transfer Store ====================

func (s *Store) GetTransfer(ctx context.Context, transferID id.TransferID) (*transfer.Transfer, error) {
	m := new(transferModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", transferID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, faucet.ErrTransferNotFound
		}
		return nil, err
	}
	return fromTransferModel(m)
}

func (s *Store) ListTransfers(ctx context.Context, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	var models []transferModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.AccountID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("account_id = $%d", argIdx), opts.AccountID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*transfer.Transfer, len(models))
	for i := range models {
		t, err := fromTransferModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Funding Store ====================

func (s *Store) ListFundings(ctx context.Context, opts funding.ListOpts) ([]*funding.Record, error) {
	var models []fundingModel
	q := s.pg.NewSelect(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*funding.Record, len(models))
	for i := range models {
		r, err := fromFundingModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Changeset ====================

// Apply writes the records of cs in one transaction.
func (s *Store) Apply(ctx context.Context, cs *faucetstore.Changeset) error {
	if err := cs.Validate(); err != nil {
		return err
	}

	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("faucet/postgres: begin apply: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if cs.Share != nil {
		_, err := tx.NewInsert(toShareModel(cs.Share)).
			OnConflict("(account_id) DO UPDATE").
			Set("amount = EXCLUDED.amount").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("faucet/postgres: upsert share: %w", err)
		}
	}
	if cs.Transfer != nil {
		_, err := tx.NewInsert(toTransferModel(cs.Transfer)).
			OnConflict("(id) DO UPDATE").
			Set("status = EXCLUDED.status").
			Set("reason = EXCLUDED.reason").
			Set("settled_at = EXCLUDED.settled_at").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("faucet/postgres: upsert transfer: %w", err)
		}
	}
	if cs.Funding != nil {
		if _, err := tx.NewInsert(toFundingModel(cs.Funding)).Exec(ctx); err != nil {
			return fmt.Errorf("faucet/postgres: insert funding: %w", err)
		}
	}

	res, err := tx.NewUpdate(toPoolModel(cs.Pool)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("faucet/postgres: update pool: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return faucet.ErrNotInitialized
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("faucet/postgres: commit apply: %w", err)
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
