package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the faucet store.
var Migrations = migrate.NewGroup("faucet")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_faucet_pool",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS faucet_pool (
    id                    INTEGER PRIMARY KEY,
    owner                 TEXT NOT NULL,
    token_contract        TEXT NOT NULL,
    total_balance_share   TEXT NOT NULL DEFAULT '0',
    total_shared          TEXT NOT NULL DEFAULT '0',
    total_account_shared  TEXT NOT NULL DEFAULT '0',
    max_share_per_account TEXT NOT NULL DEFAULT '0',
    is_paused             INTEGER NOT NULL DEFAULT 0,
    reserved              TEXT NOT NULL DEFAULT '0',
    created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at            DATETIME NOT NULL DEFAULT (datetime('now')),
    CHECK (id = 1)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS faucet_pool`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_faucet_shares",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS faucet_shares (
    account_id TEXT PRIMARY KEY,
    amount     TEXT NOT NULL DEFAULT '0',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS faucet_shares`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_faucet_transfers",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS faucet_transfers (
    id               TEXT PRIMARY KEY,
    account_id       TEXT NOT NULL,
    amount           TEXT NOT NULL,
    memo             TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'pending',
    reason           TEXT NOT NULL DEFAULT '',
    mode             TEXT NOT NULL DEFAULT 'reserve',
    cap_at_admission TEXT NOT NULL DEFAULT '0',
    settled_at       DATETIME,
    created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_faucet_transfers_account ON faucet_transfers (account_id, status);
CREATE INDEX IF NOT EXISTS idx_faucet_transfers_status ON faucet_transfers (status, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS faucet_transfers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_faucet_fundings",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS faucet_fundings (
    id         TEXT PRIMARY KEY,
    sender     TEXT NOT NULL,
    amount     TEXT NOT NULL,
    message    TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_faucet_fundings_created ON faucet_fundings (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS faucet_fundings`)
				return err
			},
		},
	)
}
