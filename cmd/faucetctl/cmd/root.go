// Package cmd implements the faucetctl commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/store/bolt"
	"github.com/xraph/faucet/types"
)

// Version is the current release. Overridable via build ldflags.
var Version = "0.1.0"

var (
	dbPath    string
	accountID string
	verbose   bool

	db     *bolt.Store
	engine *faucet.Faucet
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "faucetctl",
	Short: "Inspect and administer a token faucet",
	Long: `faucetctl opens the faucet's bbolt database and runs one query or
admin call against it.

Admin calls take the calling account with --as and go through the same
checks as the embedded engine: pause and set-cap require the owner,
settle requires the faucet's own account.

The database path comes from --db, or FAUCET_DB when the flag is unset.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if dbPath == "" {
			return fmt.Errorf("no database: pass --db or set FAUCET_DB")
		}
		self, err := types.ParseAccountID(accountID)
		if err != nil {
			return fmt.Errorf("--account-id: %w", err)
		}

		db, err = bolt.Open(dbPath)
		if err != nil {
			return err
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		engine = faucet.New(db, nil,
			faucet.WithAccountID(self),
			faucet.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
		)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// closeDB runs after every command, including failed ones.
func closeDB() {
	if db != nil {
		_ = db.Close()
		db = nil
	}
}

func init() {
	cobra.OnFinalize(closeDB)

	// FAUCET_DB fills in --db when the flag is not passed.
	dbPath = os.Getenv("FAUCET_DB")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", dbPath, "path to the faucet bbolt database")
	rootCmd.PersistentFlags().StringVar(&accountID, "account-id", faucet.DefaultAccountID.String(), "the faucet's own account")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		initCmd,
		infoCmd,
		balanceCmd,
		sharesCmd,
		transfersCmd,
		fundingsCmd,
		setCapCmd,
		pauseCmd,
		settleCmd,
	)
}

// callerFlag registers the --as flag on an admin command.
func callerFlag(c *cobra.Command, target *string, usage string) {
	c.Flags().StringVar(target, "as", "", usage)
	_ = c.MarkFlagRequired("as")
}
