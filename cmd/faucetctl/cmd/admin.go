package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/internal/ui"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

var (
	initOwner    string
	initContract string
	initCap      string

	setCapCaller string
	pauseCaller  string

	settleFailed bool
	settleReason string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the pool with zero counters",
	Long: `Create the pool. This can only be done once per database.

Examples:
  faucetctl init --owner owner.testnet --token-contract token.testnet --cap 1000000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		maxShare, err := types.ParseAmount(initCap)
		if err != nil {
			return fmt.Errorf("--cap: %w", err)
		}
		err = engine.Init(cmd.Context(), types.AccountID(initOwner), types.AccountID(initContract), maxShare)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("pool initialized"))
		return nil
	},
}

var setCapCmd = &cobra.Command{
	Use:   "set-cap <amount>",
	Short: "Replace the per-account cap (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newCap, err := types.ParseAmount(args[0])
		if err != nil {
			return err
		}
		if err := engine.UpdateCap(cmd.Context(), faucet.From(types.AccountID(setCapCaller)), newCap); err != nil {
			return err
		}
		fmt.Println(ui.Success("cap set to " + newCap.String()))
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Stop all further distributions (owner only, irreversible)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.Pause(cmd.Context(), faucet.From(types.AccountID(pauseCaller))); err != nil {
			return err
		}
		fmt.Println(ui.Warn("faucet paused"))
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle <transfer-id>",
	Short: "Settle a transfer left pending",
	Long: `Settle a transfer that was admitted but never settled, for example
because the process stopped while the transfer was queued.

Check the recipient's balance on the token ledger first: settle as
succeeded only if the tokens arrived, otherwise pass --failed.

Examples:
  faucetctl settle xfer_01h2xcejqtf2nbrexx3vqjhp41
  faucetctl settle xfer_01h2xcejqtf2nbrexx3vqjhp41 --failed --reason "never sent"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transferID, err := id.ParseTransferID(args[0])
		if err != nil {
			return err
		}
		t, err := engine.Transfer(cmd.Context(), transferID)
		if err != nil {
			return err
		}

		outcome := transfer.Succeeded()
		if settleFailed {
			outcome = transfer.Failed(settleReason)
		}
		err = engine.Settle(cmd.Context(), faucet.From(engine.AccountID()), transfer.Settlement{
			TransferID: t.ID,
			AccountID:  t.AccountID,
			Amount:     t.Amount,
			Outcome:    outcome,
		})
		if err != nil {
			return err
		}

		status := transfer.StatusSucceeded
		if settleFailed {
			status = transfer.StatusFailed
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s settled as %s", t.ID, status)))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initOwner, "owner", "", "account allowed to fund and administer the faucet")
	initCmd.Flags().StringVar(&initContract, "token-contract", "", "fungible-token contract the faucet distributes")
	initCmd.Flags().StringVar(&initCap, "cap", "", "lifetime cap per account, in base units")
	for _, name := range []string{"owner", "token-contract", "cap"} {
		_ = initCmd.MarkFlagRequired(name)
	}

	callerFlag(setCapCmd, &setCapCaller, "calling account (must be the owner)")
	callerFlag(pauseCmd, &pauseCaller, "calling account (must be the owner)")

	settleCmd.Flags().BoolVar(&settleFailed, "failed", false, "record the transfer as failed")
	settleCmd.Flags().StringVar(&settleReason, "reason", "settled manually", "failure reason recorded with --failed")
}
