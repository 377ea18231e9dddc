package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/internal/ui"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

var (
	listLimit  int
	listOffset int

	transfersAccount string
	transfersStatus  string
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the pool counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := engine.Info(cmd.Context())
		if err != nil {
			return err
		}

		paused := ui.StyleSuccess.Render("no")
		if info.IsPaused {
			paused = ui.StyleWarning.Render("yes")
		}

		fmt.Println(ui.KeyValueBlock("Faucet "+engine.AccountID().String(), [][2]string{
			{"Owner", ui.Account(info.Owner.String())},
			{"Token contract", ui.Account(info.TokenContract.String())},
			{"Pool balance", ui.Val(info.TotalBalanceShare.String())},
			{"Reserved", ui.Val(info.Reserved.String())},
			{"Total shared", ui.Val(info.TotalShared.String())},
			{"Accounts served", ui.Val(info.TotalAccountShared.String())},
			{"Cap per account", ui.Val(info.MaxSharePerAccount.String())},
			{"Paused", paused},
		}))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show how much an account has received",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := types.ParseAccountID(args[0])
		if err != nil {
			return err
		}
		amount, err := engine.SharedBalanceOf(cmd.Context(), account)
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("", [][2]string{
			{"Account", ui.Account(account.String())},
			{"Received", ui.Val(amount.String())},
		}))
		return nil
	},
}

var sharesCmd = &cobra.Command{
	Use:   "shares",
	Short: "List accounts that received tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := engine.Shares(cmd.Context(), share.ListOpts{Limit: listLimit, Offset: listOffset})
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.AccountID.String(), e.Amount.String(), formatTime(e.UpdatedAt)})
		}
		fmt.Print(ui.Table([]string{"ACCOUNT", "RECEIVED", "UPDATED"}, rows))
		return nil
	},
}

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "List distribution transfers, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := transfer.ListOpts{
			AccountID: types.AccountID(transfersAccount),
			Status:    transfer.Status(transfersStatus),
			Limit:     listLimit,
			Offset:    listOffset,
		}
		switch opts.Status {
		case "", transfer.StatusPending, transfer.StatusSucceeded, transfer.StatusFailed:
		default:
			return fmt.Errorf("unknown status %q", transfersStatus)
		}

		ts, err := engine.Transfers(cmd.Context(), opts)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(ts))
		for _, t := range ts {
			rows = append(rows, []string{
				t.ID.String(),
				t.AccountID.String(),
				t.Amount.String(),
				string(t.Status),
				string(t.Mode),
				formatTime(t.CreatedAt),
				t.Reason,
			})
		}
		fmt.Print(ui.Table([]string{"ID", "ACCOUNT", "AMOUNT", "STATUS", "MODE", "CREATED", "REASON"}, rows))
		return nil
	},
}

var fundingsCmd = &cobra.Command{
	Use:   "fundings",
	Short: "List accepted funding notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := engine.Fundings(cmd.Context(), funding.ListOpts{Limit: listLimit, Offset: listOffset})
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, []string{r.ID.String(), r.Sender.String(), r.Amount.String(), formatTime(r.CreatedAt), strconv.Quote(r.Message)})
		}
		fmt.Print(ui.Table([]string{"ID", "SENDER", "AMOUNT", "CREATED", "MESSAGE"}, rows))
		return nil
	},
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	for _, c := range []*cobra.Command{sharesCmd, transfersCmd, fundingsCmd} {
		c.Flags().IntVar(&listLimit, "limit", 50, "maximum rows to show (0 for all)")
		c.Flags().IntVar(&listOffset, "offset", 0, "rows to skip")
	}
	transfersCmd.Flags().StringVar(&transfersAccount, "account", "", "only transfers to this account")
	transfersCmd.Flags().StringVar(&transfersStatus, "status", "", "only transfers in this status (pending, succeeded, failed)")
}
