package cmd

import (
	"errors"
	"fmt"

	"github.com/shampis/trialbot/internal/admin"
	"github.com/shampis/trialbot/internal/style"
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:     "ledger",
	GroupID: GroupData,
	Short:   "Inspect and edit the record of claimed keys",
	Long: `Inspect and edit the record of which account received which key.

Examples:
  trialbot ledger list
  trialbot ledger reset 123456789012345678`,
	RunE: requireSubcommand,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every account that has claimed a key, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerResetCmd = &cobra.Command{
	Use:   "reset <account>",
	Short: "Forget an account's claim so it can claim again",
	Long: `Forget an account's claim so it can claim again.

The account is given as a numeric id or a mention such as <@123>. The key the
account received is not returned to the pool.`,
	Args: cobra.ExactArgs(1),
	RunE: runLedgerReset,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerResetCmd)
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, l := openStores(cfg, cliLogger())
	svc := admin.NewService(pool, l, nil)

	out := cmd.OutOrStdout()
	entries := svc.Assignments()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No keys have been claimed yet.")
		return nil
	}

	for _, e := range entries {
		assigned := e.AssignedAt.Raw()
		if e.AssignedAt.Valid() {
			assigned = e.AssignedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%s  %s %s  %s\n",
			style.Dim.Render(assigned),
			style.Account.Render(e.AccountID),
			style.Dim.Render("("+e.Username+")"),
			style.Key.Render(e.Key),
		)
	}
	fmt.Fprintf(out, "\n%d account(s)\n", len(entries))
	return nil
}

func runLedgerReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, l := openStores(cfg, cliLogger())
	svc := admin.NewService(pool, l, nil)

	id, rec, err := svc.ResetAccount(args[0])
	if err != nil {
		if errors.Is(err, admin.ErrNotFound) {
			return fmt.Errorf("account %s has not claimed a key", id)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Reset %s %s. They can claim a new key.\n",
		style.SuccessPrefix, style.Account.Render(id), style.Dim.Render("(had "+rec.Key+")"))
	return nil
}
