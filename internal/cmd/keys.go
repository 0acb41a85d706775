package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shampis/trialbot/internal/admin"
	"github.com/shampis/trialbot/internal/style"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var keysCmd = &cobra.Command{
	Use:     "keys",
	GroupID: GroupData,
	Short:   "Inspect and refill the trial key pool",
	Long: `Inspect and refill the trial key pool.

Keys are handed out from the top of the key file. Lines starting with # and
blank lines are ignored.

Examples:
  trialbot keys count
  trialbot keys list
  trialbot keys add < new-keys.txt`,
	RunE: requireSubcommand,
}

var keysCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show how many keys are left",
	Args:  cobra.NoArgs,
	RunE:  runKeysCount,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the keys in the order they will be handed out",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

var keysAddCmd = &cobra.Command{
	Use:   "add [key...]",
	Short: "Append keys to the end of the pool",
	Long: `Append keys to the end of the pool.

Keys are taken from the arguments, or one per line from standard input when
no arguments are given. On a terminal an editor opens to paste keys into;
press Ctrl+D to add them.`,
	RunE: runKeysAdd,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCountCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysAddCmd)
}

func runKeysCount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, _ := openStores(cfg, cliLogger())

	fmt.Fprintln(cmd.OutOrStdout(), pool.Count())
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, _ := openStores(cfg, cliLogger())

	out := cmd.OutOrStdout()
	keys := pool.List()
	if len(keys) == 0 {
		fmt.Fprintf(out, "%s No keys left in %s\n", style.WarningPrefix, pool.Path())
		return nil
	}
	for i, k := range keys {
		fmt.Fprintf(out, "%s %s\n", style.Dim.Render(fmt.Sprintf("%4d", i+1)), style.Key.Render(k))
	}
	return nil
}

func runKeysAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := readKeysInput(cmd, args)
	if err != nil {
		return err
	}

	pool, l := openStores(cfg, cliLogger())
	svc := admin.NewService(pool, l, nil)

	if len(admin.SplitKeys(raw)) == 0 {
		return errors.New("no keys given")
	}
	added, total, err := svc.BulkAdd(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Added %d key(s). Total: %s\n", style.SuccessPrefix, added, style.Count(total))
	return nil
}

// readKeysInput joins args one per line. Without args it opens an editor when
// stdin is a terminal and reads stdin to the end otherwise.
func readKeysInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, "\n"), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return editKeys(f, cmd.ErrOrStderr())
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading keys: %w", err)
	}
	return string(data), nil
}
