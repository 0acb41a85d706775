// Package cmd implements the trialbot command tree.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shampis/trialbot/internal/config"
	"github.com/shampis/trialbot/internal/keypool"
	"github.com/shampis/trialbot/internal/ledger"
	"github.com/shampis/trialbot/internal/style"
	"github.com/spf13/cobra"
)

// Command groups shown in help output.
const (
	GroupBot    = "bot"
	GroupData   = "data"
	GroupConfig = "config"
)

var configPath string // --config: path to the TOML settings file

var rootCmd = &cobra.Command{
	Use:   "trialbot",
	Short: "Discord bot that hands out one trial license key per account",
	Long: `trialbot runs a Discord bot that gives every account at most one trial
license key from a flat key file, and records who received which key.

The key file and the assignment database are plain files. The data commands
below operate on the same files and are safe to run while the bot is up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupBot, Title: "Bot:"},
		&cobra.Group{ID: GroupData, Title: "Keys and assignments:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration:"},
	)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
		return 1
	}
	return 0
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openStores opens the key pool and the ledger named by cfg.
func openStores(cfg *config.Config, logger *slog.Logger) (*keypool.Pool, *ledger.Ledger) {
	return keypool.New(cfg.Storage.KeysFile, logger), ledger.New(cfg.Storage.DatabaseFile, logger)
}

// newLogger builds the process logger from the log section of the config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// cliLogger keeps store warnings out of CLI output unless they are errors.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
