// Package config loads the bot configuration from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "trialbot.toml"

// Environment variables that override file settings.
const (
	EnvToken        = "TRIALBOT_TOKEN"
	EnvKeysFile     = "TRIALBOT_KEYS_FILE"
	EnvDatabaseFile = "TRIALBOT_DATABASE_FILE"
)

// ErrMissingToken indicates no bot token was configured.
var ErrMissingToken = errors.New("bot token not configured")

// Config holds all bot settings.
type Config struct {
	Discord   DiscordConfig   `toml:"discord"`
	Prompt    PromptConfig    `toml:"prompt"`
	Storage   StorageConfig   `toml:"storage"`
	Claim     ClaimConfig     `toml:"claim"`
	KeepAlive KeepAliveConfig `toml:"keepalive"`
	Log       LogConfig       `toml:"log"`
}

// DiscordConfig controls the chat connection.
type DiscordConfig struct {
	// Token is the bot token. Prefer the TRIALBOT_TOKEN environment variable.
	Token string `toml:"token"`

	// CommandPrefix starts every admin text command.
	CommandPrefix string `toml:"command_prefix"`

	// TrialChannel is the name of the channel the setup command posts into.
	TrialChannel string `toml:"trial_channel"`

	// Status is the "Playing ..." presence shown for the bot.
	Status string `toml:"status"`
}

// PromptConfig controls the claim invitation and the delivered key message.
type PromptConfig struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Color       int    `toml:"color"`
	Footer      string `toml:"footer"`
	ButtonLabel string `toml:"button_label"`
	ButtonEmoji string `toml:"button_emoji"`

	// DeliveryTitle and DeliveryFooter decorate the private key message.
	DeliveryTitle  string `toml:"delivery_title"`
	DeliveryFooter string `toml:"delivery_footer"`
}

// StorageConfig locates the two flat files.
type StorageConfig struct {
	KeysFile     string `toml:"keys_file"`
	DatabaseFile string `toml:"database_file"`
}

// ClaimConfig tunes the claim workflow.
type ClaimConfig struct {
	// DeliveryTimeout bounds a private message delivery, e.g. "15s".
	DeliveryTimeout time.Duration `toml:"delivery_timeout"`
}

// KeepAliveConfig controls the HTTP keep-alive responder.
type KeepAliveConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			CommandPrefix: "!",
			TrialChannel:  "free-trial",
			Status:        "Black Ops 7 🎮",
		},
		Prompt: PromptConfig{
			Title: "🎮 Free Trial Key",
			Description: "Click the button below to receive a **free 1-hour trial key** in your DMs!\n\n" +
				"> Each account can claim **one** trial key.\n" +
				"> Make sure your DMs are open.",
			Color:          0x5865F2,
			Footer:         "Shampis — 1 trial per account",
			ButtonLabel:    "Claim Trial Key",
			ButtonEmoji:    "🎁",
			DeliveryTitle:  "🎮 Your Trial Key — Shampis BO7",
			DeliveryFooter: "Shampis — Black Ops 7 External",
		},
		Storage: StorageConfig{
			KeysFile:     "keys.txt",
			DatabaseFile: "database.json",
		},
		Claim: ClaimConfig{
			DeliveryTimeout: 15 * time.Second,
		},
		KeepAlive: KeepAliveConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. A missing file is not an error. Relative storage
// paths are resolved against the directory containing the config file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0600)
}

// Validate checks the settings needed to connect to the chat platform.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("%w: set %s or discord.token", ErrMissingToken, EnvToken)
	}
	if c.Discord.CommandPrefix == "" {
		return errors.New("discord.command_prefix must not be empty")
	}
	if c.Storage.KeysFile == "" || c.Storage.DatabaseFile == "" {
		return errors.New("storage.keys_file and storage.database_file are required")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv(EnvKeysFile); v != "" {
		c.Storage.KeysFile = v
	}
	if v := os.Getenv(EnvDatabaseFile); v != "" {
		c.Storage.DatabaseFile = v
	}
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Storage.KeysFile = resolve(c.Storage.KeysFile)
	c.Storage.DatabaseFile = resolve(c.Storage.DatabaseFile)
}
