package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "!", cfg.Discord.CommandPrefix)
	assert.Equal(t, "free-trial", cfg.Discord.TrialChannel)
	assert.Equal(t, "keys.txt", cfg.Storage.KeysFile)
	assert.Equal(t, "database.json", cfg.Storage.DatabaseFile)
	assert.Equal(t, 15*time.Second, cfg.Claim.DeliveryTimeout)
	assert.True(t, cfg.KeepAlive.Enabled)
	assert.Equal(t, ":8080", cfg.KeepAlive.Addr)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvKeysFile, "")
	t.Setenv(EnvDatabaseFile, "")
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, DefaultPath))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "keys.txt"), cfg.Storage.KeysFile)
	assert.Equal(t, filepath.Join(dir, "database.json"), cfg.Storage.DatabaseFile)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvKeysFile, "")
	t.Setenv(EnvDatabaseFile, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[discord]
token = "file-token"
trial_channel = "claims"

[storage]
keys_file = "/srv/keys.txt"

[claim]
delivery_timeout = "3s"

[keepalive]
enabled = false
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, "claims", cfg.Discord.TrialChannel)
	assert.Equal(t, "!", cfg.Discord.CommandPrefix, "unset keys keep their defaults")
	assert.Equal(t, "/srv/keys.txt", cfg.Storage.KeysFile)
	assert.Equal(t, filepath.Join(dir, "database.json"), cfg.Storage.DatabaseFile)
	assert.Equal(t, 3*time.Second, cfg.Claim.DeliveryTimeout)
	assert.False(t, cfg.KeepAlive.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.toml")
	require.NoError(t, os.WriteFile(path, []byte("[discord]\ntoken = \"file-token\"\n"), 0600))

	t.Setenv(EnvToken, "env-token")
	t.Setenv(EnvKeysFile, "/data/keys.txt")
	t.Setenv(EnvDatabaseFile, "/data/db.json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "/data/keys.txt", cfg.Storage.KeysFile)
	assert.Equal(t, "/data/db.json", cfg.Storage.DatabaseFile)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.toml")
	require.NoError(t, os.WriteFile(path, []byte("[discord\ntoken = "), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvKeysFile, "")
	t.Setenv(EnvDatabaseFile, "")
	path := filepath.Join(t.TempDir(), "settings", "bot.toml")

	original := DefaultConfig()
	original.Discord.Token = "abc"
	original.Claim.DeliveryTimeout = 42 * time.Second
	original.Storage.KeysFile = "/abs/keys.txt"
	original.Storage.DatabaseFile = "/abs/database.json"
	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Discord.Token = "t"
	assert.NoError(t, cfg.Validate())

	cfg.Discord.CommandPrefix = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Discord.Token = "t"
	cfg.Storage.KeysFile = ""
	assert.Error(t, cfg.Validate())
}
