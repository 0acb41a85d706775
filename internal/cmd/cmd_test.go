package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shampis/trialbot/internal/config"
	"github.com/shampis/trialbot/internal/keypool"
	"github.com/shampis/trialbot/internal/ledger"
	"github.com/spf13/cobra"
)

// setupWorkspace points --config at a fresh directory and returns it.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	prev := configPath
	t.Cleanup(func() { configPath = prev })
	configPath = filepath.Join(dir, config.DefaultPath)

	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvKeysFile, "")
	t.Setenv(config.EnvDatabaseFile, "")
	return dir
}

func testCommand(stdin string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetErr(&bytes.Buffer{})
	c.SetIn(strings.NewReader(stdin))
	return c, &out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestKeysCount(t *testing.T) {
	dir := setupWorkspace(t)
	writeFile(t, filepath.Join(dir, "keys.txt"), "# header\nA\n\nB\nC")

	c, out := testCommand("")
	if err := runKeysCount(c, nil); err != nil {
		t.Fatalf("runKeysCount: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "3" {
		t.Errorf("count = %q, want %q", got, "3")
	}
}

func TestKeysListEmpty(t *testing.T) {
	setupWorkspace(t)

	c, out := testCommand("")
	if err := runKeysList(c, nil); err != nil {
		t.Fatalf("runKeysList: %v", err)
	}
	if !strings.Contains(out.String(), "No keys left") {
		t.Errorf("output = %q", out.String())
	}
}

func TestKeysAddFromStdin(t *testing.T) {
	dir := setupWorkspace(t)
	keysPath := filepath.Join(dir, "keys.txt")
	writeFile(t, keysPath, "A")

	c, out := testCommand("B\r\n\n  C  \n")
	if err := runKeysAdd(c, nil); err != nil {
		t.Fatalf("runKeysAdd: %v", err)
	}
	if !strings.Contains(out.String(), "Added 2 key(s)") {
		t.Errorf("output = %q", out.String())
	}

	got := keypool.New(keysPath, nil).List()
	if strings.Join(got, ",") != "A,B,C" {
		t.Errorf("pool = %v, want [A B C]", got)
	}
}

func TestKeysAddFromArgs(t *testing.T) {
	dir := setupWorkspace(t)

	c, _ := testCommand("")
	if err := runKeysAdd(c, []string{"X", "Y"}); err != nil {
		t.Fatalf("runKeysAdd: %v", err)
	}

	got := keypool.New(filepath.Join(dir, "keys.txt"), nil).List()
	if strings.Join(got, ",") != "X,Y" {
		t.Errorf("pool = %v, want [X Y]", got)
	}
}

func TestKeysAddNothing(t *testing.T) {
	setupWorkspace(t)

	c, _ := testCommand("\n \n")
	err := runKeysAdd(c, nil)
	if err == nil || !strings.Contains(err.Error(), "no keys given") {
		t.Errorf("expected 'no keys given' error, got: %v", err)
	}
}

func TestLedgerListAndReset(t *testing.T) {
	dir := setupWorkspace(t)
	l := ledger.New(filepath.Join(dir, "database.json"), nil)
	l.Commit("111", "alice", "KEY-A")

	c, out := testCommand("")
	if err := runLedgerList(c, nil); err != nil {
		t.Fatalf("runLedgerList: %v", err)
	}
	for _, want := range []string{"111", "alice", "KEY-A", "1 account(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out.String())
		}
	}

	c, out = testCommand("")
	if err := runLedgerReset(c, []string{"<@!111>"}); err != nil {
		t.Fatalf("runLedgerReset: %v", err)
	}
	if !strings.Contains(out.String(), "Reset") {
		t.Errorf("reset output = %q", out.String())
	}
	if l.Has("111") {
		t.Error("account should be removed from the ledger")
	}

	err := runLedgerReset(c, []string{"111"})
	if err == nil || !strings.Contains(err.Error(), "has not claimed a key") {
		t.Errorf("expected not-claimed error, got: %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	setupWorkspace(t)
	prevForce := configInitForce
	t.Cleanup(func() { configInitForce = prevForce })
	configInitForce = false

	c, _ := testCommand("")
	if err := runConfigInit(c, nil); err != nil {
		t.Fatalf("runConfigInit: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if cfg.Discord.CommandPrefix != "!" {
		t.Errorf("prefix = %q, want %q", cfg.Discord.CommandPrefix, "!")
	}

	if err := runConfigInit(c, nil); err == nil {
		t.Error("expected an error when the file exists")
	}

	configInitForce = true
	if err := runConfigInit(c, nil); err != nil {
		t.Errorf("runConfigInit with --force: %v", err)
	}
}

func TestConfigShowMasksToken(t *testing.T) {
	setupWorkspace(t)
	t.Setenv(config.EnvToken, "super-secret")

	c, out := testCommand("")
	if err := runConfigShow(c, nil); err != nil {
		t.Fatalf("runConfigShow: %v", err)
	}
	if strings.Contains(out.String(), "super-secret") {
		t.Error("token should be masked")
	}
	if !strings.Contains(out.String(), "********") {
		t.Errorf("output = %q", out.String())
	}
}

func TestServeRequiresToken(t *testing.T) {
	setupWorkspace(t)

	c, _ := testCommand("")
	err := runServe(c, nil)
	if err == nil || !strings.Contains(err.Error(), config.EnvToken) {
		t.Errorf("expected missing token error, got: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		warn  bool
	}{
		{level: "debug", debug: true, warn: true},
		{level: "info", debug: false, warn: true},
		{level: "WARNING", debug: false, warn: true},
		{level: "error", debug: false, warn: false},
		{level: "bogus", debug: false, warn: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(config.LogConfig{Level: tt.level, Format: "json"})
			h := logger.Handler()
			if got := h.Enabled(t.Context(), slog.LevelDebug); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
			if got := h.Enabled(t.Context(), slog.LevelWarn); got != tt.warn {
				t.Errorf("warn enabled = %v, want %v", got, tt.warn)
			}
		})
	}
}

func TestRequireSubcommand(t *testing.T) {
	err := requireSubcommand(keysCmd, []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("expected unknown command error, got: %v", err)
	}
}
