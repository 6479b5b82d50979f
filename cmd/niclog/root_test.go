package niclog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/saadjs/niclog/internal/stats"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so values and Changed
// state from an earlier run do not leak into the next one.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// testPaths returns a fresh database path and a config file that disables
// desktop notifications.
func testPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("notifications:\n  backend: none\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return filepath.Join(dir, "niclog.db"), cfgPath
}

func TestRootHelp(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	if !strings.Contains(out, "niclog") {
		t.Fatalf("expected help output, got %q", out)
	}
}

func TestInitCommandIdempotent(t *testing.T) {
	path, cfgPath := testPaths(t)
	for i := 0; i < 2; i++ {
		out, err := runCLI(t, "--db", path, "--config", cfgPath, "init")
		if err != nil {
			t.Fatalf("init run %d failed: %v", i+1, err)
		}
		if !strings.Contains(out, "schema v2") {
			t.Fatalf("unexpected init output %q", out)
		}
	}
}

func addEntry(t *testing.T, path, cfgPath, product, nicotine, amount, price string) string {
	t.Helper()
	out, err := runCLI(t, "--db", path, "--config", cfgPath, "entry", "add",
		"--product", product, "--nicotine", nicotine, "--amount", amount, "--price", price,
		"--currency=", "--date=", "--time=")
	if err != nil {
		t.Fatalf("entry add: %v (%s)", err, out)
	}
	return out
}

func TestEntryAddTodayAndStats(t *testing.T) {
	path, cfgPath := testPaths(t)

	if out, err := runCLI(t, "--db", path, "--config", cfgPath, "settings", "limit", "40"); err != nil {
		t.Fatalf("settings limit: %v (%s)", err, out)
	}
	addEntry(t, path, cfgPath, "vape", "20", "2", "5")
	out := addEntry(t, path, cfgPath, "snus", "8", "1", "3,00")
	if !strings.Contains(out, "Added entry") || !strings.Contains(out, "limit exceeded") {
		t.Fatalf("unexpected add output %q", out)
	}

	out, err := runCLI(t, "--db", path, "--config", cfgPath, "today", "--json=false")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	for _, want := range []string{"Nicotine: 48.0 mg", "Spent: 13.00 EUR", "Entries: 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in today output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "--db", path, "--config", cfgPath, "stats", "--range", "7", "--json=false")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Range: 7d") || !strings.Contains(out, "Total: 48.0 mg | 13.00 EUR") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}
	if rows := strings.Count(out, "\n") - 4; rows != 7 {
		t.Fatalf("expected 7 daily rows, got %d:\n%s", rows, out)
	}
	if !strings.Contains(out, stats.DateKey(timeNow())) {
		t.Fatalf("expected today's row in stats output")
	}
}

func TestEntryAddRejectsInvalidNumbers(t *testing.T) {
	path, cfgPath := testPaths(t)
	_, err := runCLI(t, "--db", path, "--config", cfgPath, "entry", "add",
		"--product", "vape", "--nicotine", "abc", "--amount", "1", "--price", "1",
		"--currency=", "--date=", "--time=")
	if err == nil || !strings.Contains(err.Error(), stats.MsgAddInvalid) {
		t.Fatalf("expected validation message, got %v", err)
	}

	_, err = runCLI(t, "--db", path, "--config", cfgPath, "entry", "add",
		"--product", "vape", "--nicotine", "10", "--amount", "0", "--price", "1",
		"--currency=", "--date=", "--time=")
	if err == nil || !strings.Contains(err.Error(), stats.MsgAddInvalid) {
		t.Fatalf("expected validation message for zero amount, got %v", err)
	}
}

func TestSettingsRemindersWithoutNotifier(t *testing.T) {
	path, cfgPath := testPaths(t)
	out, err := runCLI(t, "--db", path, "--config", cfgPath, "settings", "reminders", "--enable", "--disable=false", "--times", "8:00,21:30")
	if err != nil {
		t.Fatalf("settings reminders: %v", err)
	}
	if !strings.Contains(out, "Reminders: on at 08:00, 21:30") || !strings.Contains(out, "Notification permissions are required.") {
		t.Fatalf("unexpected reminders output:\n%s", out)
	}

	out, err = runCLI(t, "--db", path, "--config", cfgPath, "settings", "show", "--json=false")
	if err != nil {
		t.Fatalf("settings show: %v", err)
	}
	if !strings.Contains(out, "Reminder times: 08:00, 21:30") {
		t.Fatalf("reminder times were not persisted:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "niclog ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestConfigInitShowAndStore(t *testing.T) {
	path, _ := testPaths(t)
	cfgPath := filepath.Join(t.TempDir(), "niclog", "config.yaml")

	out, err := runCLI(t, "--db", path, "--config", cfgPath, "config", "init", "--force=false")
	if err != nil {
		t.Fatalf("config init: %v (%s)", err, out)
	}
	if _, err := runCLI(t, "--db", path, "--config", cfgPath, "config", "init", "--force=false"); err == nil {
		t.Fatalf("expected second config init to refuse overwriting")
	}

	out, err = runCLI(t, "--db", path, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "base_url: https://api.exchangerate.host") {
		t.Fatalf("unexpected config show output:\n%s", out)
	}

	if out, err := runCLI(t, "--db", path, "--config", cfgPath, "settings", "limit", "30"); err != nil {
		t.Fatalf("settings limit: %v (%s)", err, out)
	}
	out, err = runCLI(t, "--db", path, "--config", cfgPath, "config", "store")
	if err != nil {
		t.Fatalf("config store: %v", err)
	}
	if !strings.Contains(out, "settings\t{") {
		t.Fatalf("expected stored settings record:\n%s", out)
	}
}
