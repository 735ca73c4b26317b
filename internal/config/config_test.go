package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero refresh interval", func(c *Config) { c.Tracker.RefreshIntervalSeconds = 0 }},
		{"no windows", func(c *Config) { c.Tracker.WindowMinutes = nil }},
		{"unsorted windows", func(c *Config) { c.Tracker.WindowMinutes = []int{5, 3} }},
		{"negative window", func(c *Config) { c.Tracker.WindowMinutes = []int{-3, 5} }},
		{"missing threshold", func(c *Config) { delete(c.Tracker.Thresholds, "10") }},
		{"alert ratio at 1", func(c *Config) { c.Tracker.AlertRatio = 1 }},
		{"negative alert ratio", func(c *Config) { c.Tracker.AlertRatio = -0.1 }},
		{"zero band", func(c *Config) { c.Tracker.BandStrikes = 0 }},
		{"zero ceiling", func(c *Config) { c.Tracker.CycleCeilingMultiple = 0 }},
		{"zero strike step", func(c *Config) {
			c.Instruments["NIFTY"] = InstrumentConfig{UnderlyingSymbol: "NSE:NIFTY 50"}
		}},
		{"missing underlying symbol", func(c *Config) {
			c.Instruments["NIFTY"] = InstrumentConfig{StrikeStep: 50}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDerivedAccessors(t *testing.T) {
	cfg := Default()

	if got := cfg.RefreshInterval(); got != time.Minute {
		t.Fatalf("RefreshInterval = %s, want 1m", got)
	}
	if got := cfg.RetentionMargin(); got != 2*time.Minute {
		t.Fatalf("RetentionMargin = %s, want 2m", got)
	}

	windows := cfg.Windows()
	want := []time.Duration{3, 5, 10, 15, 30}
	if len(windows) != len(want) {
		t.Fatalf("Windows = %v", windows)
	}
	for i, m := range want {
		if windows[i] != m*time.Minute {
			t.Fatalf("Windows[%d] = %s, want %dm", i, windows[i], m)
		}
	}

	table := cfg.ThresholdTable()
	if table[10*time.Minute] != 10 || table[30*time.Minute] != 25 {
		t.Fatalf("ThresholdTable = %v", table)
	}
}

func TestLoadCreatesTemplates(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// First load writes the templates and returns defaults
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Fatalf("config template missing: %v", err)
	}
	credPath := filepath.Join(dir, "credentials.toml")
	info, err := os.Stat(credPath)
	if err != nil {
		t.Fatalf("credentials template missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("credentials mode = %o, want 0600", info.Mode().Perm())
	}

	if cfg.Tracker.RefreshIntervalSeconds != 60 {
		t.Fatalf("refresh interval = %d, want default 60", cfg.Tracker.RefreshIntervalSeconds)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()

	custom := `
[tracker]
refresh_interval_seconds = 30
window_minutes = [5, 10]
alert_ratio = 0.6
band_strikes = 2
retention_margin_seconds = 60
cycle_ceiling_multiple = 2

[tracker.thresholds]
5 = 8.0
10 = 12.0

[instruments.NIFTY]
underlying_symbol = "NSE:NIFTY 50"
strike_step = 50.0
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tracker.RefreshIntervalSeconds != 30 {
		t.Fatalf("refresh interval = %d, want 30", cfg.Tracker.RefreshIntervalSeconds)
	}
	if cfg.Tracker.AlertRatio != 0.6 {
		t.Fatalf("alert ratio = %g, want 0.6", cfg.Tracker.AlertRatio)
	}
	if len(cfg.Tracker.WindowMinutes) != 2 {
		t.Fatalf("windows = %v, want [5 10]", cfg.Tracker.WindowMinutes)
	}
}

func TestEnvOverridesCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KITE_API_KEY", "env-key")
	t.Setenv("KITE_API_SECRET", "env-secret")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Credentials.Zerodha.APIKey != "env-key" {
		t.Fatalf("APIKey = %q, want env override", cfg.Credentials.Zerodha.APIKey)
	}
	if cfg.Credentials.Zerodha.APISecret != "env-secret" {
		t.Fatalf("APISecret = %q, want env override", cfg.Credentials.Zerodha.APISecret)
	}
}
