package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# OI Tracker Configuration

[tracker]
# Refresh cycle cadence in seconds
refresh_interval_seconds = 60
# Look-back windows in minutes, ascending
window_minutes = [3, 5, 10, 15, 30]
# Market-wide alert fires when flagged/valid cells exceeds this ratio
alert_ratio = 0.5
# Count cells without enough history toward the alert denominator
count_insufficient_in_denominator = false
# Strikes tracked on each side of ATM
band_strikes = 3
# Safety margin past the widest window before history is pruned, seconds
retention_margin_seconds = 120
# A cycle is abandoned after this many refresh intervals
cycle_ceiling_multiple = 3

# Percentage change that flags a cell, per window (minutes)
[tracker.thresholds]
3 = 5.0
5 = 7.5
10 = 10.0
15 = 15.0
30 = 25.0

[instruments.NIFTY]
underlying_symbol = "NSE:NIFTY 50"
strike_step = 50.0

[instruments.BANKNIFTY]
underlying_symbol = "NSE:NIFTY BANK"
strike_step = 100.0

[logging]
level = "info"
console = true
file = true
`

const credentialsTemplate = `# Zerodha Kite Connect API credentials
# Get these from https://developers.kite.trade/

[zerodha]
api_key = ""
api_secret = ""
user_id = ""
`

// EnsureTemplates writes the default config and credentials files into
// configDir if they do not exist yet. Existing files are left untouched.
func EnsureTemplates(configDir string) error {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := createTemplateConfig(configDir); err != nil {
		return err
	}
	return createTemplateCredentials(configDir)
}

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials are secrets, restrict permissions
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
