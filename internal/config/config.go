// Package config provides configuration management for the OI tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Tracker     TrackerConfig               `mapstructure:"tracker"`
	Instruments map[string]InstrumentConfig `mapstructure:"instruments"`
	Logging     LoggingConfig               `mapstructure:"logging"`
	Credentials Credentials                 `mapstructure:"-"` // Loaded separately
}

// TrackerConfig holds the refresh-cycle configuration.
type TrackerConfig struct {
	RefreshIntervalSeconds int `mapstructure:"refresh_interval_seconds"`
	// WindowMinutes is the ordered sequence of look-back windows.
	WindowMinutes []int `mapstructure:"window_minutes"`
	// Thresholds maps a window (in minutes, as a string key) to the
	// percentage change that flags a cell.
	Thresholds map[string]float64 `mapstructure:"thresholds"`
	AlertRatio float64            `mapstructure:"alert_ratio"`
	// CountInsufficientInDenominator controls whether cells without enough
	// history still count toward the alert denominator.
	CountInsufficientInDenominator bool `mapstructure:"count_insufficient_in_denominator"`
	// BandStrikes is the number of strikes on each side of ATM.
	BandStrikes            int `mapstructure:"band_strikes"`
	RetentionMarginSeconds int `mapstructure:"retention_margin_seconds"`
	// CycleCeilingMultiple bounds a cycle at N refresh intervals before it
	// is abandoned as failed.
	CycleCeilingMultiple int `mapstructure:"cycle_ceiling_multiple"`
}

// InstrumentConfig holds per-instrument settings.
type InstrumentConfig struct {
	// UnderlyingSymbol is the quote symbol for the underlying index or
	// stock, e.g. "NSE:NIFTY 50".
	UnderlyingSymbol string  `mapstructure:"underlying_symbol"`
	StrikeStep       float64 `mapstructure:"strike_step"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha Kite Connect credentials.
type ZerodhaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	UserID    string `mapstructure:"user_id"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			RefreshIntervalSeconds: 60,
			WindowMinutes:          []int{3, 5, 10, 15, 30},
			Thresholds: map[string]float64{
				"3":  5.0,
				"5":  7.5,
				"10": 10.0,
				"15": 15.0,
				"30": 25.0,
			},
			AlertRatio:             0.5,
			BandStrikes:            3,
			RetentionMarginSeconds: 120,
			CycleCeilingMultiple:   3,
		},
		Instruments: map[string]InstrumentConfig{
			"NIFTY":     {UnderlyingSymbol: "NSE:NIFTY 50", StrikeStep: 50},
			"BANKNIFTY": {UnderlyingSymbol: "NSE:NIFTY BANK", StrikeStep: 100},
		},
		Logging: LoggingConfig{Level: "info", Console: true, File: true},
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/oi-tracker"
	}
	return filepath.Join(home, ".config", "oi-tracker")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("KITE_API_KEY"); key != "" {
		cfg.Credentials.Zerodha.APIKey = key
	}
	if secret := os.Getenv("KITE_API_SECRET"); secret != "" {
		cfg.Credentials.Zerodha.APISecret = secret
	}
	if user := os.Getenv("KITE_USER_ID"); user != "" {
		cfg.Credentials.Zerodha.UserID = user
	}
	if level := os.Getenv("OI_TRACKER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	t := c.Tracker
	if t.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("tracker.refresh_interval_seconds must be positive, got %d", t.RefreshIntervalSeconds)
	}
	if len(t.WindowMinutes) == 0 {
		return fmt.Errorf("tracker.window_minutes must not be empty")
	}
	if !sort.IntsAreSorted(t.WindowMinutes) {
		return fmt.Errorf("tracker.window_minutes must be ascending")
	}
	for _, w := range t.WindowMinutes {
		if w <= 0 {
			return fmt.Errorf("tracker.window_minutes entries must be positive, got %d", w)
		}
		if _, ok := t.Thresholds[strconv.Itoa(w)]; !ok {
			return fmt.Errorf("tracker.thresholds missing entry for %d minute window", w)
		}
	}
	if t.AlertRatio < 0 || t.AlertRatio >= 1 {
		return fmt.Errorf("tracker.alert_ratio must be in [0,1), got %g", t.AlertRatio)
	}
	if t.BandStrikes <= 0 {
		return fmt.Errorf("tracker.band_strikes must be positive, got %d", t.BandStrikes)
	}
	if t.CycleCeilingMultiple < 1 {
		return fmt.Errorf("tracker.cycle_ceiling_multiple must be at least 1, got %d", t.CycleCeilingMultiple)
	}
	for name, inst := range c.Instruments {
		if inst.StrikeStep <= 0 {
			return fmt.Errorf("instruments.%s.strike_step must be positive, got %g", name, inst.StrikeStep)
		}
		if inst.UnderlyingSymbol == "" {
			return fmt.Errorf("instruments.%s.underlying_symbol must be set", name)
		}
	}
	return nil
}

// RefreshInterval returns the cycle cadence as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Tracker.RefreshIntervalSeconds) * time.Second
}

// Windows returns the configured look-back windows, ascending.
func (c *Config) Windows() []time.Duration {
	windows := make([]time.Duration, len(c.Tracker.WindowMinutes))
	for i, m := range c.Tracker.WindowMinutes {
		windows[i] = time.Duration(m) * time.Minute
	}
	return windows
}

// ThresholdTable returns the per-window flag thresholds keyed by duration.
func (c *Config) ThresholdTable() map[time.Duration]float64 {
	table := make(map[time.Duration]float64, len(c.Tracker.Thresholds))
	for key, pct := range c.Tracker.Thresholds {
		minutes, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		table[time.Duration(minutes)*time.Minute] = pct
	}
	return table
}

// RetentionMargin returns the safety margin added to the max window width
// when deriving the history retention floor.
func (c *Config) RetentionMargin() time.Duration {
	return time.Duration(c.Tracker.RetentionMarginSeconds) * time.Second
}
