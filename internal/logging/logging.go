// Package logging provides structured logging for the OI tracker.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "oi-tracker", "logs", "tracker.log"),
		MaxSizeMB:  100,
		MaxBackups: 7,
		MaxAgeDays: 30,
	}
}

// NewLogger creates a logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a logger writing to the console and/or a
// rotated log file per the configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			})
		}
	}

	var out io.Writer = os.Stdout
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && parsed != zerolog.NoLevel {
		return parsed
	}
	return zerolog.InfoLevel
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithInstrument adds an instrument name to the logger context.
func WithInstrument(logger zerolog.Logger, instrument string) zerolog.Logger {
	return logger.With().Str("instrument", instrument).Logger()
}

// WithExpiry adds an expiry date to the logger context.
func WithExpiry(logger zerolog.Logger, expiry time.Time) zerolog.Logger {
	return logger.With().Str("expiry", expiry.Format("2006-01-02")).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogCycle logs the completion of one refresh cycle.
func LogCycle(logger zerolog.Logger, instrument, state string, duration time.Duration, err error) {
	event := logger.Info().
		Str("event", "cycle").
		Str("instrument", instrument).
		Str("state", state).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Cycle failed")
	} else {
		event.Msg("Cycle completed")
	}
}

// LogStaleWrite logs a rejected out-of-order snapshot append.
func LogStaleWrite(logger zerolog.Logger, key, reason string) {
	logger.Warn().
		Str("event", "stale_write").
		Str("contract", key).
		Str("reason", reason).
		Msg("Snapshot dropped")
}

// LogMarketAlert logs an aggregated market-wide alert.
func LogMarketAlert(logger zerolog.Logger, instrument string, flagged, valid int, ratio float64) {
	logger.Info().
		Str("event", "market_alert").
		Str("instrument", instrument).
		Int("flagged_cells", flagged).
		Int("valid_cells", valid).
		Float64("alert_ratio", ratio).
		Msg("Market alert raised")
}

// LogAPICall logs an upstream API call.
func LogAPICall(logger zerolog.Logger, method, endpoint string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "api_call").
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("API call failed")
	} else {
		event.Msg("API call completed")
	}
}
