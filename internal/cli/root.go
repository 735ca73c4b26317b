// Package cli provides the command-line interface for the OI tracker.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aakash-code/upstock-oi-tracker/internal/broker"
	"github.com/aakash-code/upstock-oi-tracker/internal/catalog"
	"github.com/aakash-code/upstock-oi-tracker/internal/config"
	"github.com/aakash-code/upstock-oi-tracker/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Source  *broker.ZerodhaSource
	Catalog catalog.Catalog
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// SQLite catalog lives next to the config
	dbPath := filepath.Join(config.DefaultConfigDir(), "instruments.db")
	cat, err := catalog.NewSQLiteCatalog(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open instrument catalog, some commands may be unavailable")
	} else {
		app.Catalog = cat
		logger.Debug().Str("path", dbPath).Msg("Instrument catalog opened")
	}

	if cfg.Credentials.Zerodha.APIKey != "" {
		underlyings := make(map[string]string, len(cfg.Instruments))
		for name, inst := range cfg.Instruments {
			underlyings[name] = inst.UnderlyingSymbol
		}
		app.Source = broker.NewZerodhaSource(broker.ZerodhaConfig{
			APIKey:      cfg.Credentials.Zerodha.APIKey,
			APISecret:   cfg.Credentials.Zerodha.APISecret,
			UserID:      cfg.Credentials.Zerodha.UserID,
			Underlyings: underlyings,
			Resolver:    app.Catalog,
		})
		logger.Debug().Msg("Zerodha market-data source initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "oi-tracker",
		Short: "Option open-interest change tracker for the Indian F&O market",
		Long: `oi-tracker watches the open interest of the at-the-money option band
and flags unusual percentage changes across multiple look-back windows.

It polls the Zerodha Kite Connect API on a fixed cadence, keeps a bounded
rolling history per contract, and raises a market-wide alert when enough of
the tracked band moves at once.

Use 'oi-tracker help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/oi-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAuthCmd(app))
	rootCmd.AddCommand(newInstrumentsCmd(app))
	rootCmd.AddCommand(newTrackCmd(app))

	return rootCmd
}
