package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aakash-code/upstock-oi-tracker/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize configuration",
	}

	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)

			fmt.Fprintf(w, "refresh_interval\t%s\n", cfg.RefreshInterval())
			fmt.Fprintf(w, "alert_ratio\t%g\n", cfg.Tracker.AlertRatio)
			fmt.Fprintf(w, "count_insufficient\t%t\n", cfg.Tracker.CountInsufficientInDenominator)
			fmt.Fprintf(w, "band_strikes\t±%d\n", cfg.Tracker.BandStrikes)
			fmt.Fprintf(w, "retention_margin\t%s\n", cfg.RetentionMargin())
			fmt.Fprintf(w, "cycle_ceiling\t%d × interval\n", cfg.Tracker.CycleCeilingMultiple)

			for _, m := range cfg.Tracker.WindowMinutes {
				fmt.Fprintf(w, "window %dm threshold\t%g%%\n", m, cfg.Tracker.Thresholds[strconv.Itoa(m)])
			}

			names := make([]string, 0, len(cfg.Instruments))
			for name := range cfg.Instruments {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				inst := cfg.Instruments[name]
				fmt.Fprintf(w, "instrument %s\t%s, step %g\n", name, inst.UnderlyingSymbol, inst.StrikeStep)
			}

			hasKey := cfg.Credentials.Zerodha.APIKey != ""
			fmt.Fprintf(w, "zerodha credentials\t%t\n", hasKey)

			return w.Flush()
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write default config and credentials templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configDir == "" {
				configDir = config.DefaultConfigDir()
			}
			if err := config.EnsureTemplates(configDir); err != nil {
				return err
			}
			color.Green("Templates written to %s. Fill in credentials.toml to go live.", configDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "dir", "", "target directory (default: ~/.config/oi-tracker)")

	return cmd
}
