package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aakash-code/upstock-oi-tracker/internal/logging"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
	"github.com/aakash-code/upstock-oi-tracker/pkg/utils"
)

func newInstrumentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "Manage the local contract catalog",
	}

	cmd.AddCommand(newInstrumentsRefreshCmd(app))
	cmd.AddCommand(newInstrumentsExpiriesCmd(app))

	return cmd
}

func newInstrumentsRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the NFO instrument dump into the local catalog",
		Long: `Fetches the full exchange instrument dump from Kite Connect and replaces
the local option-contract catalog with the current NFO listing. Run this
daily before market open; the dump changes as contracts expire and list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Source == nil {
				return fmt.Errorf("no Zerodha credentials configured; edit credentials.toml or set KITE_API_KEY")
			}
			if app.Catalog == nil {
				return fmt.Errorf("instrument catalog unavailable")
			}
			if err := app.Source.Login(cmd.Context()); err != nil {
				return err
			}

			ctx := cmd.Context()
			instruments, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() ([]models.Instrument, error) {
				return app.Source.Instruments(ctx, models.NFO)
			})
			if err != nil {
				return fmt.Errorf("fetching instrument dump: %w", err)
			}

			if err := app.Catalog.Refresh(ctx, instruments); err != nil {
				return fmt.Errorf("refreshing catalog: %w", err)
			}

			log := logging.WithOperation(app.Logger, "instruments_refresh")
			log.Info().Int("instruments", len(instruments)).Msg("Catalog refreshed")
			color.Green("Catalog refreshed with %d NFO instruments.", len(instruments))
			return nil
		},
	}
}

func newInstrumentsExpiriesCmd(app *App) *cobra.Command {
	var instrument string

	cmd := &cobra.Command{
		Use:   "expiries",
		Short: "List known option expiries for an instrument",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Catalog == nil {
				return fmt.Errorf("instrument catalog unavailable")
			}

			expiries, err := app.Catalog.ListValidExpiries(cmd.Context(), instrument)
			if err != nil {
				return err
			}
			if len(expiries) == 0 {
				fmt.Printf("No expiries known for %s. Run 'oi-tracker instruments refresh' first.\n", instrument)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "Expiry\tWeekday")
			for _, e := range expiries {
				fmt.Fprintf(w, "%s\t%s\n", e.Format("2006-01-02"), e.Weekday())
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&instrument, "instrument", "i", "NIFTY", "underlying to list expiries for")

	return cmd
}
