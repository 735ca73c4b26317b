package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aakash-code/upstock-oi-tracker/internal/broker"
	"github.com/aakash-code/upstock-oi-tracker/internal/catalog"
	"github.com/aakash-code/upstock-oi-tracker/internal/config"
	"github.com/aakash-code/upstock-oi-tracker/internal/notify"
	"github.com/aakash-code/upstock-oi-tracker/internal/stream"
	"github.com/aakash-code/upstock-oi-tracker/internal/tracker"
	"github.com/aakash-code/upstock-oi-tracker/pkg/utils"
)

// simulateBasePrices seeds the random-walk source per instrument.
var simulateBasePrices = map[string]float64{
	"NIFTY":     22155,
	"BANKNIFTY": 47520,
}

func newTrackCmd(app *App) *cobra.Command {
	var (
		instrument string
		expiryStr  string
		simulate   bool
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Track OI changes for the ATM option band",
		Long: `Track polls open interest for the at-the-money band (ATM ± 3 strikes,
calls and puts) and renders percentage-change tables for each configured
look-back window every refresh cycle.

With --simulate, a seeded random-walk source replaces the live API so the
tracker can run without credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(cmd.Context(), app, instrument, expiryStr, simulate, once)
		},
	}

	cmd.Flags().StringVarP(&instrument, "instrument", "i", "NIFTY", "underlying to track")
	cmd.Flags().StringVarP(&expiryStr, "expiry", "e", "", "expiry date (YYYY-MM-DD, default: nearest)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "use a simulated market-data source")
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")

	return cmd
}

func runTrack(ctx context.Context, app *App, instrument, expiryStr string, simulate, once bool) error {
	instCfg, ok := app.Config.Instruments[instrument]
	if !ok {
		return fmt.Errorf("instrument %s is not configured", instrument)
	}

	source, cat, expiry, err := trackDependencies(ctx, app, instrument, expiryStr, instCfg, simulate)
	if err != nil {
		return err
	}

	if !simulate && !utils.IsMarketOpen() {
		fmt.Fprintf(os.Stdout, "Market is closed; next open %s. OI will not move until then.\n",
			utils.GetNextMarketOpen().Format("02-Jan-2006 15:04"))
	}

	trackerCfg := tracker.Config{
		Interval:   app.Config.RefreshInterval(),
		Windows:    app.Config.Windows(),
		Thresholds: tracker.Thresholds(app.Config.ThresholdTable()),
		Aggregator: tracker.AggregatorConfig{
			AlertRatio:        app.Config.Tracker.AlertRatio,
			CountInsufficient: app.Config.Tracker.CountInsufficientInDenominator,
		},
		BandStrikes:     app.Config.Tracker.BandStrikes,
		CeilingMultiple: app.Config.Tracker.CycleCeilingMultiple,
		RetentionMargin: app.Config.RetentionMargin(),
		StrikeSteps:     map[string]float64{instrument: instCfg.StrikeStep},
	}

	hub := stream.NewHub()
	hub.Start(ctx)
	defer hub.Stop()

	t := tracker.New(trackerCfg, source, cat, hub, app.Logger)
	defer t.Stop()

	views := hub.Subscribe(instrument, expiry)
	if _, err := t.Track(ctx, instrument, expiry); err != nil {
		return err
	}

	notifier := notify.NewTerminalNotifier()
	for {
		select {
		case <-ctx.Done():
			return nil
		case view, ok := <-views:
			if !ok {
				return nil
			}
			RenderView(os.Stdout, view)
			RenderStatus(os.Stdout, t.GetStatus(instrument))
			if view.Alert {
				notifier.MarketAlert(ctx, view)
			}
			if once {
				return nil
			}
		}
	}
}

// trackDependencies picks the live or simulated source/catalog pair and
// settles the expiry to track.
func trackDependencies(ctx context.Context, app *App, instrument, expiryStr string, instCfg config.InstrumentConfig, simulate bool) (broker.MarketDataSource, catalog.Catalog, time.Time, error) {
	if simulate {
		expiry, err := parseOrDefaultExpiry(expiryStr)
		if err != nil {
			return nil, nil, time.Time{}, err
		}
		basePrice, ok := simulateBasePrices[instrument]
		if !ok {
			basePrice = 20000
		}
		cat := catalog.NewSyntheticChain(instrument, expiry, basePrice, instCfg.StrikeStep, app.Config.Tracker.BandStrikes+2)
		source := broker.NewReplaySource(time.Now().UnixNano(), map[string]float64{instrument: basePrice})
		return source, cat, expiry, nil
	}

	if app.Source == nil {
		return nil, nil, time.Time{}, fmt.Errorf("no Zerodha credentials configured; edit %s/credentials.toml or use --simulate", config.DefaultConfigDir())
	}
	if app.Catalog == nil {
		return nil, nil, time.Time{}, fmt.Errorf("instrument catalog unavailable")
	}
	if err := app.Source.Login(ctx); err != nil {
		return nil, nil, time.Time{}, err
	}

	expiry, err := resolveExpiry(ctx, app.Catalog, instrument, expiryStr)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	return app.Source, app.Catalog, expiry, nil
}

func parseOrDefaultExpiry(expiryStr string) (time.Time, error) {
	if expiryStr != "" {
		expiry, err := time.ParseInLocation("2006-01-02", expiryStr, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid expiry %q: %w", expiryStr, err)
		}
		return expiry, nil
	}
	// Nearest Thursday, the usual NSE weekly expiry
	day := time.Now().In(utils.IndiaLocation)
	for day.Weekday() != time.Thursday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
}

func resolveExpiry(ctx context.Context, cat catalog.Catalog, instrument, expiryStr string) (time.Time, error) {
	if expiryStr != "" {
		expiry, err := time.ParseInLocation("2006-01-02", expiryStr, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid expiry %q: %w", expiryStr, err)
		}
		return expiry, nil
	}

	expiries, err := cat.ListValidExpiries(ctx, instrument)
	if err != nil {
		return time.Time{}, fmt.Errorf("listing expiries: %w", err)
	}
	if len(expiries) == 0 {
		return time.Time{}, fmt.Errorf("no expiries known for %s; run 'oi-tracker instruments refresh' first", instrument)
	}
	return expiries[0], nil
}
