package tracker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aakash-code/upstock-oi-tracker/internal/broker"
	"github.com/aakash-code/upstock-oi-tracker/internal/catalog"
	"github.com/aakash-code/upstock-oi-tracker/internal/errors"
	"github.com/aakash-code/upstock-oi-tracker/internal/history"
	"github.com/aakash-code/upstock-oi-tracker/internal/logging"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// ViewPublisher receives each published MarketView. The stream hub
// implements this.
type ViewPublisher interface {
	Publish(view *models.MarketView)
}

// RunnerConfig holds the per-runner cycle configuration.
type RunnerConfig struct {
	Instrument string
	Expiry     time.Time
	Interval   time.Duration
	Windows    []time.Duration
	Thresholds Thresholds
	Aggregator AggregatorConfig
	StrikeStep float64
	// BandStrikes is the number of strikes on each side of ATM.
	BandStrikes int
	// CeilingMultiple bounds a cycle at N intervals before it is abandoned.
	CeilingMultiple int
}

// Runner drives the refresh cycle for one (instrument, expiry) pair:
// ingest, store, compute, classify, publish, at a fixed interval independent
// of any consumer's request cadence. At most one cycle is in flight at a
// time; an overrunning cycle causes the next tick to be skipped rather than
// overlapped.
type Runner struct {
	cfg      RunnerConfig
	source   broker.MarketDataSource
	catalog  catalog.Catalog
	hist     *history.Store
	ingestor *Ingestor
	pub      ViewPublisher
	log      zerolog.Logger
	clock    func() time.Time

	inFlight atomic.Bool

	mu           sync.RWMutex
	state        models.CycleState
	lastView     *models.MarketView
	lastSuccess  time.Time
	lastErr      error
	cyclesRun    int64
	cyclesFailed int64
}

// NewRunner creates a runner with its own history store.
func NewRunner(cfg RunnerConfig, source broker.MarketDataSource, cat catalog.Catalog, retentionMargin time.Duration, pub ViewPublisher, logger zerolog.Logger) *Runner {
	logger = logging.WithExpiry(logging.WithInstrument(logger, cfg.Instrument), cfg.Expiry)
	return &Runner{
		cfg:      cfg,
		source:   source,
		catalog:  cat,
		hist:     history.New(cfg.Windows, retentionMargin),
		ingestor: NewIngestor(source, logger),
		pub:      pub,
		log:      logger,
		clock:    time.Now,
		state:    models.CycleIdle,
	}
}

// History exposes the runner's history store for read access.
func (r *Runner) History() *history.Store {
	return r.hist
}

// Start runs one immediate cycle and then one cycle per tick until the
// context is cancelled. It blocks; callers run it in a goroutine.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if err := r.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		// Already recorded in status; the timer drives the retry, so no
		// immediate retry storm is possible.
		r.log.Debug().Err(err).Msg("Cycle ended in failure")
	}
}

// RunCycle executes one full cycle. A second concurrent call returns
// ErrCycleInFlight without doing anything. A cycle exceeding the configured
// ceiling is abandoned and reported as a cycle-level failure.
func (r *Runner) RunCycle(ctx context.Context) error {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.log.Warn().Msg("Previous cycle still in flight, skipping tick")
		return errors.ErrCycleInFlight
	}
	defer r.inFlight.Store(false)

	ceiling := r.cfg.Interval * time.Duration(r.cfg.CeilingMultiple)
	cctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	started := r.clock()
	err := r.runCycle(cctx)

	r.mu.Lock()
	r.cyclesRun++
	if err != nil {
		r.cyclesFailed++
		r.state = models.CycleFailed
		r.lastErr = err
	}
	state := r.state
	r.mu.Unlock()

	logging.LogCycle(r.log, r.cfg.Instrument, string(state), r.clock().Sub(started), err)
	return err
}

func (r *Runner) runCycle(ctx context.Context) error {
	now := r.clock()
	r.setState(models.CycleFetching)

	price, err := r.source.GetUnderlyingPrice(ctx, r.cfg.Instrument)
	if err != nil {
		return errors.NewCycleError(r.cfg.Instrument, "fetch", now, err)
	}

	contracts, err := r.catalog.ListActiveContracts(ctx, r.cfg.Instrument, r.cfg.Expiry)
	if err != nil {
		return errors.NewCycleError(r.cfg.Instrument, "fetch", now, err)
	}
	if len(contracts) == 0 {
		return errors.NewCycleError(r.cfg.Instrument, "fetch", now, errors.ErrCatalogEmpty)
	}

	atm := ATMStrike(price, r.cfg.StrikeStep)
	band := ClipToUniverse(Band(atm, r.cfg.StrikeStep, r.cfg.BandStrikes), strikeUniverse(contracts))
	keys := contractsInBand(contracts, band)

	snapshots, capturedAt, err := r.ingestor.Fetch(ctx, r.cfg.Instrument, keys)
	if err != nil {
		return err
	}

	for _, snap := range snapshots {
		if appendErr := r.hist.Append(snap); appendErr != nil {
			// Recoverable: the write is dropped, stored state unchanged
			logging.LogStaleWrite(r.log, snap.Key.String(), appendErr.Error())
		}
	}

	r.setState(models.CycleComputing)
	view := r.buildView(price, atm, band, snapshots, capturedAt)
	Aggregate(view, r.cfg.Aggregator)

	r.mu.Lock()
	r.lastView = view
	r.lastSuccess = capturedAt
	r.lastErr = nil
	r.state = models.CyclePublished
	r.mu.Unlock()

	if r.pub != nil {
		r.pub.Publish(view)
	}
	if view.Alert {
		logging.LogMarketAlert(r.log, r.cfg.Instrument, view.FlaggedCells, view.ValidCells, r.cfg.Aggregator.AlertRatio)
	}

	r.hist.Prune(capturedAt)
	return nil
}

// buildView assembles the per-cycle output: the ordered band with classified
// deltas for both sides. A contract without a fresh snapshot this cycle gets
// a nil delta slice (absent), never a fabricated zero.
func (r *Runner) buildView(price, atm float64, band []float64, snapshots map[models.ContractKey]models.OISnapshot, capturedAt time.Time) *models.MarketView {
	view := &models.MarketView{
		Instrument:      r.cfg.Instrument,
		Expiry:          r.cfg.Expiry,
		GeneratedAt:     capturedAt,
		UnderlyingPrice: price,
		ATMStrike:       atm,
		Windows:         r.cfg.Windows,
		Rows:            make([]models.StrikeRow, 0, len(band)),
	}

	for _, strike := range band {
		row := models.StrikeRow{Strike: strike}
		for _, typ := range []models.OptionType{models.Call, models.Put} {
			key := models.NewContractKey(r.cfg.Instrument, r.cfg.Expiry, strike, typ)
			snap, ok := snapshots[key]
			if !ok {
				continue
			}
			deltas := ComputeDeltas(r.hist, snap, capturedAt, r.cfg.Windows)
			Classify(deltas, r.cfg.Thresholds)
			if typ == models.Call {
				row.Call = deltas
			} else {
				row.Put = deltas
			}
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func (r *Runner) setState(state models.CycleState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

// LatestView returns the most recent published view. Before the first cycle
// completes it returns ErrNoView; after a failed cycle it returns the prior
// published view unchanged (stale but available).
func (r *Runner) LatestView() (*models.MarketView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastView == nil {
		return nil, errors.ErrNoView
	}
	return r.lastView, nil
}

// Status reports the scheduler state and the last successful cycle time.
func (r *Runner) Status() models.TrackerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := models.TrackerStatus{
		Instrument:   r.cfg.Instrument,
		Expiry:       r.cfg.Expiry,
		State:        r.state,
		LastSuccess:  r.lastSuccess,
		CyclesRun:    r.cyclesRun,
		CyclesFailed: r.cyclesFailed,
	}
	if r.lastErr != nil {
		status.LastError = r.lastErr.Error()
	}
	return status
}

func strikeUniverse(contracts []models.ContractKey) []float64 {
	seen := make(map[float64]bool)
	var strikes []float64
	for _, key := range contracts {
		if !seen[key.Strike] {
			seen[key.Strike] = true
			strikes = append(strikes, key.Strike)
		}
	}
	sort.Float64s(strikes)
	return strikes
}

func contractsInBand(contracts []models.ContractKey, band []float64) []models.ContractKey {
	inBand := make(map[float64]bool, len(band))
	for _, s := range band {
		inBand[s] = true
	}

	keys := make([]models.ContractKey, 0, 2*len(band))
	for _, key := range contracts {
		if inBand[key.Strike] {
			keys = append(keys, key)
		}
	}
	return keys
}
