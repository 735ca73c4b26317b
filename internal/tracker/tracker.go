package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aakash-code/upstock-oi-tracker/internal/broker"
	"github.com/aakash-code/upstock-oi-tracker/internal/catalog"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Config holds the cycle configuration shared by all runners.
type Config struct {
	Interval        time.Duration
	Windows         []time.Duration
	Thresholds      Thresholds
	Aggregator      AggregatorConfig
	BandStrikes     int
	CeilingMultiple int
	RetentionMargin time.Duration
	// StrikeSteps maps an instrument to its strike step size.
	StrikeSteps map[string]float64
}

// Tracker manages one cycle runner per tracked (instrument, expiry) pair.
// Runners are independent: no cycle blocks another instrument's cycle.
type Tracker struct {
	cfg     Config
	source  broker.MarketDataSource
	catalog catalog.Catalog
	pub     ViewPublisher
	log     zerolog.Logger

	mu      sync.RWMutex
	runners map[string]*Runner
	cancels map[string]context.CancelFunc
}

// New creates a tracker. pub may be nil when no consumer subscribes to
// published views.
func New(cfg Config, source broker.MarketDataSource, cat catalog.Catalog, pub ViewPublisher, logger zerolog.Logger) *Tracker {
	return &Tracker{
		cfg:     cfg,
		source:  source,
		catalog: cat,
		pub:     pub,
		log:     logger,
		runners: make(map[string]*Runner),
		cancels: make(map[string]context.CancelFunc),
	}
}

func runnerKey(instrument string, expiry time.Time) string {
	return fmt.Sprintf("%s|%s", instrument, expiry.Format("2006-01-02"))
}

// Track starts a background cycle runner for the pair. Tracking an already
// tracked pair returns the existing runner.
func (t *Tracker) Track(ctx context.Context, instrument string, expiry time.Time) (*Runner, error) {
	step, ok := t.cfg.StrikeSteps[instrument]
	if !ok {
		return nil, fmt.Errorf("no strike step configured for %s", instrument)
	}
	expiry = models.NormalizeExpiry(expiry)
	key := runnerKey(instrument, expiry)

	t.mu.Lock()
	defer t.mu.Unlock()

	if runner, ok := t.runners[key]; ok {
		return runner, nil
	}

	runner := NewRunner(RunnerConfig{
		Instrument:      instrument,
		Expiry:          expiry,
		Interval:        t.cfg.Interval,
		Windows:         t.cfg.Windows,
		Thresholds:      t.cfg.Thresholds,
		Aggregator:      t.cfg.Aggregator,
		StrikeStep:      step,
		BandStrikes:     t.cfg.BandStrikes,
		CeilingMultiple: t.cfg.CeilingMultiple,
	}, t.source, t.catalog, t.cfg.RetentionMargin, t.pub, t.log)

	runCtx, cancel := context.WithCancel(ctx)
	t.runners[key] = runner
	t.cancels[key] = cancel
	go runner.Start(runCtx)

	return runner, nil
}

// GetLatestView returns the most recent published view for the pair,
// non-blocking. ErrNoView before the first cycle completes.
func (t *Tracker) GetLatestView(instrument string, expiry time.Time) (*models.MarketView, error) {
	t.mu.RLock()
	runner, ok := t.runners[runnerKey(instrument, models.NormalizeExpiry(expiry))]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("not tracking %s %s", instrument, expiry.Format("2006-01-02"))
	}
	return runner.LatestView()
}

// GetStatus reports the scheduler state of every tracked expiry for the
// instrument.
func (t *Tracker) GetStatus(instrument string) []models.TrackerStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var statuses []models.TrackerStatus
	for _, runner := range t.runners {
		if runner.cfg.Instrument == instrument {
			statuses = append(statuses, runner.Status())
		}
	}
	return statuses
}

// Stop cancels all runners.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, cancel := range t.cancels {
		cancel()
		delete(t.cancels, key)
	}
}
