package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aakash-code/upstock-oi-tracker/internal/broker"
	"github.com/aakash-code/upstock-oi-tracker/internal/errors"
	"github.com/aakash-code/upstock-oi-tracker/internal/logging"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Ingestor pulls current open interest for the cycle's contract universe and
// normalizes it into typed snapshots sharing a single captured-at timestamp,
// so deltas stay comparable across the view.
type Ingestor struct {
	source broker.MarketDataSource
	log    zerolog.Logger
	clock  func() time.Time
}

// NewIngestor creates an ingestor over the given market-data source.
func NewIngestor(source broker.MarketDataSource, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		source: source,
		log:    logger,
		clock:  time.Now,
	}
}

// Fetch retrieves current OI for the given keys in one batched call.
//
// Keys missing from the source response are per-key misses: they are absent
// from the result and the cycle proceeds, prior history still serving delta
// computation. An error return is a cycle-level failure. Snapshots failing
// data-quality checks (negative OI) are discarded, not returned.
func (in *Ingestor) Fetch(ctx context.Context, instrument string, keys []models.ContractKey) (map[models.ContractKey]models.OISnapshot, time.Time, error) {
	capturedAt := in.clock()

	oi, err := in.source.GetCurrentOI(ctx, keys)
	logging.LogAPICall(in.log, "GET", "quote", in.clock().Sub(capturedAt), err)
	if err != nil {
		return nil, capturedAt, errors.NewCycleError(instrument, "fetch", capturedAt, err)
	}

	snapshots := make(map[models.ContractKey]models.OISnapshot, len(oi))
	for _, key := range keys {
		value, ok := oi[key]
		if !ok {
			in.log.Debug().Str("contract", key.String()).Msg("Contract missing from this cycle's fetch")
			continue
		}
		if value < 0 {
			in.log.Warn().
				Str("contract", key.String()).
				Int64("oi", value).
				Msg("Discarding snapshot with negative OI")
			continue
		}
		snapshots[key] = models.OISnapshot{
			Key:        key,
			OI:         value,
			CapturedAt: capturedAt,
		}
	}
	return snapshots, capturedAt, nil
}
