package tracker

import (
	"math"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Thresholds maps a window width to the absolute percentage change that
// flags a cell. Shorter windows typically use smaller thresholds.
type Thresholds map[time.Duration]float64

// Classify sets the Flagged bit on each delta. Insufficient deltas are never
// flagged. A window without a threshold entry never flags.
func Classify(deltas []models.IntervalDelta, thresholds Thresholds) {
	for i := range deltas {
		d := &deltas[i]
		if d.Insufficient {
			d.Flagged = false
			continue
		}
		threshold, ok := thresholds[d.Window]
		d.Flagged = ok && math.Abs(d.ChangePercent) >= threshold
	}
}

// AggregatorConfig controls the market-wide alert.
type AggregatorConfig struct {
	// AlertRatio is the exclusive flagged/valid boundary; the alert fires
	// only when the ratio strictly exceeds it.
	AlertRatio float64
	// CountInsufficient includes insufficient cells in the denominator.
	// Default false: sparse early-session history does not distort the
	// ratio.
	CountInsufficient bool
}

// Aggregate counts flagged and valid cells across the view and sets the
// alert boolean.
func Aggregate(view *models.MarketView, cfg AggregatorConfig) {
	flagged, valid := 0, 0
	count := func(deltas []models.IntervalDelta) {
		for _, d := range deltas {
			if d.Insufficient {
				if cfg.CountInsufficient {
					valid++
				}
				continue
			}
			valid++
			if d.Flagged {
				flagged++
			}
		}
	}

	for _, row := range view.Rows {
		count(row.Call)
		count(row.Put)
	}

	view.FlaggedCells = flagged
	view.ValidCells = valid
	view.Alert = valid > 0 && float64(flagged)/float64(valid) > cfg.AlertRatio
}
