// Package tracker implements the open-interest change tracking cycle:
// ingest, delta computation, strike selection, classification and alert
// aggregation, driven by a fixed-interval scheduler.
package tracker

import (
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/history"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// ChangePercent returns the percentage open-interest change from ref to cur.
// Callers must handle ref == 0 before calling; see ComputeDeltas.
func ChangePercent(ref, cur int64) float64 {
	return float64(cur-ref) / float64(ref) * 100
}

// ComputeDeltas computes, for one contract's fresh snapshot, the percentage
// change over each window. A window without a usable reference (no anchor at
// or before now-window, or a reference OI of zero) yields an insufficient
// delta, never an error and never a division by zero.
//
// The computation is pure given the store contents, the current snapshot and
// now, so it can be re-derived from recorded history without a live source.
func ComputeDeltas(store *history.Store, current models.OISnapshot, now time.Time, windows []time.Duration) []models.IntervalDelta {
	deltas := make([]models.IntervalDelta, len(windows))
	for i, w := range windows {
		deltas[i] = computeDelta(store, current, now, w)
	}
	return deltas
}

func computeDelta(store *history.Store, current models.OISnapshot, now time.Time, window time.Duration) models.IntervalDelta {
	delta := models.IntervalDelta{
		Key:       current.Key,
		Window:    window,
		CurrentOI: current.OI,
	}

	ref, ok := store.QueryAtOrBefore(current.Key, now.Add(-window))
	if !ok || ref.OI == 0 {
		delta.Insufficient = true
		return delta
	}

	delta.ReferenceOI = ref.OI
	delta.ChangePercent = ChangePercent(ref.OI, current.OI)
	return delta
}
