package history

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Property: For any interleaving of in-order and out-of-order appends, the
// stored series for a key always has strictly increasing timestamps, and
// every rejected append leaves stored state byte-for-byte unchanged.
func TestProperty_SeriesTimestampsStrictlyIncreasing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	base := time.Date(2026, 8, 25, 9, 15, 0, 0, time.UTC)

	// Generator for offset sequences in seconds; duplicates and reversals
	// included on purpose.
	offsetsGen := gen.SliceOfN(40, gen.IntRange(0, 600))
	oiGen := gen.Int64Range(0, 5_000_000)

	properties.Property("appends keep per-key series strictly ascending", prop.ForAll(
		func(offsets []int, oi int64) bool {
			store := New([]time.Duration{5 * time.Minute}, time.Minute)
			key := testKey(22150)

			accepted := 0
			lastAccepted := time.Time{}
			for _, off := range offsets {
				at := base.Add(time.Duration(off) * time.Second)
				err := store.Append(snap(key, oi, at))
				if err == nil {
					// An accepted append must be strictly newer
					if !lastAccepted.IsZero() && !at.After(lastAccepted) {
						return false
					}
					lastAccepted = at
					accepted++
				} else {
					// A rejected append must not grow the series
					if store.Len(key) != accepted {
						return false
					}
				}
			}

			if store.Len(key) != accepted {
				return false
			}
			latest, ok := store.Latest(key)
			if accepted == 0 {
				return !ok
			}
			return ok && latest.CapturedAt.Equal(lastAccepted)
		},
		offsetsGen,
		oiGen,
	))

	properties.TestingRun(t)
}

// Property: Pruning never destroys the anchor a delta computation needs.
// For any series and any configured window, the result of QueryAtOrBefore at
// the window boundary is identical before and after Prune(now).
func TestProperty_PrunePreservesWindowAnchors(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	windows := []time.Duration{
		3 * time.Minute,
		5 * time.Minute,
		10 * time.Minute,
		15 * time.Minute,
		30 * time.Minute,
	}
	now := time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC)

	// Snapshot ages up to 2 hours back, far past the retention floor
	agesGen := gen.SliceOfN(30, gen.IntRange(0, 7200))

	properties.Property("window anchors survive pruning", prop.ForAll(
		func(ages []int, marginSeconds int) bool {
			store := New(windows, time.Duration(marginSeconds)*time.Second)
			key := testKey(22200)

			for _, age := range ages {
				at := now.Add(-time.Duration(age) * time.Second)
				// Out-of-order ages are rejected; that is fine, the
				// property concerns whatever was accepted.
				_ = store.Append(snap(key, int64(age), at))
			}

			type anchor struct {
				snap models.OISnapshot
				ok   bool
			}
			before := make([]anchor, len(windows))
			for i, w := range windows {
				s, ok := store.QueryAtOrBefore(key, now.Add(-w))
				before[i] = anchor{s, ok}
			}

			store.Prune(now)

			for i, w := range windows {
				s, ok := store.QueryAtOrBefore(key, now.Add(-w))
				if ok != before[i].ok {
					return false
				}
				if ok && !s.CapturedAt.Equal(before[i].snap.CapturedAt) {
					return false
				}
				if ok && s.OI != before[i].snap.OI {
					return false
				}
			}
			return true
		},
		agesGen,
		gen.IntRange(0, 300),
	))

	properties.TestingRun(t)
}
