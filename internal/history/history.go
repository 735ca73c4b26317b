// Package history provides the in-memory open-interest time series.
//
// The store is the only structure shared between the cycle driver and
// concurrent readers, so it follows a reader/writer discipline: readers never
// block each other and writers hold the lock only for the in-memory mutation,
// never across a network call.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/errors"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Store holds a bounded rolling OI history per contract, ordered by
// captured-at ascending with strictly increasing timestamps per key.
type Store struct {
	mu     sync.RWMutex
	series map[models.ContractKey][]models.OISnapshot

	windows   []time.Duration
	retention time.Duration
}

// New creates a store retaining history for the widest window plus margin.
// The window list is used by Prune to pin the anchor snapshot each delta
// computation needs.
func New(windows []time.Duration, margin time.Duration) *Store {
	var max time.Duration
	for _, w := range windows {
		if w > max {
			max = w
		}
	}
	return &Store{
		series:    make(map[models.ContractKey][]models.OISnapshot),
		windows:   append([]time.Duration(nil), windows...),
		retention: max + margin,
	}
}

// Append stores a snapshot. A snapshot whose timestamp is not after the most
// recent stored timestamp for its key is rejected with ErrStaleWrite and
// leaves stored state unchanged. A negative OI is rejected with
// ErrInvalidSnapshot.
func (s *Store) Append(snap models.OISnapshot) error {
	if snap.OI < 0 {
		return errors.ErrInvalidSnapshot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.series[snap.Key]
	if n := len(series); n > 0 && !snap.CapturedAt.After(series[n-1].CapturedAt) {
		return errors.ErrStaleWrite
	}
	s.series[snap.Key] = append(series, snap)
	return nil
}

// QueryAtOrBefore returns the latest snapshot with captured-at <= target,
// or false if none exists for the key.
func (s *Store) QueryAtOrBefore(key models.ContractKey, target time.Time) (models.OISnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[key]
	// First index with captured-at > target; the answer precedes it.
	i := sort.Search(len(series), func(i int) bool {
		return series[i].CapturedAt.After(target)
	})
	if i == 0 {
		return models.OISnapshot{}, false
	}
	return series[i-1], true
}

// Latest returns the most recent snapshot for the key.
func (s *Store) Latest(key models.ContractKey) (models.OISnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[key]
	if len(series) == 0 {
		return models.OISnapshot{}, false
	}
	return series[len(series)-1], true
}

// Len returns the number of stored snapshots for the key.
func (s *Store) Len(key models.ContractKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[key])
}

// Keys returns the contract keys with stored history, in no particular order.
func (s *Store) Keys() []models.ContractKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]models.ContractKey, 0, len(s.series))
	for k := range s.series {
		keys = append(keys, k)
	}
	return keys
}

// Prune removes snapshots older than the retention floor relative to now.
// For every key it preserves, regardless of age, the newest snapshot at or
// before each configured window boundary, so a prune can never destroy the
// exact anchor a delta computation needs. Returns the number of snapshots
// removed.
func (s *Store) Prune(now time.Time) int {
	floor := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, series := range s.series {
		keep := s.keepIndexes(series, now, floor)
		if len(keep) == len(series) {
			continue
		}
		pruned := make([]models.OISnapshot, 0, len(keep))
		for _, i := range keep {
			pruned = append(pruned, series[i])
		}
		removed += len(series) - len(pruned)
		if len(pruned) == 0 {
			delete(s.series, key)
			continue
		}
		s.series[key] = pruned
	}
	return removed
}

// keepIndexes returns the ascending indexes to retain: everything at or past
// the floor, plus the anchor index for each window boundary.
func (s *Store) keepIndexes(series []models.OISnapshot, now, floor time.Time) []int {
	pinned := make(map[int]bool)
	for _, w := range s.windows {
		boundary := now.Add(-w)
		i := sort.Search(len(series), func(i int) bool {
			return series[i].CapturedAt.After(boundary)
		})
		if i > 0 {
			pinned[i-1] = true
		}
	}

	keep := make([]int, 0, len(series))
	for i, snap := range series {
		if pinned[i] || !snap.CapturedAt.Before(floor) {
			keep = append(keep, i)
		}
	}
	return keep
}
