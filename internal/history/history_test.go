package history

import (
	"testing"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/errors"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

var testWindows = []time.Duration{
	3 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
}

func testKey(strike float64) models.ContractKey {
	expiry := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	return models.NewContractKey("NIFTY", expiry, strike, models.Call)
}

func snap(key models.ContractKey, oi int64, at time.Time) models.OISnapshot {
	return models.OISnapshot{Key: key, OI: oi, CapturedAt: at}
}

func TestAppendKeepsAscendingOrder(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	key := testKey(22150)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := store.Append(snap(key, int64(100000+i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if got := store.Len(key); got != 5 {
		t.Fatalf("Len = %d, want 5", got)
	}
	latest, ok := store.Latest(key)
	if !ok || latest.OI != 100004 {
		t.Fatalf("Latest = %+v, %v; want OI 100004", latest, ok)
	}
}

func TestAppendRejectsStaleTimestamps(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	key := testKey(22150)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	if err := store.Append(snap(key, 100000, base)); err != nil {
		t.Fatalf("first append: %v", err)
	}

	// Equal timestamp
	if err := store.Append(snap(key, 200000, base)); !errors.Is(err, errors.ErrStaleWrite) {
		t.Fatalf("equal timestamp: err = %v, want ErrStaleWrite", err)
	}
	// Older timestamp
	if err := store.Append(snap(key, 200000, base.Add(-time.Minute))); !errors.Is(err, errors.ErrStaleWrite) {
		t.Fatalf("older timestamp: err = %v, want ErrStaleWrite", err)
	}

	// Rejection leaves stored state unchanged
	if got := store.Len(key); got != 1 {
		t.Fatalf("Len after rejections = %d, want 1", got)
	}
	latest, _ := store.Latest(key)
	if latest.OI != 100000 {
		t.Fatalf("Latest OI = %d, want 100000", latest.OI)
	}
}

func TestAppendRejectsNegativeOI(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	err := store.Append(snap(testKey(22150), -1, time.Now()))
	if !errors.Is(err, errors.ErrInvalidSnapshot) {
		t.Fatalf("err = %v, want ErrInvalidSnapshot", err)
	}
}

func TestQueryAtOrBefore(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	key := testKey(22150)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	// Snapshots at t+0, t+2m, t+4m
	for i, oi := range []int64{100, 200, 300} {
		if err := store.Append(snap(key, oi, base.Add(time.Duration(2*i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		name   string
		target time.Time
		wantOI int64
		wantOK bool
	}{
		{"exact match", base.Add(2 * time.Minute), 200, true},
		{"between snapshots", base.Add(3 * time.Minute), 200, true},
		{"after all", base.Add(time.Hour), 300, true},
		{"before all", base.Add(-time.Second), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := store.QueryAtOrBefore(key, tc.target)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got.OI != tc.wantOI {
				t.Fatalf("OI = %d, want %d", got.OI, tc.wantOI)
			}
		})
	}
}

func TestQueryUnknownKey(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	if _, ok := store.QueryAtOrBefore(testKey(22150), time.Now()); ok {
		t.Fatal("expected no result for unknown key")
	}
	if _, ok := store.Latest(testKey(22150)); ok {
		t.Fatal("expected no latest for unknown key")
	}
}

func TestPruneRemovesExpiredSnapshots(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	key := testKey(22150)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	// Retention floor is now-32m. The 35m-old snapshot is past the floor and
	// is not the 30m anchor (the 31m-old one is newer), so it goes.
	ages := []time.Duration{35 * time.Minute, 31 * time.Minute, 29 * time.Minute, 5 * time.Minute}
	for i, age := range ages {
		if err := store.Append(snap(key, int64(100+i), now.Add(-age))); err != nil {
			t.Fatal(err)
		}
	}

	removed := store.Prune(now)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got := store.Len(key); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	// The 30m anchor survived
	ref, ok := store.QueryAtOrBefore(key, now.Add(-30*time.Minute))
	if !ok || ref.OI != 101 {
		t.Fatalf("30m anchor = %+v, %v; want OI 101", ref, ok)
	}
}

func TestPrunePinsAnchorPastRetentionFloor(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	key := testKey(22150)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	// The only snapshot at or before now-30m is well past the retention
	// floor. Prune must keep it anyway: it is the 30m window's anchor.
	if err := store.Append(snap(key, 500, now.Add(-50*time.Minute))); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(snap(key, 600, now.Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}

	store.Prune(now)

	ref, ok := store.QueryAtOrBefore(key, now.Add(-30*time.Minute))
	if !ok {
		t.Fatal("30m anchor was destroyed by prune")
	}
	if ref.OI != 500 {
		t.Fatalf("anchor OI = %d, want 500", ref.OI)
	}
}

func TestKeys(t *testing.T) {
	store := New(testWindows, 2*time.Minute)
	now := time.Now()
	if err := store.Append(snap(testKey(22100), 1, now)); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(snap(testKey(22150), 1, now)); err != nil {
		t.Fatal(err)
	}
	if got := len(store.Keys()); got != 2 {
		t.Fatalf("Keys count = %d, want 2", got)
	}
}
