package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

func replayKeys() []models.ContractKey {
	expiry := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	return []models.ContractKey{
		models.NewContractKey("NIFTY", expiry, 22100, models.Call),
		models.NewContractKey("NIFTY", expiry, 22150, models.Call),
		models.NewContractKey("NIFTY", expiry, 22150, models.Put),
	}
}

func TestReplayDeterministicFromSeed(t *testing.T) {
	ctx := context.Background()
	keys := replayKeys()

	first := NewReplaySource(7, map[string]float64{"NIFTY": 22150})
	second := NewReplaySource(7, map[string]float64{"NIFTY": 22150})

	for cycle := 0; cycle < 5; cycle++ {
		a, err := first.GetCurrentOI(ctx, keys)
		if err != nil {
			t.Fatal(err)
		}
		b, err := second.GetCurrentOI(ctx, keys)
		if err != nil {
			t.Fatal(err)
		}
		for _, key := range keys {
			if a[key] != b[key] {
				t.Fatalf("cycle %d: seed divergence for %s: %d vs %d", cycle, key, a[key], b[key])
			}
		}

		pa, err := first.GetUnderlyingPrice(ctx, "NIFTY")
		if err != nil {
			t.Fatal(err)
		}
		pb, err := second.GetUnderlyingPrice(ctx, "NIFTY")
		if err != nil {
			t.Fatal(err)
		}
		if pa != pb {
			t.Fatalf("cycle %d: price divergence: %g vs %g", cycle, pa, pb)
		}
	}
}

func TestReplayOINeverNegative(t *testing.T) {
	ctx := context.Background()
	keys := replayKeys()
	source := NewReplaySource(time.Now().UnixNano(), map[string]float64{"NIFTY": 22150})

	for cycle := 0; cycle < 100; cycle++ {
		oi, err := source.GetCurrentOI(ctx, keys)
		if err != nil {
			t.Fatal(err)
		}
		for key, value := range oi {
			if value < 0 {
				t.Fatalf("cycle %d: negative OI %d for %s", cycle, value, key)
			}
		}
	}
}

func TestReplayFailKeys(t *testing.T) {
	ctx := context.Background()
	keys := replayKeys()
	source := NewReplaySource(1, map[string]float64{"NIFTY": 22150})
	source.FailKeys[keys[0]] = true

	oi, err := source.GetCurrentOI(ctx, keys)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := oi[keys[0]]; ok {
		t.Fatal("failing key must be absent from the result")
	}
	if len(oi) != len(keys)-1 {
		t.Fatalf("result size = %d, want %d", len(oi), len(keys)-1)
	}
}

func TestReplayFailAll(t *testing.T) {
	ctx := context.Background()
	source := NewReplaySource(1, map[string]float64{"NIFTY": 22150})
	source.FailAll = errors.New("exchange down")

	if _, err := source.GetCurrentOI(ctx, replayKeys()); err == nil {
		t.Fatal("expected total fetch failure")
	}
	if _, err := source.GetUnderlyingPrice(ctx, "NIFTY"); err == nil {
		t.Fatal("expected price failure")
	}
}

func TestReplayImplementsMarketDataSource(t *testing.T) {
	var _ MarketDataSource = NewReplaySource(1, nil)
}
