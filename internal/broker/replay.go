// Package broker provides market-data source implementations.
package broker

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// ReplaySource implements MarketDataSource with a deterministic random walk.
// It lets the tracker run without credentials (simulate mode) and gives
// tests a source whose behavior is reproducible from a seed.
type ReplaySource struct {
	mu        sync.Mutex
	rng       *rand.Rand
	basePrice map[string]float64
	price     map[string]float64
	oi        map[models.ContractKey]int64

	// FailKeys lists contracts that miss every fetch (per-key failure).
	FailKeys map[models.ContractKey]bool
	// FailAll simulates a total fetch failure when set.
	FailAll error
}

// NewReplaySource creates a replay source seeded for reproducibility.
// basePrice maps an instrument to its starting underlying price.
func NewReplaySource(seed int64, basePrice map[string]float64) *ReplaySource {
	prices := make(map[string]float64, len(basePrice))
	for instrument, p := range basePrice {
		prices[instrument] = p
	}
	return &ReplaySource{
		rng:       rand.New(rand.NewSource(seed)),
		basePrice: basePrice,
		price:     prices,
		oi:        make(map[models.ContractKey]int64),
		FailKeys:  make(map[models.ContractKey]bool),
	}
}

// GetCurrentOI walks each contract's OI by up to ±8% per call.
func (r *ReplaySource) GetCurrentOI(ctx context.Context, keys []models.ContractKey) (map[models.ContractKey]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAll != nil {
		return nil, r.FailAll
	}

	result := make(map[models.ContractKey]int64, len(keys))
	for _, key := range keys {
		if r.FailKeys[key] {
			continue
		}
		oi, ok := r.oi[key]
		if !ok {
			// Seed new contracts with OI proportional to moneyness
			oi = 50000 + int64(r.rng.Intn(150000))
		}
		drift := 1 + (r.rng.Float64()-0.5)*0.16
		oi = int64(math.Max(0, float64(oi)*drift))
		r.oi[key] = oi
		result[key] = oi
	}
	return result, nil
}

// GetUnderlyingPrice walks the underlying by up to ±0.1% per call.
func (r *ReplaySource) GetUnderlyingPrice(ctx context.Context, instrument string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAll != nil {
		return 0, r.FailAll
	}

	price, ok := r.price[instrument]
	if !ok {
		price = 20000
	}
	price *= 1 + (r.rng.Float64()-0.5)*0.002
	r.price[instrument] = price
	return price, nil
}

// SetOI pins a contract's next OI value; useful for scripted tests.
func (r *ReplaySource) SetOI(key models.ContractKey, oi int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oi[key] = oi
}
