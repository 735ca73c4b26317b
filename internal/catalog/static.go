package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/errors"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// StaticCatalog is an in-memory Catalog with a fixed chain. It backs
// simulate mode and tests, where no instrument dump exists.
type StaticCatalog struct {
	instrument string
	expiries   []time.Time
	strikes    []float64
}

// NewStaticCatalog builds a catalog listing both option sides for every
// (expiry, strike) combination.
func NewStaticCatalog(instrument string, expiries []time.Time, strikes []float64) *StaticCatalog {
	normalized := make([]time.Time, len(expiries))
	for i, e := range expiries {
		normalized[i] = models.NormalizeExpiry(e)
	}
	sorted := append([]float64(nil), strikes...)
	sort.Float64s(sorted)

	return &StaticCatalog{
		instrument: instrument,
		expiries:   normalized,
		strikes:    sorted,
	}
}

// NewSyntheticChain builds a static catalog with strikes spanning
// width steps on each side of the base price's ATM strike.
func NewSyntheticChain(instrument string, expiry time.Time, basePrice, step float64, width int) *StaticCatalog {
	atm := float64(int(basePrice/step+0.5)) * step
	strikes := make([]float64, 0, 2*width+1)
	for i := -width; i <= width; i++ {
		strikes = append(strikes, atm+float64(i)*step)
	}
	return NewStaticCatalog(instrument, []time.Time{expiry}, strikes)
}

// ListActiveContracts returns the chain's contracts for the expiry.
func (s *StaticCatalog) ListActiveContracts(ctx context.Context, instrument string, expiry time.Time) ([]models.ContractKey, error) {
	if instrument != s.instrument || !s.hasExpiry(expiry) {
		return nil, nil
	}
	keys := make([]models.ContractKey, 0, 2*len(s.strikes))
	for _, strike := range s.strikes {
		keys = append(keys,
			models.NewContractKey(instrument, expiry, strike, models.Call),
			models.NewContractKey(instrument, expiry, strike, models.Put),
		)
	}
	return keys, nil
}

// ListValidExpiries returns the chain's expiries.
func (s *StaticCatalog) ListValidExpiries(ctx context.Context, instrument string) ([]time.Time, error) {
	if instrument != s.instrument {
		return nil, nil
	}
	return append([]time.Time(nil), s.expiries...), nil
}

// KnownStrikes returns the chain's strikes.
func (s *StaticCatalog) KnownStrikes(ctx context.Context, instrument string, expiry time.Time) ([]float64, error) {
	if instrument != s.instrument || !s.hasExpiry(expiry) {
		return nil, nil
	}
	return append([]float64(nil), s.strikes...), nil
}

// ResolveSymbol fabricates a deterministic symbol for the contract.
func (s *StaticCatalog) ResolveSymbol(ctx context.Context, key models.ContractKey) (string, error) {
	if key.Instrument != s.instrument {
		return "", errors.ErrSymbolNotFound
	}
	suffix := "CE"
	if key.Type == models.Put {
		suffix = "PE"
	}
	return fmt.Sprintf("%s%s%.0f%s", key.Instrument, key.Expiry.Format("06Jan"), key.Strike, suffix), nil
}

// Refresh is not supported on a static catalog.
func (s *StaticCatalog) Refresh(ctx context.Context, instruments []models.Instrument) error {
	return fmt.Errorf("static catalog does not support refresh")
}

// Close is a no-op.
func (s *StaticCatalog) Close() error { return nil }

func (s *StaticCatalog) hasExpiry(expiry time.Time) bool {
	expiry = models.NormalizeExpiry(expiry)
	for _, e := range s.expiries {
		if e.Equal(expiry) {
			return true
		}
	}
	return false
}
