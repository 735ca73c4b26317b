// Package catalog provides the durable F&O contract catalog.
//
// The catalog is refreshed out-of-band (daily, from the exchange instrument
// dump) and only read by the tracker.
package catalog

import (
	"context"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Catalog defines the read surface the tracker consumes plus the refresh
// operation used by the daily instruments job.
type Catalog interface {
	// ListActiveContracts returns the option contracts for an underlying
	// and expiry, ordered by strike then type.
	ListActiveContracts(ctx context.Context, instrument string, expiry time.Time) ([]models.ContractKey, error)

	// ListValidExpiries returns future expiry dates for an underlying,
	// ascending.
	ListValidExpiries(ctx context.Context, instrument string) ([]time.Time, error)

	// KnownStrikes returns the distinct strikes listed for an underlying
	// and expiry, ascending.
	KnownStrikes(ctx context.Context, instrument string, expiry time.Time) ([]float64, error)

	// ResolveSymbol maps a contract key to its exchange tradingsymbol.
	ResolveSymbol(ctx context.Context, key models.ContractKey) (string, error)

	// Refresh replaces the stored catalog with the given instrument dump.
	Refresh(ctx context.Context, instruments []models.Instrument) error

	Close() error
}
