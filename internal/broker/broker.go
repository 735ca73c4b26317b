// Package broker provides market-data source interfaces and implementations.
package broker

import (
	"context"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// MarketDataSource defines the upstream quote/OI surface the tracker
// consumes. A missing key in the GetCurrentOI result is a per-key miss; an
// error return is a cycle-level failure.
type MarketDataSource interface {
	// GetCurrentOI fetches current open interest for the given contracts in
	// one batched call. Keys that could not be fetched are absent from the
	// result.
	GetCurrentOI(ctx context.Context, keys []models.ContractKey) (map[models.ContractKey]int64, error)

	// GetUnderlyingPrice fetches the last traded price of the instrument's
	// underlying index or stock.
	GetUnderlyingPrice(ctx context.Context, instrument string) (float64, error)
}

// SymbolResolver maps a contract key to its exchange tradingsymbol. The
// contract catalog implements this.
type SymbolResolver interface {
	ResolveSymbol(ctx context.Context, key models.ContractKey) (string, error)
}

// InstrumentLister exposes the exchange instrument dump used to refresh the
// contract catalog.
type InstrumentLister interface {
	Instruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error)
}
