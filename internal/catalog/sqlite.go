// Package catalog provides the durable F&O contract catalog.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aakash-code/upstock-oi-tracker/internal/errors"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

const dateFormat = "2006-01-02"

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog creates a new SQLite-backed catalog.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	c := &SQLiteCatalog{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	schema := `
	-- F&O instrument catalog, replaced wholesale by each refresh
	CREATE TABLE IF NOT EXISTS fno_instruments (
		tradingsymbol TEXT PRIMARY KEY,
		token INTEGER NOT NULL,
		name TEXT NOT NULL,
		exchange TEXT NOT NULL,
		segment TEXT,
		instrument_type TEXT NOT NULL,
		expiry TEXT NOT NULL,
		strike REAL NOT NULL,
		lot_size INTEGER,
		tick_size REAL,
		refreshed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fno_name_expiry ON fno_instruments (name, expiry);
	CREATE INDEX IF NOT EXISTS idx_fno_expiry ON fno_instruments (expiry);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Refresh replaces the catalog with the given instrument dump inside one
// transaction, so readers never observe a half-loaded catalog.
func (c *SQLiteCatalog) Refresh(ctx context.Context, instruments []models.Instrument) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin refresh: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fno_instruments`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fno_instruments (
			tradingsymbol, token, name, exchange, segment,
			instrument_type, expiry, strike, lot_size, tick_size
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, inst := range instruments {
		if inst.InstrType != "CE" && inst.InstrType != "PE" {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			inst.Symbol, inst.Token, inst.Name, string(inst.Exchange), inst.Segment,
			inst.InstrType, models.NormalizeExpiry(inst.Expiry).Format(dateFormat),
			inst.Strike, inst.LotSize, inst.TickSize,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", inst.Symbol, err)
		}
		inserted++
	}
	if inserted == 0 {
		return errors.ErrCatalogEmpty
	}

	return tx.Commit()
}

// ListActiveContracts returns the option contracts for an underlying and
// expiry, ordered by strike then type.
func (c *SQLiteCatalog) ListActiveContracts(ctx context.Context, instrument string, expiry time.Time) ([]models.ContractKey, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT strike, instrument_type FROM fno_instruments
		WHERE name = ? AND expiry = ?
		ORDER BY strike ASC, instrument_type ASC`,
		instrument, models.NormalizeExpiry(expiry).Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var keys []models.ContractKey
	for rows.Next() {
		var strike float64
		var instrType string
		if err := rows.Scan(&strike, &instrType); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		keys = append(keys, models.NewContractKey(instrument, expiry, strike, optionType(instrType)))
	}
	return keys, rows.Err()
}

// ListValidExpiries returns future expiry dates for an underlying, ascending.
func (c *SQLiteCatalog) ListValidExpiries(ctx context.Context, instrument string) ([]time.Time, error) {
	today := models.NormalizeExpiry(time.Now()).Format(dateFormat)
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT expiry FROM fno_instruments
		WHERE name = ? AND expiry >= ?
		ORDER BY expiry ASC`,
		instrument, today)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiries: %w", err)
	}
	defer rows.Close()

	var expiries []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan expiry: %w", err)
		}
		expiry, err := time.ParseInLocation(dateFormat, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expiry %q: %w", raw, err)
		}
		expiries = append(expiries, expiry)
	}
	return expiries, rows.Err()
}

// KnownStrikes returns the distinct strikes for an underlying and expiry,
// ascending.
func (c *SQLiteCatalog) KnownStrikes(ctx context.Context, instrument string, expiry time.Time) ([]float64, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT strike FROM fno_instruments
		WHERE name = ? AND expiry = ?
		ORDER BY strike ASC`,
		instrument, models.NormalizeExpiry(expiry).Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query strikes: %w", err)
	}
	defer rows.Close()

	var strikes []float64
	for rows.Next() {
		var strike float64
		if err := rows.Scan(&strike); err != nil {
			return nil, fmt.Errorf("failed to scan strike: %w", err)
		}
		strikes = append(strikes, strike)
	}
	return strikes, rows.Err()
}

// ResolveSymbol maps a contract key to its exchange tradingsymbol.
func (c *SQLiteCatalog) ResolveSymbol(ctx context.Context, key models.ContractKey) (string, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT tradingsymbol FROM fno_instruments
		WHERE name = ? AND expiry = ? AND strike = ? AND instrument_type = ?`,
		key.Instrument, key.Expiry.Format(dateFormat), key.Strike, instrType(key.Type))

	var symbol string
	if err := row.Scan(&symbol); err != nil {
		if err == sql.ErrNoRows {
			return "", errors.Wrapf(errors.ErrSymbolNotFound, "%s", key)
		}
		return "", fmt.Errorf("failed to resolve symbol: %w", err)
	}
	return symbol, nil
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

func optionType(instrType string) models.OptionType {
	if instrType == "PE" {
		return models.Put
	}
	return models.Call
}

func instrType(t models.OptionType) string {
	if t == models.Put {
		return "PE"
	}
	return "CE"
}
