// Package broker provides market-data source implementations.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"golang.org/x/time/rate"

	apperrors "github.com/aakash-code/upstock-oi-tracker/internal/errors"
	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// kiteQuoteRate is the documented Kite Connect budget for quote endpoints.
const kiteQuoteRate = 3 // requests per second

// ZerodhaSource implements MarketDataSource on Zerodha Kite Connect.
type ZerodhaSource struct {
	client        *kiteconnect.Client
	apiKey        string
	apiSecret     string
	userID        string
	tokenPath     string
	authenticated bool
	underlyings   map[string]string // instrument -> quote symbol
	resolver      SymbolResolver
	limiter       *rate.Limiter
	mu            sync.RWMutex
}

// ZerodhaConfig holds configuration for the Zerodha source.
type ZerodhaConfig struct {
	APIKey    string
	APISecret string
	UserID    string
	TokenPath string
	// Underlyings maps an instrument name to its underlying quote symbol,
	// e.g. NIFTY -> "NSE:NIFTY 50".
	Underlyings map[string]string
	// Resolver maps contract keys to exchange tradingsymbols; normally the
	// contract catalog.
	Resolver SymbolResolver
}

// NewZerodhaSource creates a new Zerodha market-data source.
// It automatically loads any saved session from disk.
func NewZerodhaSource(cfg ZerodhaConfig) *ZerodhaSource {
	client := kiteconnect.New(cfg.APIKey)

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		tokenPath = filepath.Join(homeDir, ".config", "oi-tracker", "session.json")
	}

	z := &ZerodhaSource{
		client:      client,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		userID:      cfg.UserID,
		tokenPath:   tokenPath,
		underlyings: cfg.Underlyings,
		resolver:    cfg.Resolver,
		limiter:     rate.NewLimiter(rate.Limit(kiteQuoteRate), kiteQuoteRate),
	}

	_ = z.loadSession()

	return z
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login verifies an existing session or reports the login URL the user must
// visit to obtain a request token.
func (z *ZerodhaSource) Login(ctx context.Context) error {
	if err := z.loadSession(); err == nil && z.IsAuthenticated() {
		if _, err := z.client.GetUserProfile(); err == nil {
			return nil
		}
	}

	loginURL := z.client.GetLoginURL()
	return fmt.Errorf("authentication required: please visit %s and complete login, then run 'oi-tracker auth login --request-token <token>'", loginURL)
}

// CompleteLogin completes the OAuth flow with the request token.
func (z *ZerodhaSource) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := z.client.GenerateSession(requestToken, z.apiSecret)
	if err != nil {
		return fmt.Errorf("failed to generate session: %w", err)
	}

	z.mu.Lock()
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()

	if err := z.saveSession(session.AccessToken); err != nil {
		// Session is still valid in memory
		fmt.Printf("warning: failed to persist session: %v\n", err)
	}

	return nil
}

// Logout invalidates the session and removes persisted credentials.
func (z *ZerodhaSource) Logout(ctx context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.authenticated {
		if _, err := z.client.InvalidateAccessToken(); err != nil {
			fmt.Printf("warning: failed to invalidate token: %v\n", err)
		}
	}
	z.authenticated = false

	if err := os.Remove(z.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// IsAuthenticated returns whether the source has a usable session.
func (z *ZerodhaSource) IsAuthenticated() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.authenticated
}

func (z *ZerodhaSource) loadSession() error {
	data, err := os.ReadFile(z.tokenPath)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return apperrors.ErrSessionExpired
	}

	z.mu.Lock()
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()
	return nil
}

func (z *ZerodhaSource) saveSession(accessToken string) error {
	if err := os.MkdirAll(filepath.Dir(z.tokenPath), 0700); err != nil {
		return err
	}

	// Kite sessions expire at 6 AM IST the next day; a 24h cap is close
	// enough for local invalidation.
	session := sessionData{
		AccessToken: accessToken,
		UserID:      z.userID,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(z.tokenPath, data, 0600)
}

// GetCurrentOI fetches current open interest for the given contracts in one
// batched quote call. Contracts whose tradingsymbol cannot be resolved or
// that are missing from the quote response are absent from the result.
func (z *ZerodhaSource) GetCurrentOI(ctx context.Context, keys []models.ContractKey) (map[models.ContractKey]int64, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	symbols := make([]string, 0, len(keys))
	byQuoteKey := make(map[string]models.ContractKey, len(keys))
	for _, key := range keys {
		symbol, err := z.resolver.ResolveSymbol(ctx, key)
		if err != nil {
			// Per-key miss; the key stays absent from this cycle
			continue
		}
		quoteKey := fmt.Sprintf("%s:%s", models.NFO, symbol)
		symbols = append(symbols, quoteKey)
		byQuoteKey[quoteKey] = key
	}
	if len(symbols) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrSymbolNotFound, "no contract resolved to a tradingsymbol")
	}

	if err := z.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	quotes, err := z.client.GetQuote(symbols...)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}

	result := make(map[models.ContractKey]int64, len(quotes))
	for quoteKey, key := range byQuoteKey {
		q, ok := quotes[quoteKey]
		if !ok {
			continue
		}
		result[key] = int64(q.OI)
	}
	return result, nil
}

// GetUnderlyingPrice fetches the LTP of the instrument's underlying.
func (z *ZerodhaSource) GetUnderlyingPrice(ctx context.Context, instrument string) (float64, error) {
	if !z.IsAuthenticated() {
		return 0, apperrors.ErrNotAuthenticated
	}

	symbol, ok := z.underlyings[instrument]
	if !ok {
		return 0, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "no underlying symbol configured for %s", instrument)
	}

	if err := z.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	quotes, err := z.client.GetLTP(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to get LTP: %w", err)
	}

	q, ok := quotes[symbol]
	if !ok {
		return 0, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "LTP missing for %s", symbol)
	}
	return q.LastPrice, nil
}

// Instruments fetches the exchange instrument dump, filtered by exchange.
// Used by the catalog refresh job.
func (z *ZerodhaSource) Instruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	if err := z.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	instruments, err := z.client.GetInstruments()
	if err != nil {
		return nil, fmt.Errorf("failed to get instruments: %w", err)
	}

	var result []models.Instrument
	for _, inst := range instruments {
		if inst.Exchange != string(exchange) {
			continue
		}
		result = append(result, models.Instrument{
			Token:     uint32(inst.InstrumentToken),
			Symbol:    inst.Tradingsymbol,
			Name:      inst.Name,
			Exchange:  models.Exchange(inst.Exchange),
			Segment:   inst.Segment,
			LotSize:   int(inst.LotSize),
			TickSize:  inst.TickSize,
			Expiry:    inst.Expiry.Time,
			Strike:    inst.StrikePrice,
			InstrType: inst.InstrumentType,
		})
	}
	return result, nil
}
