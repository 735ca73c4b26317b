// Package models provides domain models for the open-interest tracker.
package models

import (
	"fmt"
	"time"
)

// Exchange represents a stock exchange segment.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
)

// OptionType represents the side of an option contract.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// ContractKey identifies a single option contract. It is the identity for
// all time-series lookups; two keys are equal iff all four fields match.
type ContractKey struct {
	Instrument string
	Expiry     time.Time
	Strike     float64
	Type       OptionType
}

// NewContractKey builds a key with the expiry normalized to a UTC date so
// that keys built from different sources compare equal.
func NewContractKey(instrument string, expiry time.Time, strike float64, typ OptionType) ContractKey {
	return ContractKey{
		Instrument: instrument,
		Expiry:     NormalizeExpiry(expiry),
		Strike:     strike,
		Type:       typ,
	}
}

// NormalizeExpiry strips the time-of-day and location from an expiry date.
func NormalizeExpiry(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (k ContractKey) String() string {
	return fmt.Sprintf("%s %s %.0f %s", k.Instrument, k.Expiry.Format("02-Jan-2006"), k.Strike, k.Type)
}

// OISnapshot is a single open-interest observation for a contract.
// Immutable once created; produced only by the ingestor.
type OISnapshot struct {
	Key        ContractKey
	OI         int64
	CapturedAt time.Time
}

// Instrument represents one row of the F&O contract catalog.
type Instrument struct {
	Token     uint32
	Symbol    string // exchange tradingsymbol, e.g. NIFTY25AUG22150CE
	Name      string // underlying name, e.g. NIFTY
	Exchange  Exchange
	Segment   string
	LotSize   int
	TickSize  float64
	Expiry    time.Time
	Strike    float64
	InstrType string // CE, PE, FUT
}
