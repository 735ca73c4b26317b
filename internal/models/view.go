package models

import "time"

// IntervalDelta is the percentage open-interest change for one contract over
// one look-back window. Recomputed fresh every refresh cycle; never persisted.
type IntervalDelta struct {
	Key           ContractKey
	Window        time.Duration
	ReferenceOI   int64
	CurrentOI     int64
	ChangePercent float64
	// Insufficient marks the computation outcome when no usable reference
	// exists (no anchor at or before now-window, or reference OI of zero).
	// An insufficient delta is never flagged.
	Insufficient bool
	Flagged      bool
}

// StrikeRow holds the per-window deltas for both sides of one strike.
// Call/Put are parallel to MarketView.Windows; a nil slice means the
// contract produced no fresh snapshot this cycle.
type StrikeRow struct {
	Strike float64
	Call   []IntervalDelta
	Put    []IntervalDelta
}

// MarketView is the output of one refresh cycle: the ordered ATM band with
// deltas for every window and side, plus the aggregated alert signal.
// A view is owned by the cycle that produced it and superseded wholesale by
// the next cycle.
type MarketView struct {
	Instrument      string
	Expiry          time.Time
	GeneratedAt     time.Time
	UnderlyingPrice float64
	ATMStrike       float64
	Windows         []time.Duration
	Rows            []StrikeRow

	FlaggedCells int
	ValidCells   int
	Alert        bool
}

// CycleState is the refresh scheduler state for one tracked instrument.
type CycleState string

const (
	CycleIdle      CycleState = "IDLE"
	CycleFetching  CycleState = "FETCHING"
	CycleComputing CycleState = "COMPUTING"
	CyclePublished CycleState = "PUBLISHED"
	CycleFailed    CycleState = "FAILED"
)

// TrackerStatus reports the scheduler state for one tracked instrument.
// LastSuccess survives failed cycles so a consumer can see how stale the
// published view is.
type TrackerStatus struct {
	Instrument   string
	Expiry       time.Time
	State        CycleState
	LastSuccess  time.Time
	LastError    string
	CyclesRun    int64
	CyclesFailed int64
}
