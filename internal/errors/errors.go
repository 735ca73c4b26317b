// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Standard sentinel errors
var (
	ErrStaleWrite       = errors.New("stale write: timestamp not after latest stored snapshot")
	ErrNoData           = errors.New("no data at or before target time")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
	ErrNoView           = errors.New("no view published yet")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrCatalogEmpty     = errors.New("contract catalog is empty")
	ErrCycleInFlight    = errors.New("previous cycle still in flight")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// FetchError represents a per-key fetch failure. A cycle proceeds past
// these; prior history still serves delta computation for the key.
type FetchError struct {
	Key models.ContractKey
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(key models.ContractKey, err error) *FetchError {
	return &FetchError{Key: key, Err: err}
}

// CycleError represents a cycle-level failure. The scheduler transitions to
// FAILED and the previously published view stays visible.
type CycleError struct {
	Instrument string
	Stage      string // fetch, compute
	At         time.Time
	Err        error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle error [%s] %s: %v", e.Instrument, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// NewCycleError creates a new CycleError.
func NewCycleError(instrument, stage string, at time.Time, err error) *CycleError {
	return &CycleError{Instrument: instrument, Stage: stage, At: at, Err: err}
}

// InvariantError represents a data-quality fault: the offending snapshot is
// discarded and the cycle continues without it.
type InvariantError struct {
	Key    models.ContractKey
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation for %s: %s", e.Key, e.Reason)
}

// NewInvariantError creates a new InvariantError.
func NewInvariantError(key models.ContractKey, reason string) *InvariantError {
	return &InvariantError{Key: key, Reason: reason}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
