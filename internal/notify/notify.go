// Package notify provides notification functionality for the OI tracker.
package notify

import (
	"context"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// Notifier delivers the market-wide alert to the user.
type Notifier interface {
	// MarketAlert is called when a published view raises the aggregate
	// alert.
	MarketAlert(ctx context.Context, view *models.MarketView) error
	// Info delivers a low-priority informational message.
	Info(ctx context.Context, message string) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// MarketAlert is a no-op.
func (NopNotifier) MarketAlert(ctx context.Context, view *models.MarketView) error { return nil }

// Info is a no-op.
func (NopNotifier) Info(ctx context.Context, message string) error { return nil }
