package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// TerminalNotifier rings the terminal bell and prints a banner when the
// market alert fires.
type TerminalNotifier struct {
	out io.Writer
	mu  sync.Mutex
}

// NewTerminalNotifier creates a terminal notifier writing to stdout.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{out: os.Stdout}
}

// NewTerminalNotifierWithWriter creates a terminal notifier with a custom
// writer, mainly for tests.
func NewTerminalNotifierWithWriter(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out}
}

// MarketAlert rings the bell and prints the alert banner.
func (n *TerminalNotifier) MarketAlert(ctx context.Context, view *models.MarketView) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	// ASCII bell
	fmt.Fprint(n.out, "\a")

	banner := color.New(color.FgRed, color.Bold)
	banner.Fprintf(n.out, "!!! ALERT: %d of %d cells flagged for %s %s !!!\n",
		view.FlaggedCells, view.ValidCells,
		view.Instrument, view.Expiry.Format("02-Jan-2006"))
	return nil
}

// Info prints a dimmed informational line.
func (n *TerminalNotifier) Info(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	dim := color.New(color.Faint)
	dim.Fprintln(n.out, message)
	return nil
}
