package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

var (
	flaggedCell = color.New(color.FgRed, color.Bold)
	headerText  = color.New(color.FgCyan, color.Bold)
	atmText     = color.New(color.FgYellow)
)

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// RenderView writes the CALL and PUT change tables plus the summary line for
// one published view.
func RenderView(out io.Writer, view *models.MarketView) {
	headerText.Fprintf(out, "%s %s  spot %.2f  ATM %.0f  %s\n",
		view.Instrument,
		view.Expiry.Format("02-Jan-2006"),
		view.UnderlyingPrice,
		view.ATMStrike,
		view.GeneratedAt.Format("15:04:05"))

	renderSideTable(out, view, models.Call)
	renderSideTable(out, view, models.Put)

	summary := fmt.Sprintf("flagged %d / valid %d cells", view.FlaggedCells, view.ValidCells)
	if view.Alert {
		flaggedCell.Fprintf(out, "%s  ALERT\n\n", summary)
	} else {
		fmt.Fprintf(out, "%s\n\n", summary)
	}
}

func renderSideTable(out io.Writer, view *models.MarketView, side models.OptionType) {
	headerText.Fprintf(out, "\n%s OI change %%\n", side)

	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	headers := []string{"Strike"}
	for _, window := range view.Windows {
		headers = append(headers, fmt.Sprintf("%dm", int(window.Minutes())))
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	for _, row := range view.Rows {
		deltas := row.Call
		if side == models.Put {
			deltas = row.Put
		}

		strike := fmt.Sprintf("%.0f", row.Strike)
		if row.Strike == view.ATMStrike {
			strike = atmText.Sprintf("%.0f*", row.Strike)
		}
		cells := []string{strike}
		for i := range view.Windows {
			cells = append(cells, formatDeltaCell(deltas, i))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}

func formatDeltaCell(deltas []models.IntervalDelta, i int) string {
	if deltas == nil || i >= len(deltas) {
		// No fresh snapshot this cycle
		return "—"
	}
	d := deltas[i]
	if d.Insufficient {
		return "…"
	}
	cell := FormatPercent(d.ChangePercent)
	if d.Flagged {
		return flaggedCell.Sprint(cell)
	}
	return cell
}

// RenderStatus writes the scheduler status lines for an instrument.
func RenderStatus(out io.Writer, statuses []models.TrackerStatus) {
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Expiry\tState\tLast success\tCycles\tFailed")
	for _, s := range statuses {
		lastSuccess := "never"
		if !s.LastSuccess.IsZero() {
			lastSuccess = s.LastSuccess.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			s.Expiry.Format("02-Jan-2006"), s.State, lastSuccess, s.CyclesRun, s.CyclesFailed)
	}
	w.Flush()
}
