package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

func TestFormatPercent(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{10, "+10.00%"},
		{-7.5, "-7.50%"},
		{0, "0.00%"},
		{0.333, "+0.33%"},
	}
	for _, tc := range cases {
		if got := FormatPercent(tc.value); got != tc.want {
			t.Errorf("FormatPercent(%g) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func sampleView() *models.MarketView {
	expiry := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	windows := []time.Duration{3 * time.Minute, 5 * time.Minute}
	key := models.NewContractKey("NIFTY", expiry, 22150, models.Call)

	return &models.MarketView{
		Instrument:      "NIFTY",
		Expiry:          expiry,
		GeneratedAt:     time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
		UnderlyingPrice: 22155.4,
		ATMStrike:       22150,
		Windows:         windows,
		Rows: []models.StrikeRow{
			{
				Strike: 22100,
				Call: []models.IntervalDelta{
					{Key: key, Window: windows[0], ChangePercent: 12.5, Flagged: true},
					{Key: key, Window: windows[1], Insufficient: true},
				},
				// Put side absent this cycle
			},
			{
				Strike: 22150,
				Call: []models.IntervalDelta{
					{Key: key, Window: windows[0], ChangePercent: -2.1},
					{Key: key, Window: windows[1], ChangePercent: 1.0},
				},
				Put: []models.IntervalDelta{
					{Key: key, Window: windows[0], ChangePercent: 3.3},
					{Key: key, Window: windows[1], ChangePercent: -0.4},
				},
			},
		},
		FlaggedCells: 1,
		ValidCells:   5,
	}
}

func TestRenderView(t *testing.T) {
	// Deterministic output without ANSI escapes
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	RenderView(&buf, sampleView())
	out := buf.String()

	for _, want := range []string{
		"NIFTY 27-Aug-2026",
		"spot 22155.40",
		"ATM 22150",
		"CALL OI change %",
		"PUT OI change %",
		"3m",
		"5m",
		"+12.50%",
		"-2.10%",
		"22150*", // ATM marker
		"…",      // insufficient
		"—",      // absent side
		"flagged 1 / valid 5 cells",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ALERT") {
		t.Error("non-alert view must not print the alert marker")
	}
}

func TestRenderViewAlertMarker(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	view := sampleView()
	view.Alert = true

	var buf bytes.Buffer
	RenderView(&buf, view)
	if !strings.Contains(buf.String(), "ALERT") {
		t.Error("alerting view must print the alert marker")
	}
}

func TestRenderStatus(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	statuses := []models.TrackerStatus{
		{
			Instrument:   "NIFTY",
			Expiry:       time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
			State:        models.CyclePublished,
			LastSuccess:  time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
			CyclesRun:    12,
			CyclesFailed: 1,
		},
		{
			Instrument: "NIFTY",
			Expiry:     time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
			State:      models.CycleIdle,
		},
	}

	var buf bytes.Buffer
	RenderStatus(&buf, statuses)
	out := buf.String()

	for _, want := range []string{"PUBLISHED", "IDLE", "27-Aug-2026", "never"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
