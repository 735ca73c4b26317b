package utils

import (
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// NSE trading hours, minutes since midnight IST.
const (
	preOpenStart = 9 * 60     // 09:00
	sessionStart = 9*60 + 15  // 09:15
	sessionEnd   = 15*60 + 30 // 15:30
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", int((5*time.Hour + 30*time.Minute).Seconds()))
	}
	IndiaLocation = loc
}

// GetMarketStatus returns the current market status.
func GetMarketStatus() models.MarketStatus {
	return MarketStatusAt(time.Now())
}

// MarketStatusAt returns the market status at the given time.
func MarketStatusAt(t time.Time) models.MarketStatus {
	ist := t.In(IndiaLocation)
	if isWeekend(ist.Weekday()) {
		return models.MarketClosed
	}

	minute := ist.Hour()*60 + ist.Minute()
	switch {
	case minute >= preOpenStart && minute < sessionStart:
		return models.MarketPreOpen
	case minute >= sessionStart && minute < sessionEnd:
		return models.MarketOpen
	default:
		return models.MarketClosed
	}
}

// IsMarketOpen returns true if the market is currently open.
func IsMarketOpen() bool {
	return GetMarketStatus() == models.MarketOpen
}

// GetNextMarketOpen returns the next session start after now.
func GetNextMarketOpen() time.Time {
	now := time.Now().In(IndiaLocation)

	open := time.Date(now.Year(), now.Month(), now.Day(),
		sessionStart/60, sessionStart%60, 0, 0, IndiaLocation)
	if now.After(open) {
		open = open.AddDate(0, 0, 1)
	}
	for isWeekend(open.Weekday()) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}
