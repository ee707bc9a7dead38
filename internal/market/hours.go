// Package market implements the simulated market data engine.
package market

import (
	"time"

	"options-desk/internal/models"
)

// ISTLocation is the timezone for Indian markets.
var ISTLocation *time.Location

func init() {
	var err error
	ISTLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		ISTLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Market session bounds in minutes from midnight IST.
const (
	marketOpenMinute  = 9*60 + 15  // 09:15
	marketCloseMinute = 15*60 + 30 // 15:30
)

// StatusAt returns the market status at the given instant.
// The exchange calendar is reduced to weekday + session window; holidays
// are not modeled.
func StatusAt(t time.Time) models.MarketStatus {
	ist := t.In(ISTLocation)

	if ist.Weekday() == time.Saturday || ist.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	minutes := ist.Hour()*60 + ist.Minute()
	if minutes >= marketOpenMinute && minutes < marketCloseMinute {
		return models.MarketOpen
	}
	return models.MarketClosed
}

// IsOpenAt returns true if the market is open at the given instant.
func IsOpenAt(t time.Time) bool {
	return StatusAt(t) == models.MarketOpen
}

// NextOpen returns the next market opening time after t.
func NextOpen(t time.Time) time.Time {
	now := t.In(ISTLocation)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 15, 0, 0, ISTLocation)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}
