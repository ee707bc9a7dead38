package market

import (
	"testing"
	"time"

	"options-desk/internal/models"
)

func istTime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, ISTLocation)
}

func TestStatusAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want models.MarketStatus
	}{
		{"weekday mid-session", istTime(2025, 6, 11, 11, 0), models.MarketOpen},
		{"weekday at open", istTime(2025, 6, 11, 9, 15), models.MarketOpen},
		{"weekday minute before open", istTime(2025, 6, 11, 9, 14), models.MarketClosed},
		{"weekday at close", istTime(2025, 6, 11, 15, 30), models.MarketClosed},
		{"weekday minute before close", istTime(2025, 6, 11, 15, 29), models.MarketOpen},
		{"weekday evening", istTime(2025, 6, 11, 20, 0), models.MarketClosed},
		{"saturday mid-session hours", istTime(2025, 6, 14, 11, 0), models.MarketClosed},
		{"sunday mid-session hours", istTime(2025, 6, 15, 11, 0), models.MarketClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusAt(tt.at); got != tt.want {
				t.Errorf("StatusAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestStatusAt_NonISTClock(t *testing.T) {
	// 06:00 UTC is 11:30 IST, inside the session.
	at := time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC)
	if got := StatusAt(at); got != models.MarketOpen {
		t.Errorf("StatusAt(%v) = %v, want OPEN", at, got)
	}

	// 11:00 UTC is 16:30 IST, after the close.
	at = time.Date(2025, 6, 11, 11, 0, 0, 0, time.UTC)
	if got := StatusAt(at); got != models.MarketClosed {
		t.Errorf("StatusAt(%v) = %v, want CLOSED", at, got)
	}
}

func TestNextOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"before open same day", istTime(2025, 6, 11, 8, 0), istTime(2025, 6, 11, 9, 15)},
		{"during session", istTime(2025, 6, 11, 11, 0), istTime(2025, 6, 12, 9, 15)},
		{"friday evening skips weekend", istTime(2025, 6, 13, 18, 0), istTime(2025, 6, 16, 9, 15)},
		{"saturday skips to monday", istTime(2025, 6, 14, 11, 0), istTime(2025, 6, 16, 9, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextOpen(tt.at); !got.Equal(tt.want) {
				t.Errorf("NextOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}
