package indicators

import (
	"testing"
	"time"

	"options-desk/internal/models"
)

func barsFromCloses(closes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	prev := closes[0]
	for i, c := range closes {
		open := prev
		hi, lo := open, open
		if c > hi {
			hi = c
		}
		if c < lo {
			lo = c
		}
		candles[i] = models.Candle{
			Timestamp: time.Now().Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      hi,
			Low:       lo,
			Close:     c,
			Volume:    1000,
		}
		prev = c
	}
	return candles
}

func TestTrailingRSI_AllGainsReadsHundred(t *testing.T) {
	candles := barsFromCloses([]float64{100, 101, 102, 103, 104, 105})
	// First bar is flat (open == close), the rest only gain.
	if got := TrailingRSI(candles, 14); got != 100 {
		t.Errorf("TrailingRSI = %v, want 100 for a loss-free window", got)
	}
}

func TestTrailingRSI_AllLossesReadsZero(t *testing.T) {
	candles := barsFromCloses([]float64{105, 104, 103, 102, 101, 100})
	if got := TrailingRSI(candles, 14); got != 0 {
		t.Errorf("TrailingRSI = %v, want 0 for a gain-free window", got)
	}
}

func TestTrailingRSI_EmptyWindowIsNeutral(t *testing.T) {
	if got := TrailingRSI(nil, 14); got != 50 {
		t.Errorf("TrailingRSI = %v, want neutral 50 for no data", got)
	}
}

func TestTrailingRSI_BalancedWindow(t *testing.T) {
	// Equal total gain and loss: RS = 1, RSI = 50.
	candles := barsFromCloses([]float64{100, 110, 100, 110, 100, 110, 100})
	got := TrailingRSI(candles, 14)
	if got < 49.99 || got > 50.01 {
		t.Errorf("TrailingRSI = %v, want 50 for balanced gains and losses", got)
	}
}

func TestTrailingRSI_UsesOnlyTrailingWindow(t *testing.T) {
	// Heavy losses outside the window must not affect the result.
	closes := []float64{200, 150, 100}
	for i := 0; i < 14; i++ {
		closes = append(closes, 100+float64(i+1))
	}
	if got := TrailingRSI(barsFromCloses(closes), 14); got != 100 {
		t.Errorf("TrailingRSI = %v, want 100 once losses age out of the window", got)
	}
}

func TestRSI_FlatSeriesReadsHundred(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	values, err := NewRSI(14).Calculate(barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got := values[len(values)-1]; got != 100 {
		t.Errorf("RSI = %v, want 100 when average loss is zero", got)
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	_, err := NewRSI(14).Calculate(barsFromCloses([]float64{100, 101}))
	if err != ErrInsufficientData {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}
