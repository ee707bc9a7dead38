package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"options-desk/internal/models"
)

// candleGen generates valid candle data with realistic OHLCV values
func candleGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Candle{}), map[string]gopter.Gen{
		"Timestamp": gen.TimeRange(time.Now().Add(-365*24*time.Hour), time.Hour),
		"Open":      gen.Float64Range(100.0, 1000.0),
		"High":      gen.Float64Range(100.0, 1000.0),
		"Low":       gen.Float64Range(100.0, 1000.0),
		"Close":     gen.Float64Range(100.0, 1000.0),
		"Volume":    gen.Int64Range(1000, 10000000),
	}).Map(func(c models.Candle) models.Candle {
		// Ensure OHLC constraints: High >= max(Open, Close) and Low <= min(Open, Close)
		c.High = math.Max(c.High, math.Max(c.Open, c.Close))
		c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
		if c.Low > c.High {
			c.Low, c.High = c.High, c.Low
		}
		return c
	})
}

// candleSliceGen generates a slice of valid candles with ascending timestamps
func candleSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, candleGen()).Map(func(candles []models.Candle) []models.Candle {
		if len(candles) < minLen {
			for len(candles) < minLen {
				candles = append(candles, candles[len(candles)-1])
			}
		}
		for i := range candles {
			candles[i].Timestamp = time.Now().Add(time.Duration(i) * time.Hour)
			// Re-validate each candle after shrinking
			candles[i].High = math.Max(candles[i].High, math.Max(candles[i].Open, candles[i].Close))
			candles[i].Low = math.Min(candles[i].Low, math.Min(candles[i].Open, candles[i].Close))
			if candles[i].Low > candles[i].High {
				candles[i].Low, candles[i].High = candles[i].High, candles[i].Low
			}
		}
		return candles
	})
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("RSI values are within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			rsi := NewRSI(14)
			values, err := rsi.Calculate(candles)
			if err != nil {
				// Insufficient data is acceptable
				return true
			}

			for i, v := range values {
				// Skip zero values (before indicator starts)
				if i < rsi.Period() {
					continue
				}
				if v < 0 || v > 100 {
					return false
				}
			}
			return true
		},
		candleSliceGen(20, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_TrailingRSIWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("trailing RSI is within [0, 100] for any window", prop.ForAll(
		func(candles []models.Candle) bool {
			v := TrailingRSI(candles, 14)
			return v >= 0 && v <= 100
		},
		candleSliceGen(0, 60),
	))

	properties.TestingRun(t)
}

func TestProperty_SMAWithinCloseRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("SMA never leaves the min/max close envelope", prop.ForAll(
		func(candles []models.Candle) bool {
			sma := NewSMA(10)
			values, err := sma.Calculate(candles)
			if err != nil {
				return true
			}

			lo, hi := candles[0].Close, candles[0].Close
			for _, c := range candles {
				lo = math.Min(lo, c.Close)
				hi = math.Max(hi, c.Close)
			}
			for i := sma.Period() - 1; i < len(values); i++ {
				if values[i] < lo-1e-9 || values[i] > hi+1e-9 {
					return false
				}
			}
			return true
		},
		candleSliceGen(15, 80),
	))

	properties.TestingRun(t)
}

func TestProperty_MACDHistogramConsistent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("MACD histogram equals line minus signal", prop.ForAll(
		func(candles []models.Candle) bool {
			macd := NewMACD(12, 26, 9)
			result, err := macd.Calculate(candles)
			if err != nil {
				return true
			}

			line := result["macd"]
			signal := result["signal"]
			histogram := result["histogram"]
			for i := macd.Period() - 1; i < len(histogram); i++ {
				if math.Abs(histogram[i]-(line[i]-signal[i])) > 1e-9 {
					return false
				}
			}
			return true
		},
		candleSliceGen(40, 120),
	))

	properties.TestingRun(t)
}
