// Package models provides domain models for the options dashboard engine.
package models

import (
	"time"
)

// IndexSymbol identifies a tracked index.
type IndexSymbol string

const (
	Nifty50 IndexSymbol = "NIFTY 50"
	Sensex  IndexSymbol = "SENSEX"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen   MarketStatus = "OPEN"
	MarketClosed MarketStatus = "CLOSED"
)

// QuoteSource indicates where a quote's numbers came from.
type QuoteSource string

const (
	// SourceLive means the quote was obtained from the external oracle.
	SourceLive QuoteSource = "LIVE"
	// SourceSimulated means the quote was produced by the local simulator.
	SourceSimulated QuoteSource = "SIMULATED"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume,omitempty"`
}

// Valid reports whether the candle satisfies the OHLC ordering
// Low <= min(Open, Close) <= max(Open, Close) <= High.
func (c Candle) Valid() bool {
	lo, hi := c.Open, c.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return c.Low <= lo && hi <= c.High
}

// IndexQuote represents a point-in-time index quote.
type IndexQuote struct {
	Symbol        IndexSymbol `json:"symbol"`
	Price         float64     `json:"price"`
	Change        float64     `json:"change"`
	PChange       float64     `json:"pChange"`
	PreviousClose float64     `json:"previousClose"`
	LastUpdated   time.Time   `json:"lastUpdated"`

	// Source records whether the numbers are oracle data or simulator
	// output, and FallbackReason carries the oracle failure that forced
	// the simulation path.
	Source         QuoteSource `json:"source"`
	FallbackReason string      `json:"fallbackReason,omitempty"`
}

// TechnicalIndicators is a derived snapshot of indicator values for an index.
// Apart from RSI and the moving averages, which are computed from the candle
// window, the values are descriptive placeholders parameterized by the
// current price and market state, not real signal computations.
type TechnicalIndicators struct {
	RSI        float64    `json:"rsi"`
	MACD       MACD       `json:"macd"`
	Supertrend Supertrend `json:"supertrend"`
	EMA9       float64    `json:"ema9"`
	EMA20      float64    `json:"ema20"`
	SMA50      float64    `json:"sma50"`
	SMA200     float64    `json:"sma200"`
	PCR        float64    `json:"pcr"`
	VIX        float64    `json:"vix"`
}

// MACD holds the MACD line triple.
type MACD struct {
	Line      float64 `json:"macdLine"`
	Signal    float64 `json:"signalLine"`
	Histogram float64 `json:"histogram"`
}

// TrendDirection is the direction of a trend-following indicator.
type TrendDirection string

const (
	TrendUp   TrendDirection = "UP"
	TrendDown TrendDirection = "DOWN"
)

// Supertrend holds a supertrend value and its direction.
type Supertrend struct {
	Value     float64        `json:"value"`
	Direction TrendDirection `json:"direction"`
}
