// Package store provides data persistence for trade signals and candle
// history.
package store

import (
	"context"
	"time"

	"options-desk/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Signals
	SaveSignal(ctx context.Context, signal *models.TradeSignal) error
	GetSignal(ctx context.Context, id string) (*models.TradeSignal, error)
	ListSignals(ctx context.Context, filter SignalFilter) ([]models.TradeSignal, error)
	UpdateSignalStatus(ctx context.Context, id string, status models.SignalStatus) error

	// Candles
	SaveCandles(ctx context.Context, symbol models.IndexSymbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol models.IndexSymbol, timeframe string, from, to time.Time) ([]models.Candle, error)

	// Lifecycle
	Close() error
}

// SignalFilter represents filters for querying trade signals.
type SignalFilter struct {
	Instrument string
	Status     models.SignalStatus
	Since      time.Time
	Limit      int
}
