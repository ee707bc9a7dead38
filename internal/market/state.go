package market

import (
	"options-desk/internal/config"
	"options-desk/internal/models"
)

// maxCandleWindow caps the rolling candle window per symbol; the oldest
// bar is evicted on overflow.
const maxCandleWindow = 50

// SymbolState holds the mutable simulation state for one index symbol.
// Exactly one instance exists per symbol, owned by the Simulator and
// guarded by its lock; the container is exported so tests and callers
// can construct deterministic fixtures.
type SymbolState struct {
	Symbol        models.IndexSymbol
	Price         float64
	PreviousClose float64
	Candles       []models.Candle

	// LastMarketClosePrice is the last price observed while the market
	// was open. Closed-market reads report it verbatim so quotes stay
	// stable outside trading hours.
	LastMarketClosePrice float64
}

// NewSymbolState seeds a symbol state from its profile.
func NewSymbolState(profile config.SymbolProfile) *SymbolState {
	return &SymbolState{
		Symbol:               models.IndexSymbol(profile.Name),
		Price:                profile.InitialPrice,
		PreviousClose:        profile.PreviousClose,
		LastMarketClosePrice: profile.InitialPrice,
	}
}

// appendCandle appends a bar and enforces the window cap.
func (s *SymbolState) appendCandle(c models.Candle) {
	s.Candles = append(s.Candles, c)
	if len(s.Candles) > maxCandleWindow {
		s.Candles = s.Candles[len(s.Candles)-maxCandleWindow:]
	}
}

// candlesCopy returns a copy of the candle window.
func (s *SymbolState) candlesCopy() []models.Candle {
	out := make([]models.Candle, len(s.Candles))
	copy(out, s.Candles)
	return out
}
