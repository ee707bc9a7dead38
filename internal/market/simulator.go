package market

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"options-desk/internal/analysis/indicators"
	"options-desk/internal/config"
	errs "options-desk/internal/errors"
	"options-desk/internal/logging"
	"options-desk/internal/models"
	"options-desk/pkg/utils"
)

// LiveQuote is a price pair obtained from the external oracle.
type LiveQuote struct {
	Price         float64
	PreviousClose float64
}

// QuoteOracle supplies live index quotes from an external source.
// Any error, including "not configured", sends the simulator down its
// local fallback path.
type QuoteOracle interface {
	FetchLiveQuote(ctx context.Context, symbol models.IndexSymbol) (LiveQuote, error)
}

// SimulatorConfig holds configuration for the market simulator.
type SimulatorConfig struct {
	Symbols      []config.SymbolProfile
	Oracle       QuoteOracle
	Rand         *rand.Rand
	Now          func() time.Time
	Latency      time.Duration
	Timeframe    string
	ExpirySeeds  []string
	QuoteRetries int
	Logger       zerolog.Logger
}

// Simulator produces plausible market data for a fixed set of index
// symbols without a real market connection, preferring a live oracle
// quote when one can be obtained. All reads mutate and return the
// per-symbol state under a single lock.
type Simulator struct {
	mu       sync.Mutex
	profiles map[models.IndexSymbol]config.SymbolProfile
	states   map[models.IndexSymbol]*SymbolState

	oracle       QuoteOracle
	rng          *rand.Rand
	now          func() time.Time
	latency      time.Duration
	timeframe    string
	expirySeeds  []time.Time
	quoteRetries int
	logger       zerolog.Logger
}

// NewSimulator creates a market simulator for the configured symbols.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeframe := cfg.Timeframe
	if timeframe == "" {
		timeframe = "5min"
	}
	retries := cfg.QuoteRetries
	if retries <= 0 {
		retries = 1
	}

	s := &Simulator{
		profiles:     make(map[models.IndexSymbol]config.SymbolProfile),
		states:       make(map[models.IndexSymbol]*SymbolState),
		oracle:       cfg.Oracle,
		rng:          rng,
		now:          now,
		latency:      cfg.Latency,
		timeframe:    timeframe,
		quoteRetries: retries,
		logger:       cfg.Logger,
	}

	for _, p := range cfg.Symbols {
		symbol := models.IndexSymbol(p.Name)
		s.profiles[symbol] = p
		s.states[symbol] = NewSymbolState(p)
	}

	for _, seed := range cfg.ExpirySeeds {
		d, err := time.ParseInLocation("2006-01-02", seed, ISTLocation)
		if err != nil {
			s.logger.Warn().Str("expiry", seed).Msg("Ignoring unparseable expiry seed")
			continue
		}
		s.expirySeeds = append(s.expirySeeds, d)
	}

	return s
}

// Symbols returns the configured symbols.
func (s *Simulator) Symbols() []models.IndexSymbol {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]models.IndexSymbol, 0, len(s.profiles))
	for sym := range s.profiles {
		symbols = append(symbols, sym)
	}
	return symbols
}

// Status returns the market status at the simulator's current clock.
func (s *Simulator) Status() models.MarketStatus {
	return StatusAt(s.now())
}

// FetchIndexQuote returns the current quote for a symbol.
//
// The oracle is tried first; on success its values overwrite the local
// state and are returned immediately. On any oracle failure the quote is
// simulated: while the market is open the price random-walks, while it
// is closed the last open-market price is reported unchanged. Oracle
// failures never surface as errors here.
func (s *Simulator) FetchIndexQuote(ctx context.Context, symbol models.IndexSymbol) (*models.IndexQuote, error) {
	s.mu.Lock()
	st, ok := s.states[symbol]
	profile := s.profiles[symbol]
	s.mu.Unlock()
	if !ok {
		return nil, errs.NewDataError("quote", string(symbol), "unknown symbol", errs.ErrSymbolNotFound)
	}

	fallbackCause := errs.ErrOracleNotConfigured
	if s.oracle != nil {
		live, err := utils.RetryWithResult(ctx, s.retryConfig(), func() (LiveQuote, error) {
			return s.oracle.FetchLiveQuote(ctx, symbol)
		})
		if err == nil {
			return s.applyLiveQuote(st, live), nil
		}
		fallbackCause = err
	}

	logging.LogFallback(s.logger, string(symbol), fallbackCause)
	quote := s.simulateQuote(st, profile, fallbackCause)

	if err := s.simulateDelay(ctx); err != nil {
		return nil, err
	}
	return quote, nil
}

// applyLiveQuote overwrites local state with oracle values. The oracle
// call itself is slow, so the quote is returned without added latency.
func (s *Simulator) applyLiveQuote(st *SymbolState, live LiveQuote) *models.IndexQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.Price = live.Price
	st.PreviousClose = live.PreviousClose
	st.LastMarketClosePrice = live.Price

	change := round2(live.Price - live.PreviousClose)
	return &models.IndexQuote{
		Symbol:        st.Symbol,
		Price:         live.Price,
		Change:        change,
		PChange:       round2(change / live.PreviousClose * 100),
		PreviousClose: live.PreviousClose,
		LastUpdated:   s.now(),
		Source:        models.SourceLive,
	}
}

func (s *Simulator) simulateQuote(st *SymbolState, profile config.SymbolProfile, cause error) *models.IndexQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	var price float64
	if IsOpenAt(s.now()) {
		drift := (s.rng.Float64() - 0.5) * (st.Price * profile.MovementFactor * 20)
		price = round2(st.Price + drift)
		if price <= 0 {
			price = round2(st.Price * 0.99)
		}
		st.Price = price
		st.LastMarketClosePrice = price
	} else {
		// Frozen outside trading hours: no drift between reads.
		price = st.LastMarketClosePrice
		st.Price = price
	}

	change := round2(price - st.PreviousClose)
	return &models.IndexQuote{
		Symbol:         st.Symbol,
		Price:          price,
		Change:         change,
		PChange:        round2(change / st.PreviousClose * 100),
		PreviousClose:  st.PreviousClose,
		LastUpdated:    s.now(),
		Source:         models.SourceSimulated,
		FallbackReason: cause.Error(),
	}
}

// strikesPerSide is the number of strikes generated on each side of the
// central strike, central strike included.
const strikesPerSide = 7

// FetchOptionChain synthesizes an option chain around the current
// underlying price. Open-interest changes are zeroed while the market is
// closed so no activity appears to occur outside trading hours.
func (s *Simulator) FetchOptionChain(ctx context.Context, symbol models.IndexSymbol, expiry time.Time) (*models.OptionChain, error) {
	s.mu.Lock()
	st, ok := s.states[symbol]
	if !ok {
		s.mu.Unlock()
		return nil, errs.NewDataError("option_chain", string(symbol), "unknown symbol", errs.ErrSymbolNotFound)
	}
	profile := s.profiles[symbol]

	open := IsOpenAt(s.now())
	underlying := st.Price
	if !open {
		underlying = st.LastMarketClosePrice
	}
	underlying = round2(underlying)

	central := math.Round(underlying/profile.StrikeStep) * profile.StrikeStep
	strikes := make([]float64, strikesPerSide)
	for i := range strikes {
		strikes[i] = central + float64(i-strikesPerSide/2)*profile.StrikeSpacing
	}

	chain := &models.OptionChain{
		Symbol:          symbol,
		Expiry:          expiry,
		UnderlyingPrice: underlying,
		Calls:           s.generateLegs(models.OptionCall, strikes, underlying, open),
		Puts:            s.generateLegs(models.OptionPut, strikes, underlying, open),
	}
	s.mu.Unlock()

	if err := s.simulateDelay(ctx); err != nil {
		return nil, err
	}
	return chain, nil
}

// generateLegs is called with the simulator lock held.
func (s *Simulator) generateLegs(typ models.OptionType, strikes []float64, underlying float64, open bool) []models.OptionLeg {
	legs := make([]models.OptionLeg, 0, len(strikes))
	for _, strike := range strikes {
		timeValue := s.rng.Float64()*20 + 5
		var intrinsic float64
		var otm bool
		if typ == models.OptionCall {
			intrinsic = underlying - strike
			otm = strike > underlying
		} else {
			intrinsic = strike - underlying
			otm = strike < underlying
		}
		if otm {
			timeValue *= 0.5
		}
		ltp := math.Max(0.1, intrinsic+timeValue)

		// LTP barely moves when the market is closed.
		jitter := 0.01
		if open {
			jitter = 0.1
		}
		ltp *= 1 + (s.rng.Float64()-0.5)*jitter

		deltaSign := 0.5
		if typ == models.OptionPut {
			deltaSign = -0.5
		}

		var oiChange int64
		if open {
			oiChange = int64((s.rng.Float64() - 0.5) * 20000)
		}

		legs = append(legs, models.OptionLeg{
			Strike:   strike,
			Type:     typ,
			LTP:      round2(ltp),
			OI:       100000 + s.rng.Int63n(150000),
			OIChange: oiChange,
			IV:       round2(12 + s.rng.Float64()*5),
			Delta:    round2(deltaSign + (s.rng.Float64()-0.5)*0.2),
			Theta:    round2(-(3 + s.rng.Float64()*4)),
		})
	}
	return legs
}

// FetchCandles returns the rolling candle window, appending at most one
// new bar per call. Missed bars are not back-filled; while the market is
// closed the latest bar is clamped to the last open-market price so no
// bar implies after-hours trading.
func (s *Simulator) FetchCandles(ctx context.Context, symbol models.IndexSymbol) ([]models.Candle, error) {
	s.mu.Lock()
	st, ok := s.states[symbol]
	if !ok {
		s.mu.Unlock()
		return nil, errs.NewDataError("candles", string(symbol), "unknown symbol", errs.ErrSymbolNotFound)
	}

	now := s.now()
	tf := s.timeframeDuration()

	if len(st.Candles) == 0 {
		p := st.Price
		st.appendCandle(models.Candle{
			Timestamp: now.Add(-tf),
			Open:      round2(p * 0.99),
			High:      round2(p * 1.01),
			Low:       round2(p * 0.98),
			Close:     p,
			Volume:    100000,
		})
	}

	last := &st.Candles[len(st.Candles)-1]
	expected := last.Timestamp.Add(tf)

	if IsOpenAt(now) {
		if !now.Before(expected) {
			open := last.Close
			closePrice := st.Price
			high := round2(math.Max(open, closePrice) + s.rng.Float64()*open*0.001)
			low := round2(math.Min(open, closePrice) - s.rng.Float64()*open*0.001)
			st.appendCandle(models.Candle{
				Timestamp: expected,
				Open:      open,
				High:      high,
				Low:       low,
				Close:     closePrice,
				Volume:    80000 + s.rng.Int63n(50000),
			})
		}
	} else if last.Close != st.LastMarketClosePrice {
		last.Close = st.LastMarketClosePrice
		last.High = math.Max(last.High, math.Max(last.Open, last.Close))
		last.Low = math.Min(last.Low, math.Min(last.Open, last.Close))
	}

	out := st.candlesCopy()
	s.mu.Unlock()

	if err := s.simulateDelay(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// rsiPeriod is the trailing window for the RSI computation.
const rsiPeriod = 14

// FetchTechnicalIndicators derives an indicator snapshot from the current
// symbol state. RSI and the moving averages are computed from the candle
// window; the remaining values are descriptive placeholders parameterized
// by price and market state, not real computations.
func (s *Simulator) FetchTechnicalIndicators(ctx context.Context, symbol models.IndexSymbol) (*models.TechnicalIndicators, error) {
	s.mu.Lock()
	st, ok := s.states[symbol]
	if !ok {
		s.mu.Unlock()
		return nil, errs.NewDataError("indicators", string(symbol), "unknown symbol", errs.ErrSymbolNotFound)
	}

	open := IsOpenAt(s.now())
	price := st.Price
	if !open {
		price = st.LastMarketClosePrice
	}

	supertrendValue := price * 1.005
	if open && s.rng.Float64() > 0.5 {
		supertrendValue = price * 0.995
	}
	direction := models.TrendDown
	if s.rng.Float64() > 0.5 {
		direction = models.TrendUp
	}

	vixRange := 2.0
	if open {
		vixRange = 5.0
	}

	macdLine := (price - st.PreviousClose*0.998) * 0.1
	macdSignal := (price - st.PreviousClose*0.999) * 0.08

	ind := &models.TechnicalIndicators{
		RSI: round2(indicators.TrailingRSI(st.Candles, rsiPeriod)),
		MACD: models.MACD{
			Line:      round2(macdLine),
			Signal:    round2(macdSignal),
			Histogram: round2(macdLine - macdSignal),
		},
		Supertrend: models.Supertrend{
			Value:     round2(supertrendValue),
			Direction: direction,
		},
		EMA9:   s.emaOrEstimate(st, 9, price, 0.998),
		EMA20:  s.emaOrEstimate(st, 20, price, 0.995),
		SMA50:  s.smaOrEstimate(st, 50, price, 0.99),
		SMA200: s.smaOrEstimate(st, 200, price, 0.98),
		PCR:    round2(0.8 + s.rng.Float64()*0.4),
		VIX:    round2(12 + s.rng.Float64()*vixRange),
	}
	s.mu.Unlock()

	if err := s.simulateDelay(ctx); err != nil {
		return nil, err
	}
	return ind, nil
}

// emaOrEstimate computes the EMA from the candle window, falling back to
// a single-step blend of the current price and the latest close when the
// window is too short.
func (s *Simulator) emaOrEstimate(st *SymbolState, period int, price, scale float64) float64 {
	if values, err := indicators.NewEMA(period).Calculate(st.Candles); err == nil {
		return round2(values[len(values)-1])
	}

	k := 2.0 / float64(period+1)
	lastClose := price * scale
	if len(st.Candles) > 0 {
		lastClose = st.Candles[len(st.Candles)-1].Close
	}
	return round2(price*(1-k) + lastClose*k)
}

// smaOrEstimate computes the SMA from the candle window, falling back to
// a price-scaled estimate when the window is too short.
func (s *Simulator) smaOrEstimate(st *SymbolState, period int, price, scale float64) float64 {
	if values, err := indicators.NewSMA(period).Calculate(st.Candles); err == nil {
		return round2(values[len(values)-1])
	}
	return round2(price * scale)
}

// FetchAvailableExpiryDates returns the four nearest upcoming expiry
// dates in ascending order. It always succeeds.
func (s *Simulator) FetchAvailableExpiryDates(ctx context.Context, symbol models.IndexSymbol) []time.Time {
	dates := upcomingExpiries(s.expirySeeds, s.now())
	// Best effort latency; the result does not depend on it.
	_ = s.simulateDelay(ctx)
	return dates
}

func (s *Simulator) timeframeDuration() time.Duration {
	if s.timeframe == "1min" {
		return time.Minute
	}
	return 5 * time.Minute
}

func (s *Simulator) retryConfig() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:   s.quoteRetries,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// simulateDelay imposes the configured artificial API latency.
func (s *Simulator) simulateDelay(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(s.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
