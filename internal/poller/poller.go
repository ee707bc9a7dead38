// Package poller drives periodic refreshes of the market snapshot and
// fans the results out to subscribers.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"options-desk/internal/models"
)

// MarketSource is the read surface the poller refreshes from. The
// market simulator satisfies it.
type MarketSource interface {
	FetchIndexQuote(ctx context.Context, symbol models.IndexSymbol) (*models.IndexQuote, error)
	FetchOptionChain(ctx context.Context, symbol models.IndexSymbol, expiry time.Time) (*models.OptionChain, error)
	FetchCandles(ctx context.Context, symbol models.IndexSymbol) ([]models.Candle, error)
	FetchTechnicalIndicators(ctx context.Context, symbol models.IndexSymbol) (*models.TechnicalIndicators, error)
	FetchAvailableExpiryDates(ctx context.Context, symbol models.IndexSymbol) []time.Time
	Status() models.MarketStatus
}

// Snapshot is one complete refresh for a symbol. Err is set when a read
// failed; the fields gathered before the failure are still populated.
type Snapshot struct {
	Symbol     models.IndexSymbol
	Status     models.MarketStatus
	Quote      *models.IndexQuote
	Chain      *models.OptionChain
	Candles    []models.Candle
	Indicators *models.TechnicalIndicators
	Expiries   []time.Time
	At         time.Time
	Took       time.Duration
	Err        error
}

// Config holds poller configuration.
type Config struct {
	// Interval between refreshes.
	Interval time.Duration
	// BufferSize is each subscriber's channel buffer.
	BufferSize int
}

// DefaultConfig returns the default poller configuration.
func DefaultConfig() Config {
	return Config{
		Interval:   30 * time.Second,
		BufferSize: 16,
	}
}

// Poller refreshes the market snapshot for the selected symbol on a
// fixed interval. A tick is skipped when the previous refresh for that
// symbol has not finished, so slow reads never stack up.
type Poller struct {
	source MarketSource
	cfg    Config
	logger zerolog.Logger

	mu          sync.Mutex
	symbol      models.IndexSymbol
	expiry      time.Time
	subscribers []chan Snapshot
	inFlight    map[models.IndexSymbol]bool
	started     bool
	stopped     bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a poller for the given symbol.
func New(source MarketSource, symbol models.IndexSymbol, cfg Config, logger zerolog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Poller{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		symbol:   symbol,
		inFlight: make(map[models.IndexSymbol]bool),
		done:     make(chan struct{}),
	}
}

// Subscribe registers a snapshot channel. Snapshots are dropped for
// subscribers that fall behind their buffer. The channel is closed by
// Stop.
func (p *Poller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, p.cfg.BufferSize)
	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.mu.Unlock()
	return ch
}

// SetSymbol switches the polled symbol; the change takes effect on the
// next tick.
func (p *Poller) SetSymbol(symbol models.IndexSymbol) {
	p.mu.Lock()
	p.symbol = symbol
	p.mu.Unlock()
}

// SetExpiry switches the polled option chain expiry.
func (p *Poller) SetExpiry(expiry time.Time) {
	p.mu.Lock()
	p.expiry = expiry
	p.mu.Unlock()
}

// Start begins polling. The first refresh runs immediately.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.dispatch(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.dispatch(ctx)
			case <-p.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop tears down the ticker and closes all subscriber channels.
// A refresh already in flight finishes but its snapshot is dropped.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()

	p.mu.Lock()
	for _, ch := range p.subscribers {
		close(ch)
	}
	p.subscribers = nil
	p.mu.Unlock()
}

// dispatch starts one refresh unless the symbol already has one in
// flight.
func (p *Poller) dispatch(ctx context.Context) {
	p.mu.Lock()
	symbol := p.symbol
	expiry := p.expiry
	if p.inFlight[symbol] {
		p.mu.Unlock()
		p.logger.Debug().Str("symbol", string(symbol)).Msg("Skipping tick, refresh still in flight")
		return
	}
	p.inFlight[symbol] = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			delete(p.inFlight, symbol)
			p.mu.Unlock()
		}()
		p.publish(p.refresh(ctx, symbol, expiry))
	}()
}

// refresh gathers one full snapshot.
func (p *Poller) refresh(ctx context.Context, symbol models.IndexSymbol, expiry time.Time) Snapshot {
	start := time.Now()
	snap := Snapshot{
		Symbol: symbol,
		Status: p.source.Status(),
		At:     start,
	}

	snap.Expiries = p.source.FetchAvailableExpiryDates(ctx, symbol)
	if expiry.IsZero() && len(snap.Expiries) > 0 {
		expiry = snap.Expiries[0]
	}

	quote, err := p.source.FetchIndexQuote(ctx, symbol)
	if err != nil {
		snap.Err = err
		snap.Took = time.Since(start)
		return snap
	}
	snap.Quote = quote

	if snap.Chain, err = p.source.FetchOptionChain(ctx, symbol, expiry); err != nil {
		snap.Err = err
		snap.Took = time.Since(start)
		return snap
	}
	if snap.Candles, err = p.source.FetchCandles(ctx, symbol); err != nil {
		snap.Err = err
		snap.Took = time.Since(start)
		return snap
	}
	if snap.Indicators, err = p.source.FetchTechnicalIndicators(ctx, symbol); err != nil {
		snap.Err = err
	}

	snap.Took = time.Since(start)
	return snap
}

// publish fans a snapshot out to all subscribers without blocking.
func (p *Poller) publish(snap Snapshot) {
	select {
	case <-p.done:
		// Stopped while the refresh was in flight.
		return
	default:
	}

	p.mu.Lock()
	subscribers := make([]chan Snapshot, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- snap:
		default:
			p.logger.Debug().Str("symbol", string(snap.Symbol)).Msg("Dropping snapshot for slow subscriber")
		}
	}
}
