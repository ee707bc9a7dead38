package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"options-desk/internal/models"
)

// fakeSource counts reads and can hold each refresh for a fixed delay.
type fakeSource struct {
	delay time.Duration

	mu         sync.Mutex
	quoteCalls int
	concurrent int32
	maxSeen    int32
}

func (f *fakeSource) FetchIndexQuote(ctx context.Context, symbol models.IndexSymbol) (*models.IndexQuote, error) {
	cur := atomic.AddInt32(&f.concurrent, 1)
	defer atomic.AddInt32(&f.concurrent, -1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()

	return &models.IndexQuote{
		Symbol:        symbol,
		Price:         24793.00,
		PreviousClose: 24667.50,
		Source:        models.SourceSimulated,
	}, nil
}

func (f *fakeSource) FetchOptionChain(ctx context.Context, symbol models.IndexSymbol, expiry time.Time) (*models.OptionChain, error) {
	return &models.OptionChain{Symbol: symbol, Expiry: expiry}, nil
}

func (f *fakeSource) FetchCandles(ctx context.Context, symbol models.IndexSymbol) ([]models.Candle, error) {
	return []models.Candle{{Close: 24793.00}}, nil
}

func (f *fakeSource) FetchTechnicalIndicators(ctx context.Context, symbol models.IndexSymbol) (*models.TechnicalIndicators, error) {
	return &models.TechnicalIndicators{RSI: 50}, nil
}

func (f *fakeSource) FetchAvailableExpiryDates(ctx context.Context, symbol models.IndexSymbol) []time.Time {
	return []time.Time{
		time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeSource) Status() models.MarketStatus {
	return models.MarketOpen
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls
}

func TestPoller_DeliversSnapshots(t *testing.T) {
	source := &fakeSource{}
	p := New(source, models.Nifty50, Config{Interval: 10 * time.Millisecond, BufferSize: 16}, zerolog.Nop())

	sub := p.Subscribe()
	p.Start(context.Background())
	defer p.Stop()

	var snap Snapshot
	select {
	case snap = <-sub:
	case <-time.After(time.Second):
		t.Fatal("no snapshot within a second")
	}

	if snap.Symbol != models.Nifty50 {
		t.Errorf("symbol = %v", snap.Symbol)
	}
	if snap.Quote == nil || snap.Indicators == nil || snap.Chain == nil || len(snap.Candles) == 0 {
		t.Error("snapshot is incomplete")
	}
	if len(snap.Expiries) != 4 {
		t.Errorf("got %d expiries, want 4", len(snap.Expiries))
	}
	if snap.Err != nil {
		t.Errorf("unexpected error: %v", snap.Err)
	}
	// Chain defaults to the nearest expiry when none is selected.
	if !snap.Chain.Expiry.Equal(snap.Expiries[0]) {
		t.Errorf("chain expiry = %v, want nearest %v", snap.Chain.Expiry, snap.Expiries[0])
	}

	// The ticker keeps delivering.
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("no second snapshot within a second")
	}
}

func TestPoller_SkipsOverlappingTicks(t *testing.T) {
	source := &fakeSource{delay: 50 * time.Millisecond}
	p := New(source, models.Nifty50, Config{Interval: 5 * time.Millisecond, BufferSize: 16}, zerolog.Nop())

	p.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	p.Stop()

	if max := atomic.LoadInt32(&source.maxSeen); max > 1 {
		t.Errorf("observed %d concurrent refreshes for one symbol, want at most 1", max)
	}
	// With a 50ms refresh and 5ms ticks, most ticks must have been skipped.
	if calls := source.calls(); calls > 6 {
		t.Errorf("got %d refreshes in 200ms, overlapping ticks were not skipped", calls)
	}
}

func TestPoller_SlowSubscriberDoesNotBlock(t *testing.T) {
	source := &fakeSource{}
	p := New(source, models.Nifty50, Config{Interval: 5 * time.Millisecond, BufferSize: 1}, zerolog.Nop())

	// Never consumed.
	_ = p.Subscribe()

	p.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	p.Stop()

	if calls := source.calls(); calls < 5 {
		t.Errorf("got %d refreshes, poller appears blocked on a slow subscriber", calls)
	}
}

func TestPoller_StopClosesSubscribers(t *testing.T) {
	source := &fakeSource{}
	p := New(source, models.Nifty50, Config{Interval: 10 * time.Millisecond, BufferSize: 16}, zerolog.Nop())

	sub := p.Subscribe()
	p.Start(context.Background())

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("no snapshot before stop")
	}

	p.Stop()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub:
			if !ok {
				return // closed, done
			}
		case <-deadline:
			t.Fatal("subscriber channel not closed after Stop")
		}
	}
}

func TestPoller_SetSymbolTakesEffect(t *testing.T) {
	source := &fakeSource{}
	p := New(source, models.Nifty50, Config{Interval: 10 * time.Millisecond, BufferSize: 16}, zerolog.Nop())

	sub := p.Subscribe()
	p.Start(context.Background())
	defer p.Stop()

	p.SetSymbol(models.Sensex)

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-sub:
			if snap.Symbol == models.Sensex {
				return
			}
		case <-deadline:
			t.Fatal("never observed a snapshot for the new symbol")
		}
	}
}
