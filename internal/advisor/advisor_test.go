package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"options-desk/internal/models"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, prompt string, temperature float32) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func sampleRequest() SignalRequest {
	now := time.Date(2025, 6, 11, 11, 0, 0, 0, time.UTC)
	return SignalRequest{
		Quote: &models.IndexQuote{
			Symbol:        models.Nifty50,
			Price:         24793.00,
			Change:        125.50,
			PChange:       0.51,
			PreviousClose: 24667.50,
			LastUpdated:   now,
			Source:        models.SourceSimulated,
		},
		Indicators: &models.TechnicalIndicators{
			RSI:        56.2,
			MACD:       models.MACD{Line: 12.4, Signal: 10.1, Histogram: 2.3},
			Supertrend: models.Supertrend{Value: 24680.00, Direction: models.TrendUp},
			EMA9:       24780.00,
			EMA20:      24750.00,
			SMA50:      24545.07,
			SMA200:     24297.14,
			PCR:        1.05,
			VIX:        13.8,
		},
		Candles: []models.Candle{
			{Timestamp: now.Add(-10 * time.Minute), Open: 24760, High: 24790, Low: 24755, Close: 24785, Volume: 90000},
			{Timestamp: now.Add(-5 * time.Minute), Open: 24785, High: 24800, Low: 24780, Close: 24793, Volume: 95000},
		},
	}
}

func TestGenerateSignal_NoCredentials(t *testing.T) {
	a := New(nil, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionUnclear {
		t.Errorf("direction = %q, want Unclear", advice.Direction)
	}
	if advice.Reasoning == "" {
		t.Error("reasoning must not be empty")
	}
	if advice.HasSignal() {
		t.Error("no signal expected without a backend")
	}
}

func TestGenerateSignal_InsufficientInput(t *testing.T) {
	llm := &fakeLLM{reply: `{"marketDirectionPrediction":"Bullish","reasoning":"x"}`}
	a := New(llm, 0.3, zerolog.Nop())

	req := sampleRequest()
	req.Candles = nil

	advice := a.GenerateSignal(context.Background(), req)
	if advice.Direction != DirectionUnclear {
		t.Errorf("direction = %q, want Unclear", advice.Direction)
	}
	if llm.prompt != "" {
		t.Error("no network call expected for incomplete input")
	}
}

func TestGenerateSignal_RateLimited(t *testing.T) {
	llm := &fakeLLM{err: &openai.APIError{HTTPStatusCode: 429, Message: "rate limit"}}
	a := New(llm, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionError {
		t.Errorf("direction = %q, want Error", advice.Direction)
	}
	if !strings.Contains(advice.Reasoning, "busy") {
		t.Errorf("reasoning = %q, want busy message", advice.Reasoning)
	}
}

func TestGenerateSignal_InvalidKey(t *testing.T) {
	llm := &fakeLLM{err: &openai.APIError{HTTPStatusCode: 401, Message: "invalid key"}}
	a := New(llm, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionError {
		t.Errorf("direction = %q, want Error", advice.Direction)
	}
	if !strings.Contains(advice.Reasoning, "API key") {
		t.Errorf("reasoning = %q, want configuration message", advice.Reasoning)
	}
}

func TestGenerateSignal_TransportError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection reset")}
	a := New(llm, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionError {
		t.Errorf("direction = %q, want Error", advice.Direction)
	}
	if advice.Reasoning == "" {
		t.Error("reasoning must not be empty")
	}
}

func TestGenerateSignal_MalformedJSON(t *testing.T) {
	llm := &fakeLLM{reply: "not json at all"}
	a := New(llm, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionError {
		t.Errorf("direction = %q, want Error", advice.Direction)
	}
	if !strings.Contains(advice.Reasoning, "invalid response") {
		t.Errorf("reasoning = %q, want invalid-response message", advice.Reasoning)
	}
}

func TestGenerateSignal_MissingMandatoryFields(t *testing.T) {
	llm := &fakeLLM{reply: `{"instrument":"NIFTY 50 2025-06-12 24900 CE"}`}
	a := New(llm, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionError {
		t.Errorf("direction = %q, want Error", advice.Direction)
	}
	if advice.HasSignal() {
		t.Error("no signal expected when mandatory fields are missing")
	}
}

func TestGenerateSignal_NarrativeOnly(t *testing.T) {
	llm := &fakeLLM{reply: `{"marketDirectionPrediction":"Sideways","reasoning":"Conflicting indicators; no setup."}`}
	a := New(llm, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionSideways {
		t.Errorf("direction = %q, want Sideways", advice.Direction)
	}
	if advice.HasSignal() {
		t.Error("narrative-only reply must not carry a signal")
	}
	if advice.Reasoning != "Conflicting indicators; no setup." {
		t.Errorf("reasoning = %q", advice.Reasoning)
	}
}

func TestGenerateSignal_FullSignal(t *testing.T) {
	llm := &fakeLLM{reply: `{
		"marketDirectionPrediction": "Bullish",
		"reasoning": "Price above supertrend with positive MACD histogram.",
		"instrument": "NIFTY 50 2025-06-12 24900 CE",
		"action": "buy",
		"entryPrice": 120.5,
		"targetPrice": 160.0,
		"stopLossPrice": 100.0,
		"aiConfidence": 78
	}`}
	a := New(llm, 0.3, zerolog.Nop())

	advice := a.GenerateSignal(context.Background(), sampleRequest())
	if advice.Direction != DirectionBullish {
		t.Fatalf("direction = %q, want Bullish", advice.Direction)
	}
	if !advice.HasSignal() {
		t.Fatal("full reply must carry a signal")
	}

	s := advice.Signal
	if s.Status != models.SignalPending {
		t.Errorf("status = %q, want PENDING", s.Status)
	}
	if s.Action != models.ActionBuy {
		t.Errorf("action = %q, want BUY", s.Action)
	}
	if s.Instrument != "NIFTY 50 2025-06-12 24900 CE" {
		t.Errorf("instrument = %q", s.Instrument)
	}
	if s.EntryPrice != 120.5 || s.TargetPrice != 160.0 || s.StopLoss != 100.0 {
		t.Errorf("prices = %v / %v / %v", s.EntryPrice, s.TargetPrice, s.StopLoss)
	}
	if s.AIConfidence != 78 {
		t.Errorf("confidence = %v, want 78", s.AIConfidence)
	}
	if s.ID != "" || !s.Timestamp.IsZero() {
		t.Error("ID and timestamp are assigned by the caller, not the advisor")
	}
}

func TestGenerateSignal_PromptCoversSnapshot(t *testing.T) {
	llm := &fakeLLM{reply: `{"marketDirectionPrediction":"Bullish","reasoning":"x"}`}
	a := New(llm, 0.3, zerolog.Nop())

	req := sampleRequest()
	req.Chain = &models.OptionChain{
		Symbol: models.Nifty50,
		Expiry: time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Calls:  []models.OptionLeg{{Strike: 24900, Type: models.OptionCall, OI: 240000}},
		Puts:   []models.OptionLeg{{Strike: 24700, Type: models.OptionPut, OI: 230000}},
	}

	a.GenerateSignal(context.Background(), req)

	for _, want := range []string{
		"NIFTY 50",
		"24793.00",
		"RSI 14",
		"Supertrend",
		"Put-Call Ratio",
		"Max Call OI Strike:** 24900",
		"Max Put OI Strike:** 24700",
		"2025-06-12",
		"marketDirectionPrediction",
	} {
		if !strings.Contains(llm.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

// Property: a reply yields a trade signal exactly when the instrument,
// action, and all three prices are present; anything less is narrative.
func TestProperty_SignalRequiresAllTradeFields(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("signal emitted iff all trade fields present", prop.ForAll(
		func(hasInstrument, hasAction, hasEntry, hasTarget, hasStop bool, entry, target, stop float64) bool {
			reply := signalReply{
				MarketDirectionPrediction: "Bullish",
				Reasoning:                 "r",
			}
			if hasInstrument {
				reply.Instrument = "NIFTY 50 2025-06-12 24900 CE"
			}
			if hasAction {
				reply.Action = "BUY"
			}
			if hasEntry {
				reply.EntryPrice = &entry
			}
			if hasTarget {
				reply.TargetPrice = &target
			}
			if hasStop {
				reply.StopLossPrice = &stop
			}

			signal := reply.toSignal()
			complete := hasInstrument && hasAction && hasEntry && hasTarget && hasStop
			if complete != (signal != nil) {
				return false
			}
			if signal != nil && signal.Status != models.SignalPending {
				return false
			}
			return true
		},
		gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(),
		gen.Float64Range(1, 1000), gen.Float64Range(1, 1000), gen.Float64Range(1, 1000),
	))

	properties.TestingRun(t)
}
