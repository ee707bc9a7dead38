package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	errs "options-desk/internal/errors"
	"options-desk/internal/logging"
	"options-desk/internal/models"
)

// Well-known direction labels. The model is asked for the first four;
// Unclear and Error mark degraded advisory states.
const (
	DirectionBullish  = "Bullish"
	DirectionBearish  = "Bearish"
	DirectionSideways = "Sideways"
	DirectionVolatile = "Volatile"
	DirectionUnclear  = "Unclear"
	DirectionError    = "Error"
)

// Advice is the advisory client's reply. It is always renderable:
// Direction and Reasoning are never empty, and Signal is non-nil only
// when the model returned a complete trade recommendation.
type Advice struct {
	Direction string              `json:"marketDirectionPrediction"`
	Reasoning string              `json:"reasoning"`
	Signal    *models.TradeSignal `json:"signal,omitempty"`
}

// HasSignal reports whether the advice carries a full trade signal.
func (a Advice) HasSignal() bool {
	return a.Signal != nil
}

// signalReply mirrors the JSON object the model is asked to produce.
// The numeric fields are pointers so an absent price can be told apart
// from an explicit zero.
type signalReply struct {
	MarketDirectionPrediction string   `json:"marketDirectionPrediction"`
	Reasoning                 string   `json:"reasoning"`
	Instrument                string   `json:"instrument"`
	Action                    string   `json:"action"`
	EntryPrice                *float64 `json:"entryPrice"`
	TargetPrice               *float64 `json:"targetPrice"`
	StopLossPrice             *float64 `json:"stopLossPrice"`
	AIConfidence              *float64 `json:"aiConfidence"`
}

// Advisor turns market snapshots into trade advisories.
type Advisor struct {
	llm         LLMClient
	temperature float32
	logger      zerolog.Logger
}

// New creates an advisor. A nil llm produces an advisor that reports
// itself unavailable instead of failing.
func New(llm LLMClient, temperature float32, logger zerolog.Logger) *Advisor {
	return &Advisor{
		llm:         llm,
		temperature: temperature,
		logger:      logger,
	}
}

// Available reports whether an LLM backend is configured.
func (a *Advisor) Available() bool {
	return a.llm != nil
}

// GenerateSignal asks the model for a market read and an optional trade
// recommendation. It never returns an error: every failure mode folds
// into a renderable Advice whose Reasoning explains what went wrong.
// Full signals come back with status PENDING; the caller assigns the ID
// and timestamp and promotes the signal to ACTIVE.
func (a *Advisor) GenerateSignal(ctx context.Context, req SignalRequest) Advice {
	if a.llm == nil {
		return Advice{
			Direction: DirectionUnclear,
			Reasoning: "AI advisory not available (API key missing). No signal generated.",
		}
	}

	if err := req.validate(); err != nil {
		return Advice{
			Direction: DirectionUnclear,
			Reasoning: fmt.Sprintf("Cannot generate a signal: %v.", err),
		}
	}

	prompt := constructPrompt(req)

	start := time.Now()
	raw, err := a.llm.CompleteJSON(ctx, prompt, a.temperature)
	logging.LogAPICall(a.logger, "generate_signal", time.Since(start), err)
	if err != nil {
		return a.adviceFromError(err)
	}

	var reply signalReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &reply); err != nil {
		a.logger.Warn().Err(err).Str("reply", raw).Msg("Advisor reply is not valid JSON")
		return Advice{
			Direction: DirectionError,
			Reasoning: "Received an invalid response from the AI. Please try again.",
		}
	}

	if reply.MarketDirectionPrediction == "" || reply.Reasoning == "" {
		a.logger.Warn().Str("reply", raw).Msg("Advisor reply missing mandatory fields")
		return Advice{
			Direction: DirectionError,
			Reasoning: fmt.Sprintf("Failed to get AI signal: %v.", errs.ErrMissingFields),
		}
	}

	advice := Advice{
		Direction: reply.MarketDirectionPrediction,
		Reasoning: reply.Reasoning,
	}

	if signal := reply.toSignal(); signal != nil {
		advice.Signal = signal
		logging.LogSignal(a.logger, signal.Instrument, string(signal.Action), advice.Direction, signal.AIConfidence)
	} else {
		logging.LogAdvisory(a.logger, advice.Direction, advice.Reasoning)
	}
	return advice
}

// toSignal builds a PENDING trade signal when the reply names an
// instrument, an action, and all three premium levels; otherwise the
// reply is narrative-only and nil is returned.
func (r signalReply) toSignal() *models.TradeSignal {
	if r.Instrument == "" || r.Action == "" ||
		r.EntryPrice == nil || r.TargetPrice == nil || r.StopLossPrice == nil {
		return nil
	}

	action := models.ActionSell
	if strings.EqualFold(r.Action, "BUY") {
		action = models.ActionBuy
	}

	signal := &models.TradeSignal{
		Instrument:  r.Instrument,
		Action:      action,
		EntryPrice:  *r.EntryPrice,
		TargetPrice: *r.TargetPrice,
		StopLoss:    *r.StopLossPrice,
		Status:      models.SignalPending,
		Reasoning:   r.Reasoning,
	}
	if r.AIConfidence != nil {
		signal.AIConfidence = *r.AIConfidence
	}
	return signal
}

// adviceFromError maps transport failures onto user-facing advisories.
func (a *Advisor) adviceFromError(err error) Advice {
	var apiErr *openai.APIError
	if errs.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return Advice{
				Direction: DirectionError,
				Reasoning: "AI service is currently busy. Please try again in a moment.",
			}
		case http.StatusUnauthorized:
			return Advice{
				Direction: DirectionError,
				Reasoning: "AI service configuration error. API key may be invalid.",
			}
		}
	}
	return Advice{
		Direction: DirectionError,
		Reasoning: fmt.Sprintf("Failed to get AI signal: %v.", err),
	}
}
