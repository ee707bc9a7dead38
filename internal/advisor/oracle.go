package advisor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	errs "options-desk/internal/errors"
	"options-desk/internal/logging"
	"options-desk/internal/market"
	"options-desk/internal/models"
)

const quotePromptFormat = `What is the current live market price and the previous day's closing price for the %s index in India?
Respond in the following format, with only numbers after the colon:
PRICE: <price_as_number>
PREVIOUS_CLOSE: <previous_close_as_number>
Do not include any other text or explanations.
For example:
PRICE: 24850.55
PREVIOUS_CLOSE: 24790.10`

var (
	priceRe     = regexp.MustCompile(`PRICE:\s*([\d.,]+)`)
	prevCloseRe = regexp.MustCompile(`PREVIOUS_CLOSE:\s*([\d.,]+)`)
)

// Oracle answers live index quote lookups through the LLM. It satisfies
// market.QuoteOracle; any returned error sends the simulator down its
// local fallback path.
type Oracle struct {
	llm    LLMClient
	logger zerolog.Logger
}

// NewOracle creates a live quote oracle. A nil llm yields an oracle that
// always fails with ErrAdvisorUnavailable.
func NewOracle(llm LLMClient, logger zerolog.Logger) *Oracle {
	return &Oracle{llm: llm, logger: logger}
}

// FetchLiveQuote asks the LLM for the current and previous-close prices.
// Quote lookups always run at temperature 0; the reply must be the exact
// two-line PRICE / PREVIOUS_CLOSE format.
func (o *Oracle) FetchLiveQuote(ctx context.Context, symbol models.IndexSymbol) (market.LiveQuote, error) {
	if o.llm == nil {
		return market.LiveQuote{}, errs.ErrAdvisorUnavailable
	}

	prompt := fmt.Sprintf(quotePromptFormat, symbol)

	start := time.Now()
	text, err := o.llm.Complete(ctx, prompt, 0)
	logging.LogAPICall(o.logger, "live_quote", time.Since(start), err)
	if err != nil {
		return market.LiveQuote{}, errs.NewAdvisorError("live_quote", err)
	}

	quote, err := parseQuoteReply(text)
	if err != nil {
		o.logger.Warn().Str("symbol", string(symbol)).Str("reply", text).Msg("Unparseable live quote reply")
		return market.LiveQuote{}, errs.NewAdvisorError("live_quote", err)
	}
	return quote, nil
}

// parseQuoteReply extracts the price pair from the two-line reply format.
// Thousands separators are tolerated and stripped.
func parseQuoteReply(text string) (market.LiveQuote, error) {
	priceMatch := priceRe.FindStringSubmatch(text)
	closeMatch := prevCloseRe.FindStringSubmatch(text)
	if priceMatch == nil || closeMatch == nil {
		return market.LiveQuote{}, errs.ErrMalformedReply
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(priceMatch[1], ",", ""), 64)
	if err != nil {
		return market.LiveQuote{}, errs.ErrMalformedReply
	}
	prevClose, err := strconv.ParseFloat(strings.ReplaceAll(closeMatch[1], ",", ""), 64)
	if err != nil {
		return market.LiveQuote{}, errs.ErrMalformedReply
	}

	if price <= 0 || prevClose <= 0 {
		return market.LiveQuote{}, errs.ErrMalformedReply
	}
	return market.LiveQuote{Price: price, PreviousClose: prevClose}, nil
}
