package advisor

import (
	"fmt"
	"strings"

	"options-desk/internal/models"
)

// SignalRequest carries the market snapshot the advisory prompt is built
// from. Chain is optional; everything else is required.
type SignalRequest struct {
	Quote      *models.IndexQuote
	Chain      *models.OptionChain
	Indicators *models.TechnicalIndicators
	Candles    []models.Candle
}

func (r SignalRequest) validate() error {
	if r.Quote == nil || r.Indicators == nil || len(r.Candles) == 0 {
		return fmt.Errorf("need a quote, indicators, and at least one candle")
	}
	return nil
}

// promptCandleCount is how many of the most recent bars the prompt shows.
const promptCandleCount = 5

// constructPrompt renders the analysis prompt from the market snapshot.
func constructPrompt(req SignalRequest) string {
	quote := req.Quote
	ind := req.Indicators

	var b strings.Builder

	fmt.Fprintf(&b, `You are an expert options trading signal generator for the Indian stock market, focusing on %s.
Your analysis is for educational purposes only and not financial advice.
Carefully analyze the following comprehensive market data to determine the likely market direction and, if a high-probability setup exists, provide a specific option trade recommendation.

**1. Current Market Status (%s)**
- **Live Spot Price:** %.2f
- **Day's Change:** %.2f (%.2f%%)
- **Volatility (India VIX):** %.2f (Higher VIX suggests more volatility and higher option premiums)

`, quote.Symbol, quote.Symbol, quote.Price, quote.Change, quote.PChange, ind.VIX)

	fmt.Fprintf(&b, `**2. Key Technical Indicators**
- **Momentum (RSI 14):** %.2f (Above 70 is overbought, below 30 is oversold)
- **Trend/Momentum (MACD):** Line: %.2f, Signal: %.2f, Histogram: %.2f (Positive histogram suggests bullish momentum, negative suggests bearish)
- **Trend (Supertrend):** %s signal at %.2f (Price above value is bullish, below is bearish)
- **Moving Averages:**
  - EMA 9: %.2f
  - EMA 20: %.2f
  - SMA 50: %.2f
  - SMA 200: %.2f

`, ind.RSI, ind.MACD.Line, ind.MACD.Signal, ind.MACD.Histogram,
		ind.Supertrend.Direction, ind.Supertrend.Value,
		ind.EMA9, ind.EMA20, ind.SMA50, ind.SMA200)

	b.WriteString("**3. Recent Price Action (Candlesticks, most recent last)**\n")
	candles := req.Candles
	if len(candles) > promptCandleCount {
		candles = candles[len(candles)-promptCandleCount:]
	}
	for _, c := range candles {
		fmt.Fprintf(&b, "- Time: %s, O: %.2f, H: %.2f, L: %.2f, C: %.2f\n",
			c.Timestamp.Format("15:04:05"), c.Open, c.High, c.Low, c.Close)
	}
	b.WriteString("(Analyze the candlestick data for patterns like Doji, Hammer, Engulfing, etc., and mention them in your reasoning. These patterns are critical for short-term price direction.)\n\n")

	fmt.Fprintf(&b, `**4. Options Market Sentiment**
- **Put-Call Ratio (PCR):** %.2f (Above 1 can be bullish, below 0.7 can be bearish)
`, ind.PCR)

	expiryHint := "YYYY-MM-DD"
	if req.Chain != nil {
		expiryHint = req.Chain.Expiry.Format("2006-01-02")
		if call, ok := req.Chain.MaxOICall(); ok {
			fmt.Fprintf(&b, "- **Max Call OI Strike:** %.0f (Potential Resistance)\n", call.Strike)
		}
		if put, ok := req.Chain.MaxOIPut(); ok {
			fmt.Fprintf(&b, "- **Max Put OI Strike:** %.0f (Potential Support)\n", put.Strike)
		}
	}

	fmt.Fprintf(&b, `
**5. Analysis Guidance**
Synthesize all data points. A bullish signal is stronger if the price is above the Supertrend, the MACD histogram is positive, the RSI is rising (but not overbought), and the price is bouncing off a key moving average or a max Put OI support level. A bearish signal is the opposite. Look for confirmations across different categories of indicators. Give significant weight to recent candlestick patterns as they indicate immediate market psychology.

**6. Your Task:**
Based on a holistic analysis of all the data provided (price action, indicators, and option sentiment):
1.  **Market Direction Prediction:** Conclude with "Bullish", "Bearish", "Sideways", or "Volatile".
2.  **Reasoning:** Provide a concise, step-by-step reasoning. Explain HOW the indicators, candle patterns, and price action support your prediction.
3.  **Trade Signal (Optional):** If, and ONLY if, a high-probability trade setup is identified, recommend a specific option trade.
    -   Action must be 'BUY'.
    -   Instrument name must be precise (e.g., "%s %s 24900 CE").
    -   Provide a clear Entry Price, Target Price, and Stop Loss Price.
4.  **Confidence Score:** If a trade is recommended, provide a confidence score (0-100) based on how many factors align.

If no clear signal exists, state that and explain why.
Respond with a single JSON object with these keys:
- "marketDirectionPrediction" (string, required): "Bullish", "Bearish", "Sideways", "Volatile", or "Unclear".
- "reasoning" (string, required): the trade setup logic, or the reason for no signal.
- "instrument" (string, optional): the option instrument; only when a trade is recommended.
- "action" (string, optional): "BUY" or "SELL"; only when a trade is recommended.
- "entryPrice", "targetPrice", "stopLossPrice" (numbers, optional): premium levels; only when a trade is recommended.
- "aiConfidence" (number, optional): confidence from 0 to 100; only when a trade is recommended.
`, quote.Symbol, expiryHint)

	return b.String()
}
