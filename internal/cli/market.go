package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"options-desk/internal/market"
	"options-desk/internal/models"
)

func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newCandlesCmd(app))
	rootCmd.AddCommand(newIndicatorsCmd(app))
	rootCmd.AddCommand(newExpiriesCmd(app))
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote [symbol]",
		Short: "Show the current index quote",
		Long:  "Fetch the current quote for an index. Uses the live oracle when configured, simulated data otherwise.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := app.resolveSymbol(argOrEmpty(args))
			if err != nil {
				return err
			}

			quote, err := app.Market.FetchIndexQuote(cmd.Context(), symbol)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(quote)
			}

			renderQuote(output, quote, app.Market.Status())
			return nil
		},
	}
}

func renderQuote(output *Output, quote *models.IndexQuote, status models.MarketStatus) {
	output.Bold("%s", quote.Symbol)
	output.Printf("  Price:       %.2f\n", quote.Price)
	output.Signed(quote.Change, "  Change:      %+.2f (%+.2f%%)", quote.Change, quote.PChange)
	output.Printf("  Prev close:  %.2f\n", quote.PreviousClose)
	output.Printf("  Market:      %s\n", status)
	if quote.Source == models.SourceLive {
		output.Info("  Source:      live")
	} else {
		output.Dim("  Source:      simulated")
		if quote.FallbackReason != "" {
			output.Warning("  Fallback:    %s", quote.FallbackReason)
		}
	}
	output.Dim("  Updated:     %s", quote.LastUpdated.In(market.ISTLocation).Format("15:04:05 MST"))
}

func newChainCmd(app *App) *cobra.Command {
	var expiryFlag string

	cmd := &cobra.Command{
		Use:   "chain [symbol]",
		Short: "Show the option chain",
		Long:  "Fetch the option chain for an index and expiry. Defaults to the nearest expiry.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := app.resolveSymbol(argOrEmpty(args))
			if err != nil {
				return err
			}

			expiry, err := app.pickExpiry(cmd, symbol, expiryFlag)
			if err != nil {
				return err
			}

			chain, err := app.Market.FetchOptionChain(cmd.Context(), symbol, expiry)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(chain)
			}

			renderChain(output, chain)
			return nil
		},
	}

	cmd.Flags().StringVar(&expiryFlag, "expiry", "", "expiry date (YYYY-MM-DD, default: nearest)")
	return cmd
}

func renderChain(output *Output, chain *models.OptionChain) {
	output.Bold("%s option chain, expiry %s", chain.Symbol, chain.Expiry.Format("2006-01-02"))
	output.Printf("Spot: %.2f\n\n", chain.UnderlyingPrice)

	output.Printf("%10s %10s %8s %10s | %8s | %10s %8s %10s %10s\n",
		"CALL OI", "CALL ΔOI", "CALL LTP", "CALL IV", "STRIKE", "PUT IV", "PUT LTP", "PUT ΔOI", "PUT OI")
	for i := range chain.Calls {
		call, put := chain.Calls[i], chain.Puts[i]
		output.Printf("%10d %+10d %8.2f %9.1f%% | %8.0f | %9.1f%% %8.2f %+10d %10d\n",
			call.OI, call.OIChange, call.LTP, call.IV,
			call.Strike,
			put.IV, put.LTP, put.OIChange, put.OI)
	}

	if leg, ok := chain.MaxOICall(); ok {
		output.Dim("\nMax call OI (resistance): %.0f", leg.Strike)
	}
	if leg, ok := chain.MaxOIPut(); ok {
		output.Dim("Max put OI (support):     %.0f", leg.Strike)
	}
}

func newCandlesCmd(app *App) *cobra.Command {
	var (
		limit  int
		stored bool
	)

	cmd := &cobra.Command{
		Use:   "candles [symbol]",
		Short: "Show the recent candle window",
		Long:  "Show the simulator's current candle window, or with --stored the candles persisted by watch mode.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := app.resolveSymbol(argOrEmpty(args))
			if err != nil {
				return err
			}

			var candles []models.Candle
			if stored {
				if app.Store == nil {
					return fmt.Errorf("candle history is unavailable, store failed to initialize")
				}
				candles, err = app.Store.GetCandles(cmd.Context(), symbol, app.Config.Market.Timeframe, time.Time{}, time.Time{})
			} else {
				candles, err = app.Market.FetchCandles(cmd.Context(), symbol)
			}
			if err != nil {
				return err
			}
			if limit > 0 && len(candles) > limit {
				candles = candles[len(candles)-limit:]
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(candles)
			}

			output.Bold("%s candles (%s)", symbol, app.Config.Market.Timeframe)
			output.Printf("%-9s %10s %10s %10s %10s %10s\n", "TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
			for _, c := range candles {
				output.Printf("%-9s %10.2f %10.2f %10.2f %10.2f %10d\n",
					c.Timestamp.In(market.ISTLocation).Format("15:04:05"),
					c.Open, c.High, c.Low, c.Close, c.Volume)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show only the most recent N candles")
	cmd.Flags().BoolVar(&stored, "stored", false, "read candles persisted by watch mode instead of the simulator")
	return cmd
}

func newIndicatorsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "indicators [symbol]",
		Short: "Show the technical indicator snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := app.resolveSymbol(argOrEmpty(args))
			if err != nil {
				return err
			}

			ind, err := app.Market.FetchTechnicalIndicators(cmd.Context(), symbol)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(ind)
			}

			renderIndicators(output, symbol, ind)
			return nil
		},
	}
}

func renderIndicators(output *Output, symbol models.IndexSymbol, ind *models.TechnicalIndicators) {
	output.Bold("%s indicators", symbol)
	output.Printf("  RSI (14):    %.2f\n", ind.RSI)
	output.Signed(ind.MACD.Histogram, "  MACD:        line %.2f  signal %.2f  hist %+.2f",
		ind.MACD.Line, ind.MACD.Signal, ind.MACD.Histogram)
	if ind.Supertrend.Direction == models.TrendUp {
		output.Success("  Supertrend:  %.2f (%s)", ind.Supertrend.Value, ind.Supertrend.Direction)
	} else {
		output.Error("  Supertrend:  %.2f (%s)", ind.Supertrend.Value, ind.Supertrend.Direction)
	}
	output.Printf("  EMA 9/20:    %.2f / %.2f\n", ind.EMA9, ind.EMA20)
	output.Printf("  SMA 50/200:  %.2f / %.2f\n", ind.SMA50, ind.SMA200)
	output.Printf("  PCR:         %.2f\n", ind.PCR)
	output.Printf("  India VIX:   %.2f\n", ind.VIX)
}

func newExpiriesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "expiries [symbol]",
		Short: "List available option expiry dates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := app.resolveSymbol(argOrEmpty(args))
			if err != nil {
				return err
			}

			expiries := app.Market.FetchAvailableExpiryDates(cmd.Context(), symbol)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(expiries)
			}

			output.Bold("%s expiries", symbol)
			for i, e := range expiries {
				label := e.Format("Mon 2006-01-02")
				if i == 0 {
					output.Info("  %s (nearest)", label)
				} else {
					output.Printf("  %s\n", label)
				}
			}
			return nil
		},
	}
}

// pickExpiry resolves the --expiry flag against the available expiry
// dates, defaulting to the nearest one.
func (app *App) pickExpiry(cmd *cobra.Command, symbol models.IndexSymbol, flag string) (time.Time, error) {
	expiries := app.Market.FetchAvailableExpiryDates(cmd.Context(), symbol)
	if flag == "" {
		return expiries[0], nil
	}

	want, err := time.ParseInLocation("2006-01-02", flag, market.ISTLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q, expected YYYY-MM-DD", flag)
	}
	for _, e := range expiries {
		if e.Year() == want.Year() && e.YearDay() == want.YearDay() {
			return e, nil
		}
	}

	available := make([]string, 0, len(expiries))
	for _, e := range expiries {
		available = append(available, e.Format("2006-01-02"))
	}
	return time.Time{}, fmt.Errorf("expiry %s not available (available: %v)", flag, available)
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
