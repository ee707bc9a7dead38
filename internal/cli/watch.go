package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"options-desk/internal/market"
	"options-desk/internal/poller"
)

func newWatchCmd(app *App) *cobra.Command {
	var (
		expiryFlag string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [symbol]",
		Short: "Continuously poll and display the market snapshot",
		Long:  "Poll the market on a fixed interval and print each snapshot until interrupted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := app.resolveSymbol(argOrEmpty(args))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := poller.Config{
				Interval:   app.Config.Polling.Interval,
				BufferSize: app.Config.Polling.BufferSize,
			}
			if interval > 0 {
				cfg.Interval = interval
			}

			p := poller.New(app.Market, symbol, cfg, app.Logger)
			if expiryFlag != "" {
				expiry, err := app.pickExpiry(cmd, symbol, expiryFlag)
				if err != nil {
					return err
				}
				p.SetExpiry(expiry)
			}

			sub := p.Subscribe()
			p.Start(ctx)
			defer p.Stop()

			output := NewOutput(cmd)
			if !output.IsJSON() {
				output.Info("Watching %s every %s, press Ctrl+C to stop", symbol, cfg.Interval)
			}

			for {
				select {
				case snap, ok := <-sub:
					if !ok {
						return nil
					}
					if app.Store != nil && snap.Err == nil && len(snap.Candles) > 0 {
						if err := app.Store.SaveCandles(ctx, snap.Symbol, app.Config.Market.Timeframe, snap.Candles); err != nil {
							app.Logger.Warn().Err(err).Msg("Failed to persist candle window")
						}
					}
					if output.IsJSON() {
						if err := output.JSON(snap); err != nil {
							return err
						}
						continue
					}
					renderSnapshot(output, snap)
				case <-ctx.Done():
					if !output.IsJSON() {
						output.Println()
						output.Dim("Stopped.")
					}
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&expiryFlag, "expiry", "", "expiry date (YYYY-MM-DD, default: nearest)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default: from config)")
	return cmd
}

func renderSnapshot(output *Output, snap poller.Snapshot) {
	output.Println()
	output.Dim("%s  [%s, refresh took %s]",
		snap.At.In(market.ISTLocation).Format("15:04:05"), snap.Status, snap.Took.Round(time.Millisecond))

	if snap.Err != nil {
		output.Error("Refresh failed: %v", snap.Err)
		return
	}

	renderQuote(output, snap.Quote, snap.Status)
	if snap.Indicators != nil {
		renderIndicators(output, snap.Symbol, snap.Indicators)
	}
	if snap.Chain != nil {
		if leg, ok := snap.Chain.MaxOICall(); ok {
			output.Dim("  Resistance (max call OI): %.0f", leg.Strike)
		}
		if leg, ok := snap.Chain.MaxOIPut(); ok {
			output.Dim("  Support (max put OI):     %.0f", leg.Strike)
		}
	}
}
