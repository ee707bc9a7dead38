package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"options-desk/internal/advisor"
	"options-desk/internal/logging"
	"options-desk/internal/models"
	"options-desk/internal/store"
)

func addSignalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSignalCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
}

func newSignalCmd(app *App) *cobra.Command {
	var expiryFlag string

	cmd := &cobra.Command{
		Use:   "signal [symbol]",
		Short: "Generate an AI trade advisory",
		Long: `Gather the current market snapshot and ask the AI advisory client for a
market direction call and, when conditions warrant, a concrete option trade
signal. Generated signals are recorded in the local history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := app.resolveSymbol(argOrEmpty(args))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			output := NewOutput(cmd)

			quote, err := app.Market.FetchIndexQuote(ctx, symbol)
			if err != nil {
				return err
			}
			expiry, err := app.pickExpiry(cmd, symbol, expiryFlag)
			if err != nil {
				return err
			}
			chain, err := app.Market.FetchOptionChain(ctx, symbol, expiry)
			if err != nil {
				return err
			}
			candles, err := app.Market.FetchCandles(ctx, symbol)
			if err != nil {
				return err
			}
			indicators, err := app.Market.FetchTechnicalIndicators(ctx, symbol)
			if err != nil {
				return err
			}

			advice := app.Advisor.GenerateSignal(ctx, advisor.SignalRequest{
				Quote:      quote,
				Chain:      chain,
				Indicators: indicators,
				Candles:    candles,
			})

			if advice.HasSignal() {
				signal := advice.Signal
				signal.ID = fmt.Sprintf("SIG-%d", time.Now().UnixNano())
				signal.Timestamp = time.Now().UTC()
				signal.Status = models.SignalActive

				if app.Store != nil {
					if err := app.Store.SaveSignal(ctx, signal); err != nil {
						app.Logger.Warn().Err(err).Str("signal_id", signal.ID).Msg("Failed to persist signal")
					}
				}
				logging.LogSignal(app.Logger, signal.Instrument, string(signal.Action), advice.Direction, signal.AIConfidence)
			} else {
				logging.LogAdvisory(app.Logger, advice.Direction, advice.Reasoning)
			}

			if output.IsJSON() {
				return output.JSON(advice)
			}

			renderAdvice(output, symbol, advice)
			return nil
		},
	}

	cmd.Flags().StringVar(&expiryFlag, "expiry", "", "expiry date (YYYY-MM-DD, default: nearest)")
	return cmd
}

func renderAdvice(output *Output, symbol models.IndexSymbol, advice advisor.Advice) {
	output.Bold("%s advisory", symbol)

	switch advice.Direction {
	case advisor.DirectionBullish:
		output.Success("  Direction:   %s", advice.Direction)
	case advisor.DirectionBearish:
		output.Error("  Direction:   %s", advice.Direction)
	case advisor.DirectionError, advisor.DirectionUnclear:
		output.Warning("  Direction:   %s", advice.Direction)
	default:
		output.Printf("  Direction:   %s\n", advice.Direction)
	}
	output.Printf("  Reasoning:   %s\n", advice.Reasoning)

	if !advice.HasSignal() {
		output.Dim("\nNo trade signal generated.")
		return
	}

	signal := advice.Signal
	output.Bold("\nTrade signal %s", signal.ID)
	output.Printf("  Instrument:  %s\n", signal.Instrument)
	if signal.Action == models.ActionBuy {
		output.Success("  Action:      %s", signal.Action)
	} else {
		output.Error("  Action:      %s", signal.Action)
	}
	output.Printf("  Entry:       %.2f\n", signal.EntryPrice)
	output.Printf("  Target:      %.2f\n", signal.TargetPrice)
	output.Printf("  Stop loss:   %.2f\n", signal.StopLoss)
	if signal.AIConfidence > 0 {
		output.Printf("  Confidence:  %.0f%%\n", signal.AIConfidence)
	}
	output.Dim("  Status:      %s", signal.Status)
}

func newHistoryCmd(app *App) *cobra.Command {
	var (
		statusFlag string
		limit      int
		csvPath    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded trade signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("signal history is unavailable, store failed to initialize")
			}

			filter := store.SignalFilter{Limit: limit}
			if statusFlag != "" {
				filter.Status = models.SignalStatus(statusFlag)
			}

			ctx := cmd.Context()
			output := NewOutput(cmd)

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", csvPath, err)
				}
				defer f.Close()
				if err := store.ExportSignalsCSV(ctx, app.Store, filter, f); err != nil {
					return err
				}
				output.Success("Exported signal history to %s", csvPath)
				return nil
			}

			signals, err := app.Store.ListSignals(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(signals)
			}

			if len(signals) == 0 {
				output.Dim("No signals recorded.")
				return nil
			}

			output.Printf("%-24s %-16s %-32s %-5s %8s %8s %8s %-10s\n",
				"ID", "TIME", "INSTRUMENT", "SIDE", "ENTRY", "TARGET", "SL", "STATUS")
			for _, s := range signals {
				output.Printf("%-24s %-16s %-32s %-5s %8.2f %8.2f %8.2f %-10s\n",
					s.ID, s.Timestamp.Local().Format("01-02 15:04:05"),
					s.Instrument, s.Action, s.EntryPrice, s.TargetPrice, s.StopLoss, s.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (PENDING, ACTIVE, TARGET_HIT, SL_HIT, CLOSED)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of signals to show")
	cmd.Flags().StringVar(&csvPath, "csv", "", "export the filtered history to a CSV file")

	cmd.AddCommand(newHistoryStatusCmd(app))
	return cmd
}

func newHistoryStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <signal-id> <status>",
		Short: "Update the status of a recorded signal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("signal history is unavailable, store failed to initialize")
			}

			status := models.SignalStatus(args[1])
			switch status {
			case models.SignalPending, models.SignalActive, models.SignalTargetHit, models.SignalSLHit, models.SignalClosed:
			default:
				return fmt.Errorf("invalid status %q", args[1])
			}

			if err := app.Store.UpdateSignalStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}

			NewOutput(cmd).Success("Signal %s marked %s", args[0], status)
			return nil
		},
	}
}
