package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-desk/internal/advisor"
	"options-desk/internal/config"
	"options-desk/internal/logging"
	"options-desk/internal/market"
	"options-desk/internal/models"
	"options-desk/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-11"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Market  *market.Simulator
	Advisor *advisor.Advisor
	Store   store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// The advisory client doubles as the live quote oracle; without
	// credentials the simulator runs purely local.
	var llm advisor.LLMClient
	var oracle market.QuoteOracle
	if cfg.HasAdvisorCredentials() {
		client := advisor.NewOpenAIClient(cfg.Credentials.OpenAI.APIKey, cfg.Advisor.Model)
		llm = client
		oracle = advisor.NewOracle(client, logger)
		logger.Debug().Str("model", cfg.Advisor.Model).Msg("OpenAI LLM client initialized")
	}
	app.Advisor = advisor.New(llm, float32(cfg.Advisor.Temperature), logger)

	app.Market = market.NewSimulator(market.SimulatorConfig{
		Symbols:      cfg.Market.Symbols,
		Oracle:       oracle,
		Latency:      cfg.Market.SimulateLatency,
		Timeframe:    cfg.Market.Timeframe,
		ExpirySeeds:  cfg.Market.ExpirySeeds,
		QuoteRetries: cfg.Advisor.QuoteRetries,
		Logger:       logger,
	})

	dbPath := filepath.Join(config.DefaultConfigDir(), "desk.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, signal history will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "desk",
		Short: "Options Desk - simulated Indian index options dashboard",
		Long: `Options Desk is a dashboard engine for Indian index options (NIFTY 50, SENSEX).

It simulates quotes, option chains, candles, and technical indicators without a
market connection, optionally anchoring prices to live data through an AI
oracle, and generates trade advisories with an OpenAI-compatible model.

Simulated data and AI advisories are for education only, not financial advice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/options-desk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addMarketCommands(rootCmd, app)
	addSignalCommands(rootCmd, app)
	rootCmd.AddCommand(newWatchCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Options Desk v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}

			output.Bold("Market")
			output.Printf("  Timeframe:  %s\n", app.Config.Market.Timeframe)
			output.Printf("  Latency:    %s\n", app.Config.Market.SimulateLatency)
			for _, s := range app.Config.Market.Symbols {
				output.Printf("  Symbol:     %s (start %.2f, prev close %.2f)\n", s.Name, s.InitialPrice, s.PreviousClose)
			}
			output.Bold("Polling")
			output.Printf("  Interval:   %s\n", app.Config.Polling.Interval)
			output.Bold("Advisor")
			output.Printf("  Model:      %s\n", app.Config.Advisor.Model)
			output.Printf("  Configured: %v\n", app.Config.HasAdvisorCredentials())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

// resolveSymbol maps user input onto a configured index symbol. An empty
// argument selects the first configured symbol.
func (app *App) resolveSymbol(arg string) (models.IndexSymbol, error) {
	if arg == "" {
		return models.IndexSymbol(app.Config.Market.Symbols[0].Name), nil
	}

	normalized := strings.ToUpper(strings.Join(strings.Fields(arg), " "))
	for _, s := range app.Config.Market.Symbols {
		name := strings.ToUpper(s.Name)
		if normalized == name || normalized == strings.ReplaceAll(name, " ", "") {
			return models.IndexSymbol(s.Name), nil
		}
	}

	names := make([]string, 0, len(app.Config.Market.Symbols))
	for _, s := range app.Config.Market.Symbols {
		names = append(names, s.Name)
	}
	return "", fmt.Errorf("unknown symbol %q (available: %s)", arg, strings.Join(names, ", "))
}
