// Package config provides configuration management for the options dashboard engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Market      MarketConfig  `mapstructure:"market"`
	Polling     PollingConfig `mapstructure:"polling"`
	Advisor     AdvisorConfig `mapstructure:"advisor"`
	UI          UIConfig      `mapstructure:"ui"`
	Credentials Credentials   `mapstructure:"-"` // Loaded separately
}

// MarketConfig holds market simulation configuration.
type MarketConfig struct {
	Timeframe       string          `mapstructure:"timeframe"`        // "1min", "5min"
	SimulateLatency time.Duration   `mapstructure:"simulate_latency"` // artificial API latency
	ExpirySeeds     []string        `mapstructure:"expiry_seeds"`     // YYYY-MM-DD candidate expiries
	Symbols         []SymbolProfile `mapstructure:"symbols"`
}

// SymbolProfile holds the simulation parameters for one index symbol.
type SymbolProfile struct {
	Name           string  `mapstructure:"name"`
	InitialPrice   float64 `mapstructure:"initial_price"`
	PreviousClose  float64 `mapstructure:"previous_close"`
	StrikeStep     float64 `mapstructure:"strike_step"`     // central strike rounding
	StrikeSpacing  float64 `mapstructure:"strike_spacing"`  // distance between strikes
	MovementFactor float64 `mapstructure:"movement_factor"` // per-poll price drift scale
}

// PollingConfig holds polling configuration for watch mode.
type PollingConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	BufferSize int           `mapstructure:"buffer_size"`
}

// AdvisorConfig holds AI advisory configuration.
type AdvisorConfig struct {
	Model        string  `mapstructure:"model"`
	Temperature  float64 `mapstructure:"temperature"`
	QuoteRetries int     `mapstructure:"quote_retries"`
}

// UIConfig holds CLI output configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-desk"
	}
	return filepath.Join(home, ".config", "options-desk")
}

// DefaultSymbols returns the built-in symbol profiles, used when the config
// file does not declare any. The initial numbers match the last session the
// simulator was calibrated against.
func DefaultSymbols() []SymbolProfile {
	return []SymbolProfile{
		{
			Name:           "NIFTY 50",
			InitialPrice:   24793.00,
			PreviousClose:  24667.50,
			StrikeStep:     50,
			StrikeSpacing:  100,
			MovementFactor: 0.0003,
		},
		{
			Name:           "SENSEX",
			InitialPrice:   81361.00,
			PreviousClose:  81150.70,
			StrikeStep:     100,
			StrikeSpacing:  200,
			MovementFactor: 0.00025,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("market.timeframe", "5min")
	v.SetDefault("market.simulate_latency", 300*time.Millisecond)
	v.SetDefault("polling.interval", 30*time.Second)
	v.SetDefault("polling.buffer_size", 16)
	v.SetDefault("advisor.model", "gpt-4o-mini")
	v.SetDefault("advisor.temperature", 0.3)
	v.SetDefault("advisor.quote_retries", 1)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, write a template and continue on defaults
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("DESK_ADVISOR_MODEL"); v != "" {
		cfg.Advisor.Model = v
	}
	if v := os.Getenv("DESK_TIMEFRAME"); v != "" {
		cfg.Market.Timeframe = v
	}
}

func applyDefaults(cfg *Config) {
	if len(cfg.Market.Symbols) == 0 {
		cfg.Market.Symbols = DefaultSymbols()
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Market.Timeframe != "1min" && c.Market.Timeframe != "5min" {
		return fmt.Errorf("invalid timeframe: %s (must be '1min' or '5min')", c.Market.Timeframe)
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}
	if c.Advisor.Temperature < 0 || c.Advisor.Temperature > 2 {
		return fmt.Errorf("advisor temperature must be between 0 and 2")
	}
	for _, s := range c.Market.Symbols {
		if s.Name == "" {
			return fmt.Errorf("symbol profile missing name")
		}
		if s.InitialPrice <= 0 || s.PreviousClose <= 0 {
			return fmt.Errorf("symbol %s: prices must be positive", s.Name)
		}
		if s.StrikeStep <= 0 || s.StrikeSpacing <= 0 {
			return fmt.Errorf("symbol %s: strike step and spacing must be positive", s.Name)
		}
	}
	return nil
}

// HasAdvisorCredentials returns true if an API key for the advisory
// endpoint is configured.
func (c *Config) HasAdvisorCredentials() bool {
	return c.Credentials.OpenAI.APIKey != ""
}

// Profile returns the symbol profile for the given name.
func (c *Config) Profile(name string) (SymbolProfile, bool) {
	for _, s := range c.Market.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return SymbolProfile{}, false
}
