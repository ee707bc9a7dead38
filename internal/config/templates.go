package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Options Desk Configuration

[market]
# Candle timeframe: "1min" or "5min"
timeframe = "5min"
# Artificial latency applied to simulated reads (e.g., "300ms")
simulate_latency = "300ms"
# Candidate expiry dates (YYYY-MM-DD); missing weekly expiries are
# synthesized forward from the last entry
expiry_seeds = []

# Symbol profiles; remove this section to use the built-in defaults.
[[market.symbols]]
name = "NIFTY 50"
initial_price = 24793.00
previous_close = 24667.50
strike_step = 50
strike_spacing = 100
movement_factor = 0.0003

[[market.symbols]]
name = "SENSEX"
initial_price = 81361.00
previous_close = 81150.70
strike_step = 100
strike_spacing = 200
movement_factor = 0.00025

[polling]
# Refresh interval in watch mode (e.g., "30s")
interval = "30s"
# Snapshot channel buffer size
buffer_size = 16

[advisor]
# Model used for signal generation and live-quote lookups
model = "gpt-4o-mini"
# Sampling temperature for signal generation (quotes always use 0)
temperature = 0.3
# Retry attempts for the live-quote oracle before falling back
quote_retries = 1

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
`

const credentialsTemplate = `# Options Desk Credentials
# Keep this file private (chmod 600).

[openai]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
