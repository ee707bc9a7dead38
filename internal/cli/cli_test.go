package cli

import (
	"testing"

	"options-desk/internal/config"
	"options-desk/internal/models"
)

func testApp() *App {
	return &App{
		Config: &config.Config{
			Market: config.MarketConfig{Symbols: config.DefaultSymbols()},
		},
	}
}

func TestResolveSymbol(t *testing.T) {
	app := testApp()

	tests := []struct {
		arg     string
		want    models.IndexSymbol
		wantErr bool
	}{
		{arg: "", want: models.Nifty50},
		{arg: "NIFTY 50", want: models.Nifty50},
		{arg: "nifty 50", want: models.Nifty50},
		{arg: "NIFTY50", want: models.Nifty50},
		{arg: "nifty50", want: models.Nifty50},
		{arg: "sensex", want: models.Sensex},
		{arg: "SENSEX", want: models.Sensex},
		{arg: "banknifty", wantErr: true},
		{arg: "dow", wantErr: true},
	}

	for _, tt := range tests {
		got, err := app.resolveSymbol(tt.arg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("resolveSymbol(%q): expected error, got %v", tt.arg, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolveSymbol(%q): %v", tt.arg, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveSymbol(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}
