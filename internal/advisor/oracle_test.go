package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	errs "options-desk/internal/errors"
	"options-desk/internal/models"
)

func TestParseQuoteReply(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantPrice float64
		wantPrev  float64
		wantErr   bool
	}{
		{
			name:      "exact format",
			reply:     "PRICE: 24850.55\nPREVIOUS_CLOSE: 24790.10",
			wantPrice: 24850.55,
			wantPrev:  24790.10,
		},
		{
			name:      "thousands separators",
			reply:     "PRICE: 24,850.55\nPREVIOUS_CLOSE: 24,790.10",
			wantPrice: 24850.55,
			wantPrev:  24790.10,
		},
		{
			name:      "surrounding chatter tolerated",
			reply:     "Here you go:\nPRICE: 81361.00\nPREVIOUS_CLOSE: 81150.70\nHope that helps!",
			wantPrice: 81361.00,
			wantPrev:  81150.70,
		},
		{
			name:    "missing previous close",
			reply:   "PRICE: 24850.55",
			wantErr: true,
		},
		{
			name:    "no numbers",
			reply:   "I cannot provide live market data.",
			wantErr: true,
		},
		{
			name:    "empty reply",
			reply:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuoteReply(tt.reply)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrMalformedReply) {
					t.Errorf("err = %v, want ErrMalformedReply", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQuoteReply: %v", err)
			}
			if got.Price != tt.wantPrice || got.PreviousClose != tt.wantPrev {
				t.Errorf("got %v / %v, want %v / %v", got.Price, got.PreviousClose, tt.wantPrice, tt.wantPrev)
			}
		})
	}
}

func TestFetchLiveQuote_NoBackend(t *testing.T) {
	o := NewOracle(nil, zerolog.Nop())

	_, err := o.FetchLiveQuote(context.Background(), models.Nifty50)
	if !errors.Is(err, errs.ErrAdvisorUnavailable) {
		t.Errorf("err = %v, want ErrAdvisorUnavailable", err)
	}
}

func TestFetchLiveQuote_TransportError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection reset")}
	o := NewOracle(llm, zerolog.Nop())

	_, err := o.FetchLiveQuote(context.Background(), models.Nifty50)
	if err == nil {
		t.Fatal("expected error")
	}
	var advErr *errs.AdvisorError
	if !errs.As(err, &advErr) {
		t.Errorf("err = %T, want *AdvisorError", err)
	}
}

func TestFetchLiveQuote_Success(t *testing.T) {
	llm := &fakeLLM{reply: "PRICE: 24850.55\nPREVIOUS_CLOSE: 24790.10"}
	o := NewOracle(llm, zerolog.Nop())

	quote, err := o.FetchLiveQuote(context.Background(), models.Nifty50)
	if err != nil {
		t.Fatalf("FetchLiveQuote: %v", err)
	}
	if quote.Price != 24850.55 || quote.PreviousClose != 24790.10 {
		t.Errorf("quote = %+v", quote)
	}
	if !strings.Contains(llm.prompt, "NIFTY 50") {
		t.Error("prompt does not name the symbol")
	}
	if !strings.Contains(llm.prompt, "PRICE: <price_as_number>") {
		t.Error("prompt does not pin the reply format")
	}
}

func TestFetchLiveQuote_MalformedReply(t *testing.T) {
	llm := &fakeLLM{reply: "The NIFTY 50 is doing great today!"}
	o := NewOracle(llm, zerolog.Nop())

	_, err := o.FetchLiveQuote(context.Background(), models.Nifty50)
	if !errors.Is(err, errs.ErrMalformedReply) {
		t.Errorf("err = %v, want ErrMalformedReply", err)
	}
}
