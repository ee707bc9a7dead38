package store

import (
	"context"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	errs "options-desk/internal/errors"
)

// signalRow is the flat CSV projection of a trade signal.
type signalRow struct {
	ID           string  `csv:"id"`
	Timestamp    string  `csv:"timestamp"`
	Instrument   string  `csv:"instrument"`
	Action       string  `csv:"action"`
	EntryPrice   float64 `csv:"entry_price"`
	TargetPrice  float64 `csv:"target_price"`
	StopLoss     float64 `csv:"stop_loss_price"`
	Status       string  `csv:"status"`
	Reasoning    string  `csv:"reasoning"`
	AIConfidence float64 `csv:"ai_confidence"`
}

// ExportSignalsCSV writes the signals matching the filter to w as CSV,
// newest first.
func ExportSignalsCSV(ctx context.Context, ds DataStore, filter SignalFilter, w io.Writer) error {
	signals, err := ds.ListSignals(ctx, filter)
	if err != nil {
		return errs.Wrap(err, "exporting signals")
	}

	rows := make([]signalRow, 0, len(signals))
	for _, s := range signals {
		rows = append(rows, signalRow{
			ID:           s.ID,
			Timestamp:    s.Timestamp.Format(time.RFC3339),
			Instrument:   s.Instrument,
			Action:       string(s.Action),
			EntryPrice:   s.EntryPrice,
			TargetPrice:  s.TargetPrice,
			StopLoss:     s.StopLoss,
			Status:       string(s.Status),
			Reasoning:    s.Reasoning,
			AIConfidence: s.AIConfidence,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return errs.Wrap(err, "writing csv")
	}
	return nil
}
