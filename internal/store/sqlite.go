package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	errs "options-desk/internal/errors"
	"options-desk/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trade signals produced by the advisory client
	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		instrument TEXT NOT NULL,
		action TEXT NOT NULL,
		entry_price REAL NOT NULL,
		target_price REAL NOT NULL,
		stop_loss_price REAL NOT NULL,
		status TEXT NOT NULL,
		reasoning TEXT,
		ai_confidence REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Candles table for historical OHLCV data
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status);
	CREATE INDEX IF NOT EXISTS idx_signals_timestamp ON signals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles(symbol, timeframe, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSignal inserts or replaces a trade signal.
func (s *SQLiteStore) SaveSignal(ctx context.Context, signal *models.TradeSignal) error {
	if signal.ID == "" {
		return errs.NewValidationError("id", signal.ID, "signal ID is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO signals
		(id, timestamp, instrument, action, entry_price, target_price, stop_loss_price, status, reasoning, ai_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		signal.ID, signal.Timestamp, signal.Instrument, string(signal.Action),
		signal.EntryPrice, signal.TargetPrice, signal.StopLoss,
		string(signal.Status), signal.Reasoning, signal.AIConfidence,
	)
	if err != nil {
		return errs.Wrap(err, "saving signal")
	}
	return nil
}

// GetSignal returns the signal with the given ID.
func (s *SQLiteStore) GetSignal(ctx context.Context, id string) (*models.TradeSignal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, instrument, action, entry_price, target_price, stop_loss_price, status, reasoning, ai_confidence
		FROM signals WHERE id = ?`, id)

	signal, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, errs.ErrSignalNotFound
	}
	if err != nil {
		return nil, errs.Wrap(err, "loading signal")
	}
	return signal, nil
}

// ListSignals returns signals matching the filter, newest first.
func (s *SQLiteStore) ListSignals(ctx context.Context, filter SignalFilter) ([]models.TradeSignal, error) {
	query := `
		SELECT id, timestamp, instrument, action, entry_price, target_price, stop_loss_price, status, reasoning, ai_confidence
		FROM signals`

	var conditions []string
	var args []interface{}

	if filter.Instrument != "" {
		conditions = append(conditions, "instrument = ?")
		args = append(args, filter.Instrument)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(err, "listing signals")
	}
	defer rows.Close()

	var signals []models.TradeSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, errs.Wrap(err, "scanning signal")
		}
		signals = append(signals, *signal)
	}
	return signals, rows.Err()
}

// UpdateSignalStatus transitions the signal's lifecycle state.
func (s *SQLiteStore) UpdateSignalStatus(ctx context.Context, id string, status models.SignalStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return errs.Wrap(err, "updating signal status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errs.Wrap(err, "updating signal status")
	}
	if affected == 0 {
		return errs.ErrSignalNotFound
	}
	return nil
}

// SaveCandles stores the candle window; existing bars for the same
// symbol, timeframe, and timestamp are replaced.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol models.IndexSymbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(err, "saving candles")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errs.Wrap(err, "saving candles")
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, string(symbol), timeframe, c.Timestamp,
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return errs.Wrap(err, "saving candle")
		}
	}

	return tx.Commit()
}

// GetCandles returns stored candles in ascending timestamp order. Zero
// from/to bounds are open-ended.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol models.IndexSymbol, timeframe string, from, to time.Time) ([]models.Candle, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM candles WHERE symbol = ? AND timeframe = ?`
	args := []interface{}{string(symbol), timeframe}

	if !from.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, to)
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(err, "loading candles")
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errs.Wrap(err, "scanning candle")
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*models.TradeSignal, error) {
	var signal models.TradeSignal
	var action, status string
	if err := row.Scan(&signal.ID, &signal.Timestamp, &signal.Instrument, &action,
		&signal.EntryPrice, &signal.TargetPrice, &signal.StopLoss,
		&status, &signal.Reasoning, &signal.AIConfidence); err != nil {
		return nil, err
	}
	signal.Action = models.TradeAction(action)
	signal.Status = models.SignalStatus(status)
	return &signal, nil
}
