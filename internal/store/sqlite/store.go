// Package sqlite persists daily bars in a local SQLite database. The store
// acts as the historical feed consulted before synthesis and as the target of
// backfill runs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"market-engine/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the bar store.
type Config struct {
	DBPath string // path to the SQLite database file, e.g. "data/bars.db"
}

// Store is a SQLite-backed model.BarStore.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database in WAL mode and applies the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// Single writer; readers share the same connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("[sqlite] opened bar store", "path", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			ticker TEXT    NOT NULL,
			day    INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (ticker, day)
		);
	`)
	return err
}

// WriteSeries upserts every bar of s in a single transaction.
func (s *Store) WriteSeries(ctx context.Context, series model.PriceSeries) error {
	if series.Empty() {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_bars (ticker, day, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.ExecContext(ctx, series.Ticker, model.Day(p.Date).Unix(), p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s %s: %w", series.Ticker, p.Date.Format(model.DateLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}

	slog.Debug("[sqlite] committed bars", "ticker", series.Ticker, "count", series.Len(), "took", time.Since(start))
	return nil
}

// ReadSeries returns the stored bars for ticker within [start, end], date ascending.
func (s *Store) ReadSeries(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, open, high, low, close, volume
		FROM daily_bars
		WHERE ticker = ? AND day >= ? AND day <= ?
		ORDER BY day ASC
	`, ticker, model.Day(start).Unix(), model.Day(end).Unix())
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("sqlite query daily_bars: %w", err)
	}
	defer rows.Close()

	series := model.PriceSeries{Ticker: ticker}
	for rows.Next() {
		var p model.PricePoint
		var day int64
		if err := rows.Scan(&day, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return model.PriceSeries{}, fmt.Errorf("sqlite scan daily_bars: %w", err)
		}
		p.Date = time.Unix(day, 0).UTC()
		series.Points = append(series.Points, p)
	}
	return series, rows.Err()
}

// LastDate returns the latest stored day for ticker. ok is false when none is stored.
func (s *Store) LastDate(ctx context.Context, ticker string) (last time.Time, ok bool, err error) {
	var day sql.NullInt64
	err = s.db.QueryRowContext(ctx, `SELECT MAX(day) FROM daily_bars WHERE ticker = ?`, ticker).Scan(&day)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sqlite max day: %w", err)
	}
	if !day.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(day.Int64, 0).UTC(), true, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
