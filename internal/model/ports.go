package model

import (
	"context"
	"time"
)

// ── Ports ──
// These interfaces decouple the engine from concrete series sources and
// cache backends (synthetic, SQLite, in-memory, Redis).

// PriceSource produces a daily series for a ticker over [start, end].
// An empty series with a nil error means the source has no data.
type PriceSource interface {
	Series(ctx context.Context, ticker string, start, end time.Time) (PriceSeries, error)

	// Name identifies the source in logs and metrics.
	Name() string
}

// Cache stores JSON payloads with a fixed time-to-live.
// Get and Put are atomic with respect to each other; a concurrent
// Get may observe the old or the new value but never a partial one.
type Cache interface {
	// Get returns the stored payload if it is younger than the TTL.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Put stores value under key, unconditionally replacing any entry.
	Put(ctx context.Context, key string, value []byte)
}

// BarStore persists daily bars (e.g. SQLite) for replay and backfill.
type BarStore interface {
	// WriteSeries upserts all bars of the series.
	WriteSeries(ctx context.Context, s PriceSeries) error

	// ReadSeries returns stored bars for ticker within [start, end], date ascending.
	ReadSeries(ctx context.Context, ticker string, start, end time.Time) (PriceSeries, error)

	// Close releases underlying resources.
	Close() error
}
