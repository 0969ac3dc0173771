// Package feed composes price sources. A Chain asks each source in turn and
// returns the first non-empty series.
package feed

import (
	"context"
	"log/slog"
	"time"

	"market-engine/internal/model"
)

// Chain is a model.PriceSource over an ordered list of sources.
type Chain struct {
	sources []model.PriceSource

	// OnServe is called with the name of the source that produced a series (optional, for metrics).
	OnServe func(source string)
}

// NewChain returns a chain consulting sources in order.
func NewChain(sources ...model.PriceSource) *Chain {
	return &Chain{sources: sources}
}

// Name implements model.PriceSource.
func (c *Chain) Name() string { return "chain" }

// Series returns the first non-empty series. Source errors are logged and the
// next source is tried; the last error is returned only when every source fails.
func (c *Chain) Series(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	var lastErr error
	for _, src := range c.sources {
		s, err := src.Series(ctx, ticker, start, end)
		if err != nil {
			slog.Warn("[feed] source failed", "source", src.Name(), "ticker", ticker, "error", err)
			lastErr = err
			continue
		}
		if s.Empty() {
			continue
		}
		if c.OnServe != nil {
			c.OnServe(src.Name())
		}
		return s, nil
	}
	if lastErr != nil {
		return model.PriceSeries{Ticker: ticker}, lastErr
	}
	return model.PriceSeries{Ticker: ticker}, nil
}

// StoreSource adapts a model.BarStore to model.PriceSource.
type StoreSource struct {
	Store model.BarStore
}

// Name implements model.PriceSource.
func (s StoreSource) Name() string { return "sqlite" }

// Series implements model.PriceSource.
func (s StoreSource) Series(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	return s.Store.ReadSeries(ctx, ticker, start, end)
}
