package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"market-engine/internal/logger"
	"market-engine/internal/model"
)

// PriceSet is the result of SynthesizePrices.
type PriceSet struct {
	Data      map[string][]model.PricePoint `json:"data"`
	Cached    bool                          `json:"cached"`
	Timestamp time.Time                     `json:"timestamp"`
}

// PricesKey is the cache key of a SynthesizePrices request.
func PricesKey(tickers []string, period string) string {
	return "prices:" + strings.Join(tickers, ",") + ":" + period
}

// SynthesizePrices returns one series per ticker over the window named by
// period. Results are cached by ticker list and period token; a cache hit is
// reported with Cached set.
func (s *Service) SynthesizePrices(ctx context.Context, tickers []string, period string) (PriceSet, error) {
	tickers = NormalizeTickers(tickers)
	if len(tickers) == 0 {
		return PriceSet{}, ErrNoTickers
	}
	start, end, err := ParsePeriod(period, s.now(), s.periods)
	if err != nil {
		return PriceSet{}, err
	}

	key := PricesKey(tickers, period)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var set PriceSet
		if err := json.Unmarshal(raw, &set); err == nil {
			set.Cached = true
			set.Timestamp = s.now()
			return set, nil
		}
		slog.Warn("[engine] discarding undecodable cache entry", append(logger.LogWithRequest(ctx), "key", key)...)
	}

	began := time.Now()
	set := PriceSet{
		Data:      make(map[string][]model.PricePoint, len(tickers)),
		Timestamp: s.now(),
	}
	for _, t := range tickers {
		series := s.series(ctx, t, start, end)
		points := series.Points
		if points == nil {
			points = []model.PricePoint{}
		}
		set.Data[t] = points
	}
	s.observe("prices", began)

	if raw, err := json.Marshal(set); err == nil {
		s.cache.Put(ctx, key, raw)
	}
	return set, nil
}

// SeriesFor returns the series of one ticker over the window named by period.
func (s *Service) SeriesFor(ctx context.Context, ticker, period string) (model.PriceSeries, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return model.PriceSeries{}, ErrNoTickers
	}
	start, end, err := ParsePeriod(period, s.now(), s.periods)
	if err != nil {
		return model.PriceSeries{}, err
	}
	return s.series(ctx, ticker, start, end), nil
}

// series asks the source for a window. Source failures yield an empty series.
func (s *Service) series(ctx context.Context, ticker string, start, end time.Time) model.PriceSeries {
	series, err := s.source.Series(ctx, ticker, start, end)
	if err != nil {
		slog.Warn("[engine] series unavailable",
			append(logger.LogWithRequest(ctx), "ticker", ticker, "source", s.source.Name(), "error", err)...)
		return model.PriceSeries{Ticker: ticker}
	}
	s.countSeries(s.source.Name())
	return series
}

// NormalizeTickers trims blanks and drops empty and duplicate entries, keeping
// order. Result maps are keyed by these names.
func NormalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	seen := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
