package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-engine/internal/analytics"
	"market-engine/internal/logger"
	"market-engine/internal/model"

	"golang.org/x/sync/errgroup"
)

// MetricsKey is the cache key of a ComputeMetrics request.
func MetricsKey(ticker, start, end string, initial float64) string {
	return fmt.Sprintf("metrics:%s:%s:%s:%s", ticker, start, end, strconv.FormatFloat(initial, 'f', -1, 64))
}

// ComputeMetrics returns the analytics bundle for ticker over [start, end]
// (ISO dates, both inclusive). Any failure yields the default bundle.
func (s *Service) ComputeMetrics(ctx context.Context, ticker, start, end string, initial float64) model.MetricsResult {
	res, err := s.Evaluate(ctx, ticker, start, end, initial)
	if err != nil {
		slog.Warn("[engine] serving default metrics",
			append(logger.LogWithRequest(ctx), "ticker", ticker, "start", start, "end", end, "error", err)...)
		s.countFallback("metrics")
		return s.defaultResult(ticker, start, end, initial)
	}
	return res
}

// Evaluate is ComputeMetrics with the failure path made explicit: it returns
// analytics.ErrNoData for an empty window, a wrapped parse error for malformed
// dates, ErrWindowTooLong past MaxWindowDays, and an error for a recovered
// panic. Successful results are cached.
func (s *Service) Evaluate(ctx context.Context, ticker, start, end string, initial float64) (res model.MetricsResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metrics for %s panicked: %v", ticker, r)
		}
	}()

	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return model.MetricsResult{}, ErrNoTickers
	}

	key := MetricsKey(ticker, start, end, initial)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached model.MetricsResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	from, err := model.ParseDate(start)
	if err != nil {
		return model.MetricsResult{}, fmt.Errorf("start date: %w", err)
	}
	to, err := model.ParseDate(end)
	if err != nil {
		return model.MetricsResult{}, fmt.Errorf("end date: %w", err)
	}
	if err := checkWindow(from, to); err != nil {
		return model.MetricsResult{}, err
	}

	began := time.Now()
	series := s.series(ctx, ticker, from, to)
	res, err = analytics.Compute(series, initial)
	if err != nil {
		return model.MetricsResult{}, fmt.Errorf("metrics for %s: %w", ticker, err)
	}
	s.observe("metrics", began)

	res.Ticker, res.StartDate, res.EndDate = ticker, start, end
	if raw, err := json.Marshal(res); err == nil {
		s.cache.Put(ctx, key, raw)
	}
	return res, nil
}

// ComputeEventMetrics resolves the proxy ticker and window for an event year
// and computes metrics on DefaultInvestment. Unknown years use the fallback
// window; tickers without a proxy pass through.
func (s *Service) ComputeEventMetrics(ctx context.Context, ticker string, year int) model.MetricsResult {
	resolved := s.proxies.Resolve(ticker, year)
	start, end := s.periods.PeriodFor(year)
	if resolved != ticker {
		slog.Debug("[engine] using proxy ticker",
			append(logger.LogWithRequest(ctx), "ticker", ticker, "proxy", resolved, "year", year)...)
	}
	return s.ComputeMetrics(ctx, resolved, start.Format(model.DateLayout), end.Format(model.DateLayout), DefaultInvestment)
}

// CompareAssets computes metrics on DefaultInvestment for every ticker over
// the same window. Assets are computed concurrently; a failing asset gets the
// default bundle without affecting the others.
func (s *Service) CompareAssets(ctx context.Context, tickers []string, start, end string) map[string]model.MetricsResult {
	tickers = NormalizeTickers(tickers)
	out := make(map[string]model.MetricsResult, len(tickers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, t := range tickers {
		g.Go(func() error {
			res := s.ComputeMetrics(gctx, t, start, end, DefaultInvestment)
			mu.Lock()
			out[t] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}

func (s *Service) defaultResult(ticker, start, end string, initial float64) model.MetricsResult {
	res := analytics.Default(initial)
	res.Ticker, res.StartDate, res.EndDate = ticker, start, end
	return res
}
