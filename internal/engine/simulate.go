package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"market-engine/internal/analytics"
	"market-engine/internal/logger"
	"market-engine/internal/model"
)

// ErrBadAllocation is returned for unusable simulation weights or capital.
var ErrBadAllocation = errors.New("engine: bad allocation")

// portfolioTicker names the blended series handed to analytics.
const portfolioTicker = "PORTFOLIO"

// SimulationKey is the cache key of a Simulate request. weights must already
// be normalized.
func SimulationKey(weights map[string]float64, initial float64, period string) string {
	tickers := sortedTickers(weights)
	parts := make([]string, len(tickers))
	for i, t := range tickers {
		parts[i] = t + "=" + strconv.FormatFloat(weights[t], 'f', -1, 64)
	}
	return fmt.Sprintf("simulate:%s:%s:%s", strings.Join(parts, ","),
		strconv.FormatFloat(initial, 'f', -1, 64), period)
}

// NormalizeWeights trims tickers, merges duplicates, drops zero weights and
// scales the rest to sum to 1. Negative or non-finite weights and an
// all-zero allocation are rejected.
func NormalizeWeights(weights map[string]float64) (map[string]float64, error) {
	merged := make(map[string]float64, len(weights))
	for _, raw := range sortedTickers(weights) {
		w := weights[raw]
		t := strings.TrimSpace(raw)
		switch {
		case t == "":
			return nil, fmt.Errorf("%w: empty ticker", ErrBadAllocation)
		case math.IsNaN(w) || math.IsInf(w, 0) || w < 0:
			return nil, fmt.Errorf("%w: weight %v for %s", ErrBadAllocation, w, t)
		}
		merged[t] += w
	}

	// Summed in ticker order so equal inputs normalize to identical bits.
	total := 0.0
	for _, t := range sortedTickers(merged) {
		if merged[t] == 0 {
			delete(merged, t)
			continue
		}
		total += merged[t]
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: no positive weights", ErrBadAllocation)
	}
	for t := range merged {
		merged[t] /= total
	}
	return merged, nil
}

// Simulate backtests a buy-and-hold portfolio over the window named by
// period: initial is split across tickers by weight on the first date every
// series shares, then held. The blended value path is reduced with the same
// analytics as ComputeMetrics and sampled on the first day of each year for
// the performance chart.
//
// Bad weights or capital return ErrBadAllocation and a bad token
// ErrBadPeriod. When the series share no dates the default bundle is
// returned with a nil error.
func (s *Service) Simulate(ctx context.Context, weights map[string]float64, initial float64, period string) (model.Simulation, error) {
	norm, err := NormalizeWeights(weights)
	if err != nil {
		return model.Simulation{}, err
	}
	if math.IsNaN(initial) || math.IsInf(initial, 0) || initial <= 0 {
		return model.Simulation{}, fmt.Errorf("%w: initial capital %v", ErrBadAllocation, initial)
	}
	start, end, err := ParsePeriod(period, s.now(), s.periods)
	if err != nil {
		return model.Simulation{}, err
	}

	key := SimulationKey(norm, initial, period)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached model.Simulation
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	began := time.Now()
	blended := s.blend(ctx, norm, initial, start, end)
	res, err := analytics.Compute(blended, initial)
	if err != nil {
		slog.Warn("[engine] serving default simulation",
			append(logger.LogWithRequest(ctx), "weights", norm, "period", period, "error", err)...)
		s.countFallback("simulate")
		res = analytics.Default(initial)
		res.StartDate, res.EndDate = start.Format(model.DateLayout), end.Format(model.DateLayout)
		return simulationFrom(res, norm, nil), nil
	}
	sim := simulationFrom(res, norm, yearly(blended))
	s.observe("simulate", began)

	if raw, err := json.Marshal(sim); err == nil {
		s.cache.Put(ctx, key, raw)
	}
	return sim, nil
}

// blend builds the portfolio value series over the dates every ticker's
// series shares. Dates where any close is not positive are skipped.
func (s *Service) blend(ctx context.Context, weights map[string]float64, initial float64, start, end time.Time) model.PriceSeries {
	tickers := sortedTickers(weights)
	closes := make([]map[int64]float64, len(tickers))
	var spine []time.Time
	for i, t := range tickers {
		series := s.series(ctx, t, start, end)
		closes[i] = make(map[int64]float64, series.Len())
		for _, p := range series.Points {
			closes[i][p.Date.Unix()] = p.Close
		}
		if i == 0 {
			for _, p := range series.Points {
				spine = append(spine, p.Date)
			}
		}
	}

	out := model.PriceSeries{Ticker: portfolioTicker}
	var base []float64
	for _, d := range spine {
		px := make([]float64, len(tickers))
		ok := true
		for i := range tickers {
			c, found := closes[i][d.Unix()]
			if !found || !(c > 0) {
				ok = false
				break
			}
			px[i] = c
		}
		if !ok {
			continue
		}
		if base == nil {
			base = px
		}
		value := 0.0
		for i, t := range tickers {
			value += initial * weights[t] * px[i] / base[i]
		}
		out.Points = append(out.Points, model.PricePoint{
			Date: d, Open: value, High: value, Low: value, Close: value,
		})
	}
	return out
}

// yearly samples series on the first date of each calendar year.
func yearly(series model.PriceSeries) []model.YearValue {
	var out []model.YearValue
	year := 0
	for _, p := range series.Points {
		if p.Date.Year() == year {
			continue
		}
		year = p.Date.Year()
		out = append(out, model.YearValue{Date: p.Date.Format(model.DateLayout), Value: p.Close})
	}
	return out
}

func simulationFrom(res model.MetricsResult, weights map[string]float64, chart []model.YearValue) model.Simulation {
	if chart == nil {
		chart = []model.YearValue{}
	}
	return model.Simulation{
		Weights:          weights,
		InitialCapital:   res.InitialInvestment,
		FinalValue:       res.FinalValue,
		TotalReturn:      res.TotalReturn,
		AnnualizedReturn: res.AnnualizedReturn,
		Volatility:       res.Volatility,
		SharpeRatio:      res.SharpeRatio,
		MaxDrawdown:      res.MaxDrawdown,
		DataPoints:       res.DataPoints,
		StartDate:        res.StartDate,
		EndDate:          res.EndDate,
		PerformanceChart: chart,
	}
}

func sortedTickers(weights map[string]float64) []string {
	tickers := make([]string, 0, len(weights))
	for t := range weights {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}
