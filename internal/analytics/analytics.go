// Package analytics reduces a daily price series to the risk/return bundle:
// total and annualized return, volatility, Sharpe ratio, maximum drawdown and
// the portfolio-value chart.
//
// Volatility and Sharpe are annualized with the 252-trading-day convention even
// though synthetic series are calendar-daily; annualized return uses a 365/N
// calendar exponent. Both conventions are kept as-is because changing either
// changes observable output.
package analytics

import (
	"errors"
	"math"

	"market-engine/internal/model"
	"market-engine/internal/numeric"
)

const (
	// TradingDaysPerYear annualizes daily volatility and Sharpe.
	TradingDaysPerYear = 252
	// CalendarDaysPerYear is the numerator of the annualized-return exponent.
	CalendarDaysPerYear = 365
	// RiskFreeRate is the fixed annual risk-free rate used for Sharpe.
	RiskFreeRate = 0.02

	// Placeholders reported when no analytics can be computed.
	DefaultVolatility  = 15.0
	DefaultMaxDrawdown = -10.0
)

// ErrNoData is returned for an empty series.
var ErrNoData = errors.New("analytics: no data")

// Default returns the placeholder bundle reported when a series is empty or the
// computation fails. Consumers always receive a structurally complete result.
func Default(initialInvestment float64) model.MetricsResult {
	initial := numeric.Sanitize(initialInvestment)
	return model.MetricsResult{
		TotalReturn:       0,
		FinalValue:        initial,
		Volatility:        DefaultVolatility,
		SharpeRatio:       0,
		MaxDrawdown:       DefaultMaxDrawdown,
		AnnualizedReturn:  0,
		Chart:             []model.ChartPoint{},
		DataPoints:        0,
		InitialInvestment: initial,
	}
}

// Compute derives the analytics bundle from the closing prices of series.
// It returns ErrNoData for an empty series. Every scalar and chart value in
// the result is finite.
func Compute(series model.PriceSeries, initialInvestment float64) (model.MetricsResult, error) {
	if series.Empty() {
		return model.MetricsResult{}, ErrNoData
	}

	closes := series.Closes()
	n := len(closes)
	returns := DailyReturns(closes)

	values := make([]float64, n)
	growth := 1.0
	for i, r := range returns {
		growth *= 1 + r
		values[i] = initialInvestment * growth
	}
	final := values[n-1]

	sd := StdDev(returns)
	sharpe := 0.0
	if sd > 0 {
		excess := make([]float64, n)
		for i, r := range returns {
			excess[i] = r - RiskFreeRate/TradingDaysPerYear
		}
		sharpe = Mean(excess) / sd * math.Sqrt(TradingDaysPerYear)
	}

	chart := make([]model.ChartPoint, n)
	for i, p := range series.Points {
		chart[i] = model.ChartPoint{
			Date:           p.Date.Format(model.DateLayout),
			PortfolioValue: numeric.Sanitize(values[i]),
			Price:          numeric.Sanitize(p.Close),
			Volume:         numeric.Sanitize(float64(p.Volume)),
		}
	}

	return model.MetricsResult{
		TotalReturn:       numeric.Sanitize((final - initialInvestment) / initialInvestment),
		FinalValue:        math.Max(numeric.Sanitize(final), 0),
		Volatility:        math.Max(numeric.Sanitize(sd*math.Sqrt(TradingDaysPerYear)), 0),
		SharpeRatio:       numeric.Sanitize(sharpe),
		MaxDrawdown:       MaxDrawdown(returns),
		AnnualizedReturn:  numeric.Sanitize(math.Pow(final/initialInvestment, CalendarDaysPerYear/float64(n)) - 1),
		Chart:             chart,
		DataPoints:        n,
		Ticker:            series.Ticker,
		StartDate:         series.Points[0].Date.Format(model.DateLayout),
		EndDate:           series.Points[n-1].Date.Format(model.DateLayout),
		InitialInvestment: numeric.Sanitize(initialInvestment),
	}, nil
}

// ComputeOrDefault is Compute with the failure path folded into Default.
func ComputeOrDefault(series model.PriceSeries, initialInvestment float64) model.MetricsResult {
	res, err := Compute(series, initialInvestment)
	if err != nil {
		return Default(initialInvestment)
	}
	return res
}
