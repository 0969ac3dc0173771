package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"market-engine/internal/model"
	"market-engine/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesOf(ticker string, start string, closes ...float64) model.PriceSeries {
	d, err := model.ParseDate(start)
	if err != nil {
		panic(err)
	}
	s := model.PriceSeries{Ticker: ticker}
	for i, c := range closes {
		s.Points = append(s.Points, model.PricePoint{
			Date:   d.AddDate(0, 0, i),
			Open:   c * 0.99,
			High:   c * 1.01,
			Low:    c * 0.98,
			Close:  c,
			Volume: 1_000_000,
		})
	}
	return s
}

func TestCompute_KnownCloses(t *testing.T) {
	s := seriesOf("VTI", "1990-01-01", 100, 101, 99, 102, 103)
	res, err := Compute(s, 100000)
	require.NoError(t, err)

	assert.InDelta(t, 0.03, res.TotalReturn, 1e-9)
	assert.InDelta(t, 103000, res.FinalValue, 1e-6)
	require.Len(t, res.Chart, 5)
	assert.Equal(t, 100000.0, res.Chart[0].PortfolioValue)
	assert.Equal(t, "1990-01-01", res.Chart[0].Date)
	assert.Equal(t, "1990-01-05", res.Chart[4].Date)
	assert.InDelta(t, 101000, res.Chart[1].PortfolioValue, 1e-6)
	assert.Equal(t, 5, res.DataPoints)
	assert.Equal(t, "VTI", res.Ticker)
	assert.Equal(t, "1990-01-01", res.StartDate)
	assert.Equal(t, "1990-01-05", res.EndDate)

	// 101 -> 99 is the only decline below the running peak.
	assert.InDelta(t, 99.0/101.0-1, res.MaxDrawdown, 1e-12)

	returns := DailyReturns([]float64{100, 101, 99, 102, 103})
	sd := StdDev(returns)
	assert.InDelta(t, sd*math.Sqrt(252), res.Volatility, 1e-12)
	assert.InDelta(t, (Mean(returns)-0.02/252)/sd*math.Sqrt(252), res.SharpeRatio, 1e-12)
	assert.InDelta(t, math.Pow(1.03, 365.0/5)-1, res.AnnualizedReturn, 1e-6)
}

func TestCompute_EmptySeries(t *testing.T) {
	_, err := Compute(model.PriceSeries{Ticker: "VTI"}, 5000)
	assert.ErrorIs(t, err, ErrNoData)

	res := ComputeOrDefault(model.PriceSeries{}, 5000)
	assert.Equal(t, Default(5000), res)
	assert.Equal(t, 5000.0, res.FinalValue)
	assert.Equal(t, 15.0, res.Volatility)
	assert.Equal(t, -10.0, res.MaxDrawdown)
	assert.NotNil(t, res.Chart)
	assert.Empty(t, res.Chart)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"chart_data":[]`)
}

func TestCompute_SinglePoint(t *testing.T) {
	res, err := Compute(seriesOf("X", "2000-01-01", 50), 1000)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Volatility)
	assert.Equal(t, 0.0, res.SharpeRatio)
	assert.Equal(t, 0.0, res.MaxDrawdown)
	assert.Equal(t, 0.0, res.TotalReturn)
	assert.Equal(t, 1000.0, res.FinalValue)
	assert.Len(t, res.Chart, 1)
}

func TestCompute_FlatSeriesZeroVariance(t *testing.T) {
	res, err := Compute(seriesOf("X", "2000-01-01", 10, 10, 10, 10), 1000)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Volatility)
	assert.Equal(t, 0.0, res.SharpeRatio)
	assert.Equal(t, 0.0, res.MaxDrawdown)
}

func TestCompute_ZeroInvestmentIsSanitized(t *testing.T) {
	res, err := Compute(seriesOf("X", "2000-01-01", 10, 11, 12), 0)
	require.NoError(t, err)
	assertFinite(t, res)
	assert.Equal(t, 0.0, res.TotalReturn)
	assert.Equal(t, 0.0, res.AnnualizedReturn)
}

func TestCompute_ZeroPriceIsSanitized(t *testing.T) {
	res, err := Compute(seriesOf("X", "2000-01-01", 10, 0, 5, 6), 1000)
	require.NoError(t, err)
	assertFinite(t, res)
	assert.LessOrEqual(t, res.MaxDrawdown, 0.0)
	assert.GreaterOrEqual(t, res.Volatility, 0.0)
	assert.GreaterOrEqual(t, res.FinalValue, 0.0)
}

func TestCompute_SyntheticInvariants(t *testing.T) {
	g := synth.New(synth.WithProfile("WILD", synth.Profile{Name: "wild", Growth: 1, Noise: 3}))
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC)
	for _, ticker := range []string{"VTI", "BND", "GLD", "BTC-USD", "WILD"} {
		res, err := Compute(g.Generate(ticker, start, end), 100000)
		require.NoError(t, err, ticker)
		assertFinite(t, res)
		assert.LessOrEqual(t, res.MaxDrawdown, 0.0, ticker)
		assert.GreaterOrEqual(t, res.Volatility, 0.0, ticker)
		assert.GreaterOrEqual(t, res.FinalValue, 0.0, ticker)
	}
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{0, 0.1, 0.1}))
	// 1 -> 2 -> 1 -> 1.5: worst is -50%.
	assert.InDelta(t, -0.5, MaxDrawdown(DailyReturns([]float64{1, 2, 1, 1.5})), 1e-12)
}

func TestStdDev_Sample(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{3}))
	assert.InDelta(t, math.Sqrt(2.5), StdDev([]float64{1, 2, 3, 4, 5}), 1e-12)
}

func assertFinite(t *testing.T, res model.MetricsResult) {
	t.Helper()
	for name, v := range map[string]float64{
		"total_return":      res.TotalReturn,
		"final_value":       res.FinalValue,
		"volatility":        res.Volatility,
		"sharpe_ratio":      res.SharpeRatio,
		"max_drawdown":      res.MaxDrawdown,
		"annualized_return": res.AnnualizedReturn,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is non-finite", name)
		}
	}
	for i, p := range res.Chart {
		if math.IsNaN(p.PortfolioValue) || math.IsInf(p.PortfolioValue, 0) {
			t.Errorf("chart[%d] is non-finite", i)
		}
	}
}
