package engine

import (
	"context"
	"math"
	"testing"

	"market-engine/internal/analytics"
	"market-engine/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWeights(t *testing.T) {
	got, err := NormalizeWeights(map[string]float64{"VTI": 3, " VTI": 1, "BND": 4, "GLD": 0})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"VTI": 0.5, "BND": 0.5}, got)

	for name, w := range map[string]map[string]float64{
		"empty":      {},
		"all zero":   {"VTI": 0},
		"negative":   {"VTI": 1, "BND": -0.5},
		"blank":      {" ": 1},
		"not finite": {"VTI": math.Inf(1)},
	} {
		_, err := NormalizeWeights(w)
		assert.ErrorIs(t, err, ErrBadAllocation, name)
	}
}

func TestSimulate_BlendsByWeight(t *testing.T) {
	src := &fixedSource{closes: map[string][]float64{
		"VTI": {100, 110},
		"BND": {50, 50},
	}}
	svc := newTestService(src)

	sim, err := svc.Simulate(context.Background(), map[string]float64{"VTI": 1, "BND": 1}, 1000, "max")
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"VTI": 0.5, "BND": 0.5}, sim.Weights)
	assert.InDelta(t, 1050, sim.FinalValue, 1e-9)
	assert.InDelta(t, 0.05, sim.TotalReturn, 1e-12)
	assert.Equal(t, 1000.0, sim.InitialCapital)
	assert.Equal(t, 2, sim.DataPoints)
	assert.Equal(t, "1990-01-01", sim.StartDate)
	assert.Equal(t, "1990-01-02", sim.EndDate)
	require.Len(t, sim.PerformanceChart, 1)
	assert.Equal(t, "1990-01-01", sim.PerformanceChart[0].Date)
	assert.InDelta(t, 1000, sim.PerformanceChart[0].Value, 1e-9)
}

func TestSimulate_SkipsDatesWithoutPositiveCloses(t *testing.T) {
	src := &fixedSource{closes: map[string][]float64{
		"VTI": {100, 0, 120},
		"BND": {50, 50, 50},
	}}
	svc := newTestService(src)

	sim, err := svc.Simulate(context.Background(), map[string]float64{"VTI": 0.5, "BND": 0.5}, 1000, "max")
	require.NoError(t, err)
	assert.Equal(t, 2, sim.DataPoints)
	assert.InDelta(t, 1100, sim.FinalValue, 1e-9)
}

func TestSimulate_DefaultBundleWithoutData(t *testing.T) {
	svc := newTestService(&fixedSource{})

	sim, err := svc.Simulate(context.Background(), map[string]float64{"NOPE": 1}, 2500, "2008")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, sim.FinalValue)
	assert.Equal(t, analytics.DefaultVolatility, sim.Volatility)
	assert.Equal(t, analytics.DefaultMaxDrawdown, sim.MaxDrawdown)
	assert.Zero(t, sim.DataPoints)
	assert.Equal(t, "2008-01-01", sim.StartDate)
	assert.Equal(t, "2008-12-31", sim.EndDate)
	assert.NotNil(t, sim.PerformanceChart)
	assert.Empty(t, sim.PerformanceChart)
}

func TestSimulate_Errors(t *testing.T) {
	svc := newTestService(&fixedSource{})
	ctx := context.Background()

	_, err := svc.Simulate(ctx, map[string]float64{}, 1000, "max")
	assert.ErrorIs(t, err, ErrBadAllocation)

	_, err = svc.Simulate(ctx, map[string]float64{"VTI": 1}, 0, "max")
	assert.ErrorIs(t, err, ErrBadAllocation)

	_, err = svc.Simulate(ctx, map[string]float64{"VTI": 1}, 1000, "forever")
	assert.ErrorIs(t, err, ErrBadPeriod)
}

func TestSimulate_Cached(t *testing.T) {
	src := &fixedSource{closes: map[string][]float64{"VTI": {100, 101}}}
	svc := newTestService(src)
	ctx := context.Background()

	first, err := svc.Simulate(ctx, map[string]float64{"VTI": 1}, 1000, "max")
	require.NoError(t, err)
	calls := src.callCount()

	second, err := svc.Simulate(ctx, map[string]float64{" VTI": 2}, 1000, "max")
	require.NoError(t, err)
	assert.Equal(t, calls, src.callCount())
	assert.Equal(t, first, second)
}

func TestSimulate_SyntheticYearlyChart(t *testing.T) {
	weights := map[string]float64{"VTI": 0.6, "BND": 0.3, "GLD": 0.1}

	a, err := newTestService(synth.New()).Simulate(context.Background(), weights, 100000, "max")
	require.NoError(t, err)
	b, err := newTestService(synth.New()).Simulate(context.Background(), weights, 100000, "max")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// 1990 through the clock's year, one point per year.
	require.Len(t, a.PerformanceChart, 35)
	assert.Equal(t, "1990-01-01", a.PerformanceChart[0].Date)
	assert.Equal(t, "2024-01-01", a.PerformanceChart[34].Date)
	assert.InDelta(t, 100000, a.PerformanceChart[0].Value, 1e-6)
	assert.Equal(t, "2024-12-31", a.EndDate)
	assert.Greater(t, a.FinalValue, 0.0)
	assert.LessOrEqual(t, a.MaxDrawdown, 0.0)
}
