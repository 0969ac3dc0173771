// Package synth deterministically synthesizes daily OHLCV series for
// arbitrary tickers. The same ticker and window always produce the same
// series, across processes and restarts.
package synth

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"market-engine/internal/model"
	"market-engine/internal/numeric"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultBasePrice = 100.0
	floorRatio       = 0.1

	openRatio = 0.99
	highRatio = 1.01
	lowRatio  = 0.98

	minVolume = 1_000_000
	maxVolume = 5_000_000

	secondsPerDay = 24 * 60 * 60

	// pcgStream decorrelates the second PCG word from the seed.
	pcgStream = 0x9E3779B97F4A7C15
)

// Seed derives the PRNG seed for a ticker: the 64-bit xxHash (XXH64, seed 0)
// of its UTF-8 bytes. XXH64 is specified independently of Go, so the same
// ticker maps to the same seed in any runtime.
func Seed(ticker string) uint64 {
	return xxhash.Sum64String(ticker)
}

// Option configures a Generator.
type Option func(*Generator)

// WithProfile assigns (or overrides) the profile used for ticker.
func WithProfile(ticker string, p Profile) Option {
	return func(g *Generator) { g.profiles[ticker] = p }
}

// WithBasePrice sets the starting price level of every series.
func WithBasePrice(base float64) Option {
	return func(g *Generator) {
		if base > 0 {
			g.basePrice = base
		}
	}
}

// Generator synthesizes series from an immutable profile table.
// It holds no mutable state and is safe for concurrent use.
type Generator struct {
	profiles  map[string]Profile
	basePrice float64
}

// New creates a Generator with the built-in profiles.
func New(opts ...Option) *Generator {
	g := &Generator{
		profiles:  defaultProfiles(),
		basePrice: defaultBasePrice,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements model.PriceSource.
func (g *Generator) Name() string { return "synthetic" }

// Series implements model.PriceSource. Synthesis never fails.
func (g *Generator) Series(_ context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	return g.Generate(ticker, start, end), nil
}

// ProfileFor returns the profile used for ticker, falling back to DefaultGrowth.
func (g *Generator) ProfileFor(ticker string) Profile {
	if p, ok := g.profiles[ticker]; ok {
		return p
	}
	return DefaultGrowth
}

// BasePrice returns the price level every series starts from.
func (g *Generator) BasePrice() float64 { return g.basePrice }

// Generate builds the daily series for ticker over [start, end], both inclusive.
// An end before start yields an empty series.
func (g *Generator) Generate(ticker string, start, end time.Time) model.PriceSeries {
	start, end = model.Day(start), model.Day(end)
	series := model.PriceSeries{Ticker: ticker}
	if end.Before(start) {
		return series
	}

	n := DaysBetween(start, end) + 1
	profile := g.ProfileFor(ticker)
	seed := Seed(ticker)
	rng := rand.New(rand.NewPCG(seed, seed^pcgStream))

	// Noise is drawn for the whole span before any volume draw.
	noise := make([]float64, n)
	for i := range noise {
		noise[i] = rng.NormFloat64() * profile.Noise
	}

	floor := g.basePrice * floorRatio
	series.Points = make([]model.PricePoint, n)
	for i := 0; i < n; i++ {
		level := 1 + trend(profile.Growth, i, n) + noise[i]
		for _, c := range profile.Cycles {
			level += c.Amplitude * math.Sin(2*math.Pi*float64(i)/c.PeriodDays)
		}
		px := numeric.Sanitize(g.basePrice * level)
		if px < floor {
			px = floor
		}
		series.Points[i] = model.PricePoint{
			Date:  start.AddDate(0, 0, i),
			Open:  numeric.Sanitize(px * openRatio),
			High:  numeric.Sanitize(px * highRatio),
			Low:   numeric.Sanitize(px * lowRatio),
			Close: px,
		}
	}
	for i := range series.Points {
		series.Points[i].Volume = minVolume + int64(rng.Float64()*(maxVolume-minVolume))
	}
	return series
}

// DaysBetween counts whole UTC days from start to end. It uses Unix seconds
// rather than time.Duration, which saturates after about 292 years.
func DaysBetween(start, end time.Time) int {
	return int((model.Day(end).Unix() - model.Day(start).Unix()) / secondsPerDay)
}

// trend is the i-th of n evenly spaced values from 0 to growth inclusive.
func trend(growth float64, i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return growth * float64(i) / float64(n-1)
}
