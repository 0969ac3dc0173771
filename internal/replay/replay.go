// Package replay emits a daily price series bar by bar at a configurable
// speed, for streaming a historical window to a live chart.
package replay

import (
	"context"
	"log/slog"
	"time"

	"market-engine/internal/model"
	"market-engine/internal/numeric"
)

// DefaultStep is the wall-clock gap between two consecutive days at speed 1.
const DefaultStep = time.Second

// maxStep caps the gap between frames regardless of speed.
const maxStep = 5 * time.Second

// Frame is one replayed bar.
type Frame struct {
	Seq    int              `json:"seq"`
	Ticker string           `json:"ticker"`
	Bar    model.PricePoint `json:"bar"`
	// Growth is close / first close - 1.
	Growth float64 `json:"growth"`
	Last   bool    `json:"last"`
}

// Replayer paces frames. A zero Replayer uses DefaultStep and the wall clock.
type Replayer struct {
	Step  time.Duration
	after func(time.Duration) <-chan time.Time
}

// New returns a Replayer with the given per-day step at speed 1.
func New(step time.Duration) *Replayer {
	return &Replayer{Step: step}
}

func (r *Replayer) wait(d time.Duration) <-chan time.Time {
	if r.after != nil {
		return r.after(d)
	}
	return time.After(d)
}

// Gap returns the pause between frames at speed. Speed <= 0 means as fast as possible.
func (r *Replayer) Gap(speed float64) time.Duration {
	if speed <= 0 {
		return 0
	}
	step := r.Step
	if step <= 0 {
		step = DefaultStep
	}
	gap := time.Duration(float64(step) / speed)
	if gap > maxStep {
		gap = maxStep
	}
	return gap
}

// Run sends every bar of series to out in date order, pausing Gap(speed)
// between bars. It returns ctx.Err() if cancelled and nil when the series is exhausted.
func (r *Replayer) Run(ctx context.Context, series model.PriceSeries, speed float64, out chan<- Frame) error {
	if series.Empty() {
		slog.Info("[replay] nothing to replay", "ticker", series.Ticker)
		return nil
	}

	gap := r.Gap(speed)
	first := series.Points[0].Close
	slog.Debug("[replay] starting", "ticker", series.Ticker, "bars", series.Len(), "speed", speed)

	for i, p := range series.Points {
		if i > 0 && gap > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.wait(gap):
			}
		}

		growth := 0.0
		if first > 0 {
			growth = numeric.Sanitize(p.Close/first - 1)
		}
		frame := Frame{
			Seq:    i,
			Ticker: series.Ticker,
			Bar:    p,
			Growth: growth,
			Last:   i == series.Len()-1,
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- frame:
		}
	}

	slog.Debug("[replay] completed", "ticker", series.Ticker, "bars", series.Len())
	return nil
}
