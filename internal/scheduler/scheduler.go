// Package scheduler runs the periodic cache warm-up: event metrics for every
// configured ticker and event year, plus the full-history price set.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"market-engine/internal/engine"
	"market-engine/internal/model"

	"github.com/robfig/cron/v3"
)

// Engine is the subset of engine.Service the warmer drives.
type Engine interface {
	ComputeEventMetrics(ctx context.Context, ticker string, year int) model.MetricsResult
	SynthesizePrices(ctx context.Context, tickers []string, period string) (engine.PriceSet, error)
}

// Scheduler manages the warm-up cron task.
type Scheduler struct {
	Cron    *cron.Cron
	Engine  Engine
	Tickers []string
	Years   []int
	Ctx     context.Context

	// OnRun is called after every warm-up with its outcome (optional).
	OnRun func(ok bool, at time.Time)
}

// NewScheduler creates a Scheduler. Cron specs carry a leading seconds field.
func NewScheduler(ctx context.Context, eng Engine, tickers []string, years []int) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Engine:  eng,
		Tickers: tickers,
		Years:   years,
		Ctx:     ctx,
	}
}

// Register schedules the warm-up on a cron expression (with seconds).
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.Trigger); err != nil {
		return fmt.Errorf("register warm task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("[scheduler] started", "tickers", s.Tickers, "years", s.Years)
}

// Stop stops the scheduler and waits for a running warm-up to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("[scheduler] stopped")
}

// RunNow executes one warm-up immediately.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if len(s.Tickers) == 0 {
		return nil
	}
	start := time.Now()

	if _, err := s.Engine.SynthesizePrices(ctx, s.Tickers, "max"); err != nil {
		return fmt.Errorf("warm prices: %w", err)
	}
	for _, t := range s.Tickers {
		for _, y := range s.Years {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.Engine.ComputeEventMetrics(ctx, t, y)
		}
	}

	slog.Info("[scheduler] cache warmed", "tickers", len(s.Tickers), "years", len(s.Years), "took", time.Since(start))
	return nil
}

// Trigger runs one warm-up on the scheduler context and reports it through OnRun.
func (s *Scheduler) Trigger() {
	err := s.RunNow(s.Ctx)
	if err != nil {
		slog.Error("[scheduler] warm-up failed", "error", err)
	}
	if s.OnRun != nil {
		s.OnRun(err == nil, time.Now())
	}
}
