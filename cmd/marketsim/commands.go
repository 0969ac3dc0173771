package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"market-engine/internal/engine"
	"market-engine/internal/feed"
	"market-engine/internal/logger"
	"market-engine/internal/model"
	sqlitestore "market-engine/internal/store/sqlite"
	"market-engine/internal/synth"

	"github.com/spf13/cobra"
)

// cliOptions holds the persistent flags shared by every subcommand.
type cliOptions struct {
	dbPath   string
	logLevel string
	jsonOut  bool

	store *sqlitestore.Store
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "marketsim",
		Short:         "Synthesize market data and compute risk/return metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			logger.InitWriter(cmd.ErrOrStderr(), "marketsim", level)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.store != nil {
				return opts.store.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite bar store (read before synthesizing; required for backfill)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		newPricesCmd(opts),
		newMetricsCmd(opts),
		newEventCmd(opts),
		newCompareCmd(opts),
		newQuotesCmd(opts),
		newSimulateCmd(opts),
		newBackfillCmd(opts),
	)
	return root
}

// openStore opens the bar store named by --db, once per invocation.
func (o *cliOptions) openStore() (*sqlitestore.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	if o.dbPath == "" {
		return nil, errors.New("--db is required")
	}
	if dir := filepath.Dir(o.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: o.dbPath})
	if err != nil {
		return nil, err
	}
	o.store = store
	return store, nil
}

// newEngine builds an engine over synthesis, or over the bar store first when --db is set.
func (o *cliOptions) newEngine() (*engine.Service, error) {
	var source model.PriceSource = synth.New()
	if o.dbPath != "" {
		store, err := o.openStore()
		if err != nil {
			return nil, err
		}
		source = feed.NewChain(feed.StoreSource{Store: store}, source)
	}
	return engine.New(source, nil), nil
}

func newPricesCmd(opts *cliOptions) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "prices TICKER...",
		Short: "Print daily OHLCV series",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.newEngine()
			if err != nil {
				return err
			}
			set, err := eng.SynthesizePrices(cmd.Context(), args, period)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), set)
			}
			out := cmd.OutOrStdout()
			for _, t := range engine.NormalizeTickers(args) {
				points := set.Data[t]
				fmt.Fprintf(out, "%s (%d bars)\n", t, len(points))
				for _, p := range points {
					fmt.Fprintf(out, "  %s  O=%.2f H=%.2f L=%.2f C=%.2f V=%d\n",
						p.Date.Format(model.DateLayout), p.Open, p.High, p.Low, p.Close, p.Volume)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "1y", "Window: max, ytd, <N>y, <N>mo, <N>d or an event year")
	return cmd
}

func newMetricsCmd(opts *cliOptions) *cobra.Command {
	var start, end string
	var initial float64
	cmd := &cobra.Command{
		Use:   "metrics TICKER",
		Short: "Compute risk/return metrics over a date window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.newEngine()
			if err != nil {
				return err
			}
			res := eng.ComputeMetrics(cmd.Context(), args[0], start, end, initial)
			return opts.printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&initial, "initial", engine.DefaultInvestment, "Initial investment")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newEventCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "event TICKER YEAR",
		Short: "Compute metrics for a historical event year",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("year must be an integer: %w", err)
			}
			eng, err := opts.newEngine()
			if err != nil {
				return err
			}
			res := eng.ComputeEventMetrics(cmd.Context(), args[0], year)
			return opts.printResult(cmd.OutOrStdout(), res)
		},
	}
}

func newCompareCmd(opts *cliOptions) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "compare TICKER...",
		Short: "Compare metrics of several assets over the same window",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.newEngine()
			if err != nil {
				return err
			}
			results := eng.CompareAssets(cmd.Context(), args, start, end)
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), results)
			}
			tickers := make([]string, 0, len(results))
			for t := range results {
				tickers = append(tickers, t)
			}
			sort.Strings(tickers)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %10s %10s %8s %10s\n", "TICKER", "RETURN", "VOL", "SHARPE", "DRAWDOWN")
			for _, t := range tickers {
				r := results[t]
				fmt.Fprintf(out, "%-10s %9.2f%% %9.2f%% %8.2f %9.2f%%\n",
					t, r.TotalReturn*100, r.Volatility*100, r.SharpeRatio, r.MaxDrawdown*100)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newQuotesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quotes ID...",
		Short: "Print latest quotes for display ids (apple, bitcoin, ...)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.newEngine()
			if err != nil {
				return err
			}
			quotes := eng.Quotes(cmd.Context(), args)
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), quotes)
			}
			for _, q := range quotes {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-8s %12.2f %+7.2f%%\n", q.ID, q.Symbol, q.CurrentPrice, q.Change)
			}
			return nil
		},
	}
}

func newSimulateCmd(opts *cliOptions) *cobra.Command {
	var period string
	var initial float64
	cmd := &cobra.Command{
		Use:     "simulate TICKER=WEIGHT...",
		Short:   "Backtest a buy-and-hold weighted allocation",
		Example: "  marketsim simulate VTI=0.6 BND=0.3 GLD=0.1 --initial=100000",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weights, err := parseWeights(args)
			if err != nil {
				return err
			}
			eng, err := opts.newEngine()
			if err != nil {
				return err
			}
			sim, err := eng.Simulate(cmd.Context(), weights, initial, period)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), sim)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Allocation over %s .. %s (%d days)\n", sim.StartDate, sim.EndDate, sim.DataPoints)
			tickers := make([]string, 0, len(sim.Weights))
			for t := range sim.Weights {
				tickers = append(tickers, t)
			}
			sort.Strings(tickers)
			for _, t := range tickers {
				fmt.Fprintf(out, "  %-10s %6.2f%%\n", t, sim.Weights[t]*100)
			}
			fmt.Fprintf(out, "Final value %.2f  return %.2f%%  annualized %.2f%%  vol %.2f%%  sharpe %.2f  drawdown %.2f%%\n",
				sim.FinalValue, sim.TotalReturn*100, sim.AnnualizedReturn*100,
				sim.Volatility*100, sim.SharpeRatio, sim.MaxDrawdown*100)
			for _, y := range sim.PerformanceChart {
				fmt.Fprintf(out, "  %s  %14.2f\n", y.Date, y.Value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "max", "Window: max, ytd, <N>y, <N>mo, <N>d or an event year")
	cmd.Flags().Float64Var(&initial, "initial", engine.DefaultInvestment, "Initial capital")
	return cmd
}

// parseWeights reads TICKER=WEIGHT arguments.
func parseWeights(args []string) (map[string]float64, error) {
	weights := make(map[string]float64, len(args))
	for _, arg := range args {
		ticker, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("weight %q: want TICKER=WEIGHT", arg)
		}
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", arg, err)
		}
		weights[ticker] += w
	}
	return weights, nil
}

func newBackfillCmd(opts *cliOptions) *cobra.Command {
	var period string
	var force bool
	cmd := &cobra.Command{
		Use:   "backfill TICKER...",
		Short: "Write synthetic daily bars into the SQLite store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			// Always synthesize here; the chain would read back existing bars.
			eng := engine.New(synth.New(), nil)
			out := cmd.OutOrStdout()
			for _, t := range args {
				series, err := eng.SeriesFor(cmd.Context(), t, period)
				if err != nil {
					return err
				}
				if series.Empty() {
					continue
				}
				last, ok, err := store.LastDate(cmd.Context(), t)
				if err != nil {
					return err
				}
				end := series.Points[series.Len()-1].Date
				if ok && !force && !last.Before(end) {
					fmt.Fprintf(out, "%s: up to date through %s\n", t, last.Format(model.DateLayout))
					continue
				}
				if err := store.WriteSeries(cmd.Context(), series); err != nil {
					return fmt.Errorf("backfill %s: %w", t, err)
				}
				slog.Info("[marketsim] backfilled", "ticker", t, "bars", series.Len())
				fmt.Fprintf(out, "%s: wrote %d bars (%s .. %s)\n", t, series.Len(),
					series.Points[0].Date.Format(model.DateLayout), end.Format(model.DateLayout))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "max", "Window to backfill")
	cmd.Flags().BoolVar(&force, "force", false, "Rewrite bars even when the store is up to date")
	return cmd
}

func (o *cliOptions) printResult(w io.Writer, r model.MetricsResult) error {
	if o.jsonOut {
		return printJSON(w, r)
	}
	fmt.Fprintln(w, "╔══════════════════════════════════════╗")
	fmt.Fprintf(w, "║  %-36s║\n", r.Ticker+"  "+r.StartDate+" .. "+r.EndDate)
	fmt.Fprintln(w, "╠══════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Initial investment: %-15.2f ║\n", r.InitialInvestment)
	fmt.Fprintf(w, "║  Final value:        %-15.2f ║\n", r.FinalValue)
	fmt.Fprintf(w, "║  Total return:       %-14.2f%% ║\n", r.TotalReturn*100)
	fmt.Fprintf(w, "║  Annualized return:  %-14.2f%% ║\n", r.AnnualizedReturn*100)
	fmt.Fprintf(w, "║  Volatility:         %-14.2f%% ║\n", r.Volatility*100)
	fmt.Fprintf(w, "║  Sharpe ratio:       %-15.2f ║\n", r.SharpeRatio)
	fmt.Fprintf(w, "║  Max drawdown:       %-14.2f%% ║\n", r.MaxDrawdown*100)
	fmt.Fprintf(w, "║  Data points:        %-15d ║\n", r.DataPoints)
	fmt.Fprintln(w, "╚══════════════════════════════════════╝")
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
