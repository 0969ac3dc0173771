package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"market-engine/internal/engine"
	"market-engine/internal/history"
)

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pricesParams{Tickers: splitList(q["tickers"]), Period: q.Get("period")}
	if p.Period == "" {
		p.Period = "1y"
	}
	if err := checkParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, err := s.eng.SynthesizePrices(r.Context(), p.Tickers, p.Period)
	switch {
	case errors.Is(err, engine.ErrNoTickers), errors.Is(err, engine.ErrBadPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	initial, err := floatParam(q, "initial_investment", engine.DefaultInvestment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := metricsParams{
		Ticker:            r.PathValue("ticker"),
		StartDate:         q.Get("start_date"),
		EndDate:           q.Get("end_date"),
		InitialInvestment: initial,
	}
	if err := checkParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.eng.ComputeMetrics(r.Context(), p.Ticker, p.StartDate, p.EndDate, p.InitialInvestment))
}

func (s *Server) handleEventMetrics(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("event_year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "event_year must be an integer")
		return
	}
	p := eventParams{Ticker: r.PathValue("ticker"), Year: year}
	if err := checkParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.eng.ComputeEventMetrics(r.Context(), p.Ticker, p.Year))
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := compareParams{
		Assets:    splitList(q["assets"]),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if err := checkParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.eng.CompareAssets(r.Context(), p.Assets, p.StartDate, p.EndDate))
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	p := quotesParams{IDs: splitList(r.URL.Query()["ids"])}
	if err := checkParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": s.eng.Quotes(r.Context(), p.IDs)})
}

// maxSimulateBody bounds the POST /simulate request body.
const maxSimulateBody = 64 << 10

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSimulateBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.InitialCapital == 0 {
		req.InitialCapital = engine.DefaultInvestment
	}
	if req.Period == "" {
		req.Period = "max"
	}
	if err := checkParams(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sim, err := s.eng.Simulate(r.Context(), req.AssetWeights, req.InitialCapital, req.Period)
	switch {
	case errors.Is(err, engine.ErrBadAllocation), errors.Is(err, engine.ErrBadPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, history.Events())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": int64(time.Since(s.started).Seconds()),
		"goroutines": runtime.NumGoroutine(),
		"latency":    s.latency.Snapshot(),
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
	})
}
