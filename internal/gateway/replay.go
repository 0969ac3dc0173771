package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"market-engine/internal/engine"
	"market-engine/internal/logger"
	"market-engine/internal/replay"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

type replayMeta struct {
	Type   string  `json:"type"`
	Ticker string  `json:"ticker"`
	Bars   int     `json:"bars"`
	Speed  float64 `json:"speed"`
}

type replayBar struct {
	Type string `json:"type"`
	replay.Frame
}

// handleReplay streams the series named by ticker and period over a
// WebSocket: one "meta" message, then one "bar" message per day.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	speed, err := floatParam(q, "speed", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := replayParams{Ticker: q.Get("ticker"), Period: q.Get("period"), Speed: speed}
	if p.Period == "" {
		p.Period = "1y"
	}
	if err := checkParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := s.eng.SeriesFor(r.Context(), p.Ticker, p.Period)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrBadPeriod) || errors.Is(err, engine.ErrNoTickers) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[gateway] ws upgrade error", append(logger.LogWithRequest(r.Context()), "error", err)...)
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ReplayClients.Inc()
		defer s.metrics.ReplayClients.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readPump(conn, cancel)

	frames := make(chan replay.Frame, 64)
	go func() {
		defer close(frames)
		if err := s.replayer.Run(ctx, series, p.Speed, frames); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("[gateway] replay stopped", append(logger.LogWithRequest(ctx), "error", err)...)
		}
	}()

	if err := writeMessage(conn, replayMeta{Type: "meta", Ticker: series.Ticker, Bars: series.Len(), Speed: p.Speed}); err != nil {
		return
	}
	writePump(ctx, conn, frames)
}

// writePump sends frames until the replay ends or the peer goes away,
// pinging every pingPeriod.
func writePump(ctx context.Context, conn *websocket.Conn, frames <-chan replay.Frame) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay complete"))
				return
			}
			if err := writeMessage(conn, replayBar{Type: "bar", Frame: f}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// readPump drains control frames and cancels the replay when the peer disconnects.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
