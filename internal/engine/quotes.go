package engine

import (
	"context"
	"log/slog"
	"strings"

	"market-engine/internal/logger"
	"market-engine/internal/model"
	"market-engine/internal/numeric"
)

// quoteLookback is the number of days of history read to price a quote.
const quoteLookback = 5

var quoteSymbols = map[string]string{
	"apple":     "AAPL",
	"microsoft": "MSFT",
	"nvidia":    "NVDA",
	"tesla":     "TSLA",
	"sp500":     "SPY",
	"etf":       "VT",
	"bitcoin":   "BTC-USD",
	"ethereum":  "ETH-USD",
}

// QuoteSymbol maps a quote id (e.g. "apple") to its ticker.
func QuoteSymbol(id string) (string, bool) {
	sym, ok := quoteSymbols[strings.ToLower(strings.TrimSpace(id))]
	return sym, ok
}

// Quotes prices each known id from the last two points of its series ending
// today. Unknown ids and ids without a positive price are dropped.
func (s *Service) Quotes(ctx context.Context, ids []string) []model.Quote {
	today := model.Day(s.now())
	from := today.AddDate(0, 0, -quoteLookback)

	quotes := make([]model.Quote, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := strings.ToLower(strings.TrimSpace(raw))
		sym, ok := quoteSymbols[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		closes := s.series(ctx, sym, from, today).Closes()
		if len(closes) == 0 {
			continue
		}
		latest := numeric.Sanitize(closes[len(closes)-1])
		prev := latest
		if len(closes) > 1 {
			prev = numeric.Sanitize(closes[len(closes)-2])
		}
		if latest <= 0 {
			slog.Warn("[engine] invalid quote price", append(logger.LogWithRequest(ctx), "symbol", sym, "price", latest)...)
			continue
		}
		change := 0.0
		if prev > 0 {
			change = (latest - prev) / prev * 100
		}
		quotes = append(quotes, model.Quote{
			ID:           id,
			Symbol:       sym,
			CurrentPrice: numeric.Round2(latest),
			Change:       numeric.Round2(change),
		})
	}
	return quotes
}
