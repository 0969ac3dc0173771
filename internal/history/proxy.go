// Package history holds the static lookups used for historical-event
// simulations: ticker proxies per era and the window of each event year.
// Tables are built once and never mutated.
package history

// sp500 is the broad-market index used as the default stand-in.
const sp500 = "^GSPC"

// ProxyTable maps (ticker, event year) to a substitute ticker that has
// reliable data for that era.
type ProxyTable struct {
	byTicker map[string]map[int]string
}

// NewProxyTable copies entries into an immutable table.
func NewProxyTable(entries map[string]map[int]string) *ProxyTable {
	t := &ProxyTable{byTicker: make(map[string]map[int]string, len(entries))}
	for ticker, eras := range entries {
		m := make(map[int]string, len(eras))
		for year, proxy := range eras {
			m[year] = proxy
		}
		t.byTicker[ticker] = m
	}
	return t
}

// DefaultProxies returns the built-in table. Crypto trackers and commodity or
// currency ETFs map to the S&P 500 before their inception.
func DefaultProxies() *ProxyTable {
	return NewProxyTable(map[string]map[int]string{
		"GLD":     {1990: sp500, 2000: sp500, 2008: "GLD", 2020: "GLD", 2025: "GLD"},
		"BTC-USD": {1990: sp500, 2000: sp500, 2008: sp500, 2020: "BTC-USD", 2025: "BTC-USD"},
		"ETH-USD": {1990: sp500, 2000: sp500, 2008: sp500, 2020: "ETH-USD", 2025: "ETH-USD"},
		"UUP":     {1990: sp500, 2000: sp500, 2008: "UUP", 2020: "UUP", 2025: "UUP"},
	})
}

// Resolve returns the proxy for ticker in year. Eras match exactly; a ticker
// or era absent from the table passes through unchanged.
func (t *ProxyTable) Resolve(ticker string, year int) string {
	eras, ok := t.byTicker[ticker]
	if !ok {
		return ticker
	}
	if proxy, ok := eras[year]; ok {
		return proxy
	}
	return ticker
}
