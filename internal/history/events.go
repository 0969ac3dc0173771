package history

// Event describes a historical market episode players can simulate.
type Event struct {
	Year             int      `json:"year"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	AvailableAssets  []string `json:"available_assets"`
	MarketVolatility string   `json:"market_volatility"`
	OpenTrading      bool     `json:"open_trading"`
}

var events = []Event{
	{
		Year:             1990,
		Title:            "Japanese Bubble Economy Collapse",
		Description:      "The bursting of Japan's real estate and stock market bubbles",
		AvailableAssets:  []string{"NIKKEI", "GOLD", "BONDS"},
		MarketVolatility: "high",
		OpenTrading:      true,
	},
	{
		Year:             2000,
		Title:            "Dot-com Bubble Burst",
		Description:      "Tech stocks plummeted, Nasdaq fell 78%",
		AvailableAssets:  []string{"QQQ", "GOLD", "BONDS"},
		MarketVolatility: "high",
		OpenTrading:      true,
	},
	{
		Year:             2008,
		Title:            "Global Financial Crisis",
		Description:      "Subprime mortgage collapse triggered a worldwide banking crisis",
		AvailableAssets:  []string{"VTI", "GLD", "BND"},
		MarketVolatility: "extreme",
		OpenTrading:      true,
	},
	{
		Year:             2020,
		Title:            "COVID-19 Pandemic Crash",
		Description:      "Fastest bear market in history followed by a rapid recovery",
		AvailableAssets:  []string{"VTI", "GLD", "BND", "BTC-USD"},
		MarketVolatility: "extreme",
		OpenTrading:      true,
	},
	{
		Year:             2025,
		Title:            "Current Challenges",
		Description:      "Inflation, rate hikes and AI-driven market concentration",
		AvailableAssets:  []string{"VTI", "GLD", "BND", "BTC-USD", "ETH-USD"},
		MarketVolatility: "medium",
		OpenTrading:      true,
	},
}

// Events returns a copy of the event catalog, ordered by year.
func Events() []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		e.AvailableAssets = append([]string(nil), e.AvailableAssets...)
		out[i] = e
	}
	return out
}
