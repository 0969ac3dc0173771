package model

// ChartPoint is one portfolio-value observation on the performance chart.
type ChartPoint struct {
	Date           string  `json:"date"`
	PortfolioValue float64 `json:"portfolio_value"`
	Price          float64 `json:"price"`
	Volume         float64 `json:"volume"`
}

// MetricsResult is the analytics bundle for one ticker over one window.
// All return figures are fractions (0.03 == 3%).
type MetricsResult struct {
	TotalReturn       float64      `json:"total_return"`
	FinalValue        float64      `json:"final_value"`
	Volatility        float64      `json:"volatility"`
	SharpeRatio       float64      `json:"sharpe_ratio"`
	MaxDrawdown       float64      `json:"max_drawdown"`
	AnnualizedReturn  float64      `json:"annualized_return"`
	Chart             []ChartPoint `json:"chart_data"`
	DataPoints        int          `json:"data_points"`
	Ticker            string       `json:"ticker"`
	StartDate         string       `json:"start_date"`
	EndDate           string       `json:"end_date"`
	InitialInvestment float64      `json:"initial_investment"`
}

// Quote is the latest price and day-over-day change for a display id.
type Quote struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"currentPrice"`
	Change       float64 `json:"change"` // percent
}

// YearValue is the portfolio value on the first day of a calendar year
// within a simulation window.
type YearValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Simulation is a buy-and-hold backtest of a weighted allocation. Weights
// are normalized to sum to 1; return figures are fractions.
type Simulation struct {
	Weights          map[string]float64 `json:"asset_weights"`
	InitialCapital   float64            `json:"initial_capital"`
	FinalValue       float64            `json:"final_value"`
	TotalReturn      float64            `json:"total_return"`
	AnnualizedReturn float64            `json:"annualized_return"`
	Volatility       float64            `json:"volatility"`
	SharpeRatio      float64            `json:"sharpe_ratio"`
	MaxDrawdown      float64            `json:"max_drawdown"`
	DataPoints       int                `json:"data_points"`
	StartDate        string             `json:"start_date"`
	EndDate          string             `json:"end_date"`
	PerformanceChart []YearValue        `json:"performance_chart"`
}
