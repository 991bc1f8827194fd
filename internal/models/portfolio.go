package models

// PortfolioHolding is one position. Weight is percent of total value.
type PortfolioHolding struct {
	Ticker      string   `json:"ticker" yaml:"ticker"`
	Shares      float64  `json:"shares" yaml:"shares"`
	MarketValue *float64 `json:"market_value,omitempty" yaml:"market_value,omitempty"`
	Weight      *float64 `json:"weight,omitempty" yaml:"-"`
	CostBasis   *float64 `json:"cost_basis,omitempty" yaml:"cost_basis,omitempty"`
}

// PortfolioContext is the portfolio dimension's computed snapshot
type PortfolioContext struct {
	Holdings             []PortfolioHolding `json:"holdings"`
	TotalValue           *float64           `json:"total_value,omitempty"`
	TargetWeight         *float64           `json:"target_weight,omitempty"`
	CurrentWeight        *float64           `json:"current_weight,omitempty"`
	TopCorrelations      []Correlation      `json:"top_correlations"`
	MaxCorrelation       *float64           `json:"max_correlation,omitempty"`
	DiversificationScore *float64           `json:"diversification_score,omitempty"`
}

// Correlation of daily returns between the analyzed ticker and a holding
type Correlation struct {
	Ticker string  `json:"ticker"`
	Value  float64 `json:"value"`
}
