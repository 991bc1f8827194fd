package models

// ValuationMetrics are price-relative multiples
type ValuationMetrics struct {
	PERatio    *float64 `json:"pe_ratio,omitempty"`
	ForwardPE  *float64 `json:"forward_pe,omitempty"`
	PBRatio    *float64 `json:"pb_ratio,omitempty"`
	PSRatio    *float64 `json:"ps_ratio,omitempty"`
	PEGRatio   *float64 `json:"peg_ratio,omitempty"`
	EVToEBITDA *float64 `json:"ev_to_ebitda,omitempty"`
	MarketCap  *float64 `json:"market_cap,omitempty"`
}

// GrowthMetrics are growth rates in percent
type GrowthMetrics struct {
	RevenueGrowthYoY        *float64 `json:"revenue_growth_yoy,omitempty"`
	EarningsGrowthYoY       *float64 `json:"earnings_growth_yoy,omitempty"`
	RevenueGrowthQuarterly  *float64 `json:"revenue_growth_quarterly,omitempty"`
	EarningsGrowthQuarterly *float64 `json:"earnings_growth_quarterly,omitempty"`
}

// MarginMetrics are margins in percent
type MarginMetrics struct {
	GrossMargin     *float64 `json:"gross_margin,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty"`
	ProfitMargin    *float64 `json:"profit_margin,omitempty"`
	FCFMargin       *float64 `json:"fcf_margin,omitempty"`
}

// BalanceSheetHealth holds leverage and liquidity figures.
// DebtToEquity is a ratio (0.5 = 50%).
type BalanceSheetHealth struct {
	CurrentRatio     *float64 `json:"current_ratio,omitempty"`
	DebtToEquity     *float64 `json:"debt_to_equity,omitempty"`
	InterestCoverage *float64 `json:"interest_coverage,omitempty"`
	CashPerShare     *float64 `json:"cash_per_share,omitempty"`
	TotalCash        *float64 `json:"total_cash,omitempty"`
	TotalDebt        *float64 `json:"total_debt,omitempty"`
}

// FundamentalData is the fundamental dimension's input snapshot
type FundamentalData struct {
	Valuation    ValuationMetrics   `json:"valuation"`
	Growth       GrowthMetrics      `json:"growth"`
	Margins      MarginMetrics      `json:"margins"`
	BalanceSheet BalanceSheetHealth `json:"balance_sheet"`
}

// FundamentalsHistory is a quarterly series, oldest first
type FundamentalsHistory struct {
	Dates           []string  `json:"dates"`
	Revenue         []float64 `json:"revenue"`
	NetIncome       []float64 `json:"net_income"`
	GrossMargin     []float64 `json:"gross_margin"`
	OperatingMargin []float64 `json:"operating_margin"`
	ProfitMargin    []float64 `json:"profit_margin"`
}
