package models

// CompanySnapshot is the normalized company profile an analysis run reads.
// Every metric is optional; ratios are fractions (0.25 = 25%) unless noted.
type CompanySnapshot struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`

	CurrentPrice *float64 `json:"current_price,omitempty"`

	TrailingPE   *float64 `json:"trailing_pe,omitempty"`
	ForwardPE    *float64 `json:"forward_pe,omitempty"`
	PriceToBook  *float64 `json:"price_to_book,omitempty"`
	PriceToSales *float64 `json:"price_to_sales,omitempty"`
	PEGRatio     *float64 `json:"peg_ratio,omitempty"`
	EVToEBITDA   *float64 `json:"ev_to_ebitda,omitempty"`
	MarketCap    *float64 `json:"market_cap,omitempty"`

	RevenueGrowth           *float64 `json:"revenue_growth,omitempty"`
	EarningsGrowth          *float64 `json:"earnings_growth,omitempty"`
	RevenueQuarterlyGrowth  *float64 `json:"revenue_quarterly_growth,omitempty"`
	EarningsQuarterlyGrowth *float64 `json:"earnings_quarterly_growth,omitempty"`

	GrossMargins     *float64 `json:"gross_margins,omitempty"`
	OperatingMargins *float64 `json:"operating_margins,omitempty"`
	ProfitMargins    *float64 `json:"profit_margins,omitempty"`
	TotalRevenue     *float64 `json:"total_revenue,omitempty"`  // latest annual
	FreeCashFlow     *float64 `json:"free_cash_flow,omitempty"` // latest annual
	CurrentRatio     *float64 `json:"current_ratio,omitempty"`
	DebtToEquity     *float64 `json:"debt_to_equity,omitempty"` // percent, 150 = 1.5x
	InterestCoverage *float64 `json:"interest_coverage,omitempty"`
	CashPerShare     *float64 `json:"cash_per_share,omitempty"`
	TotalCash        *float64 `json:"total_cash,omitempty"`
	TotalDebt        *float64 `json:"total_debt,omitempty"`

	TargetMeanPrice   *float64      `json:"target_mean_price,omitempty"`
	TargetMedianPrice *float64      `json:"target_median_price,omitempty"`
	TargetHighPrice   *float64      `json:"target_high_price,omitempty"`
	TargetLowPrice    *float64      `json:"target_low_price,omitempty"`
	RecommendationKey string        `json:"recommendation_key"`
	AnalystOpinions   int           `json:"analyst_opinions"`
	Ratings           *RatingCounts `json:"ratings,omitempty"`

	Quarterly []QuarterlyFinancials `json:"quarterly"` // newest first
	Calendar  CalendarInfo          `json:"calendar"`
}

// RatingCounts is the analyst recommendation distribution
type RatingCounts struct {
	StrongBuy  int `json:"strong_buy"`
	Buy        int `json:"buy"`
	Hold       int `json:"hold"`
	Sell       int `json:"sell"`
	StrongSell int `json:"strong_sell"`
}

// QuarterlyFinancials is one income statement period
type QuarterlyFinancials struct {
	Date            string   `json:"date"`
	Revenue         *float64 `json:"revenue,omitempty"`
	NetIncome       *float64 `json:"net_income,omitempty"`
	GrossProfit     *float64 `json:"gross_profit,omitempty"`
	OperatingIncome *float64 `json:"operating_income,omitempty"`
}

// CalendarInfo holds upcoming corporate event dates
type CalendarInfo struct {
	EarningsDates   []string `json:"earnings_dates"`
	EarningsAverage *float64 `json:"earnings_average,omitempty"`
	EarningsLow     *float64 `json:"earnings_low,omitempty"`
	EarningsHigh    *float64 `json:"earnings_high,omitempty"`
	DividendDate    string   `json:"dividend_date"`
	ExDividendDate  string   `json:"ex_dividend_date"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
