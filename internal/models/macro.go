package models

// Rate trend values
const (
	RateTrendUnknown = "unknown"
	RateTrendRising  = "rising"
	RateTrendFalling = "falling"
	RateTrendStable  = "stable"
)

type SectorPerformance struct {
	SectorName       string   `json:"sector_name"`
	SectorETF        string   `json:"sector_etf"`
	SectorReturn1M   *float64 `json:"sector_return_1m,omitempty"`
	SectorReturn3M   *float64 `json:"sector_return_3m,omitempty"`
	SectorReturn6M   *float64 `json:"sector_return_6m,omitempty"`
	SectorReturn1Y   *float64 `json:"sector_return_1y,omitempty"`
	StockVsSector1M  *float64 `json:"stock_vs_sector_1m,omitempty"`
	StockVsSector3M  *float64 `json:"stock_vs_sector_3m,omitempty"`
	StockVsSector6M  *float64 `json:"stock_vs_sector_6m,omitempty"`
	RelativeStrength *float64 `json:"relative_strength,omitempty"`
}

type RateEnvironment struct {
	TenYearYield     *float64 `json:"ten_year_yield,omitempty"`
	TwoYearYield     *float64 `json:"two_year_yield,omitempty"`
	YieldCurveSpread *float64 `json:"yield_curve_spread,omitempty"`
	FedFundsRate     *float64 `json:"fed_funds_rate,omitempty"`
	RateTrend        string   `json:"rate_trend"`
}

// MacroData is the macro/sector dimension's computed snapshot
type MacroData struct {
	Sector          SectorPerformance `json:"sector"`
	Rates           RateEnvironment   `json:"rates"`
	SPYReturn1M     *float64          `json:"spy_return_1m,omitempty"`
	SPYReturn3M     *float64          `json:"spy_return_3m,omitempty"`
	StockVsMarket1M *float64          `json:"stock_vs_market_1m,omitempty"`
	StockVsMarket3M *float64          `json:"stock_vs_market_3m,omitempty"`
}
