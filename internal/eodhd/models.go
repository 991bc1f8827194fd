package eodhd

import (
	"sort"
	"time"
)

// EODData represents a single day's end-of-day price data.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is a slice of EODData.
type EODResponse []EODData

// NewsItem represents a single news article.
type NewsItem struct {
	Date    time.Time `json:"-"`
	DateStr string    `json:"date"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Link    string    `json:"link"`
	Symbols []string  `json:"symbols"`
	Tags    []string  `json:"tags"`
}

// NewsResponse is a slice of NewsItem.
type NewsResponse []NewsItem

// FundamentalsResponse is the subset of /fundamentals the analysis reads.
type FundamentalsResponse struct {
	General         *GeneralInfo     `json:"General"`
	Highlights      *Highlights      `json:"Highlights"`
	Valuation       *Valuation       `json:"Valuation"`
	SharesStats     *SharesStats     `json:"SharesStats"`
	SplitsDividends *SplitsDividends `json:"SplitsDividends"`
	AnalystRatings  *AnalystRatings  `json:"AnalystRatings"`
	Earnings        *Earnings        `json:"Earnings"`
	Financials      *Financials      `json:"Financials"`
}

type GeneralInfo struct {
	Code         string `json:"Code"`
	Type         string `json:"Type"`
	Name         string `json:"Name"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	GicSector    string `json:"GicSector"`
}

// Highlights contains key financial highlights. Margins and growth are fractions.
type Highlights struct {
	MarketCapitalization       Number `json:"MarketCapitalization"`
	EBITDA                     Number `json:"EBITDA"`
	PERatio                    Number `json:"PERatio"`
	PEGRatio                   Number `json:"PEGRatio"`
	WallStreetTargetPrice      Number `json:"WallStreetTargetPrice"`
	EarningsShare              Number `json:"EarningsShare"`
	ProfitMargin               Number `json:"ProfitMargin"`
	OperatingMarginTTM         Number `json:"OperatingMarginTTM"`
	RevenueTTM                 Number `json:"RevenueTTM"`
	GrossProfitTTM             Number `json:"GrossProfitTTM"`
	QuarterlyRevenueGrowthYOY  Number `json:"QuarterlyRevenueGrowthYOY"`
	QuarterlyEarningsGrowthYOY Number `json:"QuarterlyEarningsGrowthYOY"`
}

type Valuation struct {
	TrailingPE            Number `json:"TrailingPE"`
	ForwardPE             Number `json:"ForwardPE"`
	PriceSalesTTM         Number `json:"PriceSalesTTM"`
	PriceBookMRQ          Number `json:"PriceBookMRQ"`
	EnterpriseValueEbitda Number `json:"EnterpriseValueEbitda"`
}

type SharesStats struct {
	SharesOutstanding Number `json:"SharesOutstanding"`
}

type SplitsDividends struct {
	DividendDate   string `json:"DividendDate"`
	ExDividendDate string `json:"ExDividendDate"`
}

// AnalystRatings is the consensus block. Rating runs from 1 (strong sell) to 5 (strong buy).
type AnalystRatings struct {
	Rating      Number `json:"Rating"`
	TargetPrice Number `json:"TargetPrice"`
	StrongBuy   int    `json:"StrongBuy"`
	Buy         int    `json:"Buy"`
	Hold        int    `json:"Hold"`
	Sell        int    `json:"Sell"`
	StrongSell  int    `json:"StrongSell"`
}

// Earnings history and trend are keyed by period date.
type Earnings struct {
	History map[string]EarningsHistoryEntry `json:"History"`
	Trend   map[string]EarningsTrendEntry   `json:"Trend"`
}

type EarningsHistoryEntry struct {
	ReportDate  string `json:"reportDate"`
	Date        string `json:"date"`
	EPSActual   Number `json:"epsActual"`
	EPSEstimate Number `json:"epsEstimate"`
}

type EarningsTrendEntry struct {
	Date                 string `json:"date"`
	Period               string `json:"period"` // 0q current quarter, +1q, 0y, +1y
	EarningsEstimateAvg  Number `json:"earningsEstimateAvg"`
	EarningsEstimateLow  Number `json:"earningsEstimateLow"`
	EarningsEstimateHigh Number `json:"earningsEstimateHigh"`
}

// Financials contains financial statements.
type Financials struct {
	BalanceSheet    *FinancialStatement `json:"Balance_Sheet"`
	CashFlow        *FinancialStatement `json:"Cash_Flow"`
	IncomeStatement *FinancialStatement `json:"Income_Statement"`
}

// StatementRow is one period of a statement. Values arrive as numbers,
// numeric strings or null.
type StatementRow map[string]interface{}

// FinancialStatement holds periods keyed by their end date.
type FinancialStatement struct {
	Currency  string                  `json:"currency"`
	Quarterly map[string]StatementRow `json:"quarterly"`
	Yearly    map[string]StatementRow `json:"yearly"`
}

// Value returns the named line item, or nil when missing or unparseable
func (r StatementRow) Value(key string) *float64 {
	if r == nil {
		return nil
	}
	switch v := r[key].(type) {
	case float64:
		return &v
	case string:
		if f, ok := parseNumber(v); ok {
			return &f
		}
	case int64:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

// Periods returns the keys of rows newest first
func Periods(rows map[string]StatementRow) []string {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// Latest returns the newest row, or nil when there are none
func Latest(rows map[string]StatementRow) StatementRow {
	keys := Periods(rows)
	if len(keys) == 0 {
		return nil
	}
	return rows[keys[0]]
}

// OptionsResponse is the /options chain grouped by expiry.
type OptionsResponse struct {
	Code           string          `json:"code"`
	Exchange       string          `json:"exchange"`
	LastTradeDate  string          `json:"lastTradeDate"`
	LastTradePrice Number          `json:"lastTradePrice"`
	Data           []OptionsExpiry `json:"data"`
}

type OptionsExpiry struct {
	ExpirationDate string `json:"expirationDate"`
	// Options is keyed by "CALL" and "PUT"
	Options map[string][]OptionQuote `json:"options"`
}

// OptionQuote is one contract. ImpliedVolatility is in percent.
type OptionQuote struct {
	ContractName      string `json:"contractName"`
	Type              string `json:"type"`
	Strike            Number `json:"strike"`
	Bid               Number `json:"bid"`
	Ask               Number `json:"ask"`
	Volume            Number `json:"volume"`
	OpenInterest      Number `json:"openInterest"`
	ImpliedVolatility Number `json:"impliedVolatility"`
	Delta             Number `json:"delta"`
	Gamma             Number `json:"gamma"`
	Theta             Number `json:"theta"`
	Vega              Number `json:"vega"`
}

// SortedExpiries returns the chain's expiries in ascending date order
func (r *OptionsResponse) SortedExpiries() []OptionsExpiry {
	out := make([]OptionsExpiry, len(r.Data))
	copy(out, r.Data)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpirationDate < out[j].ExpirationDate
	})
	return out
}
