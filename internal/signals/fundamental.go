package signals

import (
	"github.com/ternarybob/indepth/internal/models"
)

// FundamentalAnalyzer scores valuation, growth, margins and leverage
type FundamentalAnalyzer struct{}

// NewFundamentalAnalyzer creates a FundamentalAnalyzer
func NewFundamentalAnalyzer() *FundamentalAnalyzer {
	return &FundamentalAnalyzer{}
}

// Analyze extracts fundamental metrics from the company snapshot and scores them
func (a *FundamentalAnalyzer) Analyze(company *models.CompanySnapshot) (*models.FundamentalData, models.SignalWithConfidence) {
	data := ExtractFundamentals(company)
	return data, a.score(data)
}

// ExtractFundamentals maps the snapshot into fundamental metrics.
// Growth and margin fractions become percentages; debt/equity percent becomes a ratio.
func ExtractFundamentals(c *models.CompanySnapshot) *models.FundamentalData {
	data := &models.FundamentalData{}
	if c == nil {
		return data
	}

	data.Valuation = models.ValuationMetrics{
		PERatio:    c.TrailingPE,
		ForwardPE:  c.ForwardPE,
		PBRatio:    c.PriceToBook,
		PSRatio:    c.PriceToSales,
		PEGRatio:   c.PEGRatio,
		EVToEBITDA: c.EVToEBITDA,
		MarketCap:  c.MarketCap,
	}

	data.Growth = models.GrowthMetrics{
		RevenueGrowthYoY:        percent(c.RevenueGrowth),
		EarningsGrowthYoY:       percent(c.EarningsGrowth),
		RevenueGrowthQuarterly:  percent(c.RevenueQuarterlyGrowth),
		EarningsGrowthQuarterly: percent(c.EarningsQuarterlyGrowth),
	}

	var fcfMargin *float64
	if truthy(c.TotalRevenue) && truthy(c.FreeCashFlow) && *c.TotalRevenue > 0 {
		v := *c.FreeCashFlow / *c.TotalRevenue * 100
		fcfMargin = &v
	}
	data.Margins = models.MarginMetrics{
		GrossMargin:     percent(c.GrossMargins),
		OperatingMargin: percent(c.OperatingMargins),
		ProfitMargin:    percent(c.ProfitMargins),
		FCFMargin:       fcfMargin,
	}

	var de *float64
	if c.DebtToEquity != nil {
		v := *c.DebtToEquity / 100
		de = &v
	}
	data.BalanceSheet = models.BalanceSheetHealth{
		CurrentRatio:     c.CurrentRatio,
		DebtToEquity:     de,
		InterestCoverage: c.InterestCoverage,
		CashPerShare:     c.CashPerShare,
		TotalCash:        c.TotalCash,
		TotalDebt:        c.TotalDebt,
	}

	return data
}

func (a *FundamentalAnalyzer) score(data *models.FundamentalData) models.SignalWithConfidence {
	var card scorecard

	if pe := data.Valuation.PERatio; pe != nil {
		switch {
		case *pe < 15:
			card.add(0.8, "Low P/E")
		case *pe < 25:
			card.add(0.3, "Moderate P/E")
		case *pe < 40:
			card.add(-0.2, "High P/E")
		default:
			card.add(-0.6, "Very high P/E")
		}
	}

	if peg := data.Valuation.PEGRatio; peg != nil {
		switch {
		case *peg < 1.0:
			card.add(0.7, "PEG < 1 (undervalued)")
		case *peg < 2.0:
			card.add(0.2, "PEG reasonable")
		default:
			card.add(-0.4, "PEG elevated")
		}
	}

	if g := data.Growth.RevenueGrowthYoY; g != nil {
		switch {
		case *g > 20:
			card.add(0.7, "Strong revenue growth")
		case *g > 5:
			card.add(0.3, "Moderate revenue growth")
		case *g > 0:
			card.add(0.0, "Slow revenue growth")
		default:
			card.add(-0.5, "Revenue declining")
		}
	}

	if m := data.Margins.ProfitMargin; m != nil {
		switch {
		case *m > 20:
			card.add(0.6, "Strong profitability")
		case *m > 10:
			card.add(0.3, "Good profitability")
		case *m > 0:
			card.add(0.0, "Thin margins")
		default:
			card.add(-0.5, "Unprofitable")
		}
	}

	if de := data.BalanceSheet.DebtToEquity; de != nil {
		switch {
		case *de < 0.5:
			card.add(0.5, "Low leverage")
		case *de < 1.0:
			card.add(0.2, "Moderate leverage")
		case *de < 2.0:
			card.add(-0.2, "High leverage")
		default:
			card.add(-0.5, "Very high leverage")
		}
	}

	if card.empty() {
		return neutral(0.2, "Insufficient fundamental data")
	}
	return card.scaled(0.9, 5)
}

func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}
