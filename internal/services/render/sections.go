package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/indepth/internal/models"
)

// section is one metric table shared by the console and markdown renderers.
// Rows have either two cells (metric, value) or four (two metric pairs).
type section struct {
	title  string
	rows   [][]string
	signal *models.SignalWithConfidence
}

func (s section) wide() bool {
	return len(s.rows) > 0 && len(s.rows[0]) == 4
}

func fundamentalSection(r *models.InvestmentReport) section {
	v := r.Fundamental.Valuation
	g := r.Fundamental.Growth
	m := r.Fundamental.Margins
	b := r.Fundamental.BalanceSheet
	return section{
		title: "Fundamental Analysis",
		rows: [][]string{
			{"P/E", Number(v.PERatio, 2), "Fwd P/E", Number(v.ForwardPE, 2)},
			{"P/B", Number(v.PBRatio, 2), "P/S", Number(v.PSRatio, 2)},
			{"PEG", Number(v.PEGRatio, 2), "EV/EBITDA", Number(v.EVToEBITDA, 2)},
			{"Rev Growth", Pct(g.RevenueGrowthYoY, 2), "EPS Growth", Pct(g.EarningsGrowthYoY, 2)},
			{"Gross Margin", Pct(m.GrossMargin, 2), "Op Margin", Pct(m.OperatingMargin, 2)},
			{"Profit Margin", Pct(m.ProfitMargin, 2), "FCF Margin", Pct(m.FCFMargin, 2)},
			{"Current Ratio", Ratio(b.CurrentRatio), "D/E", Ratio(b.DebtToEquity)},
			{"Mkt Cap", LargeNumber(v.MarketCap), "Cash", LargeNumber(b.TotalCash)},
		},
		signal: r.FundamentalSignal,
	}
}

func technicalSection(r *models.InvestmentReport) section {
	t := r.Technical
	ma := t.MovingAverages
	mom := t.Momentum
	sr := t.SupportResistance
	return section{
		title: "Technical Analysis",
		rows: [][]string{
			{"Price", Price(t.CurrentPrice), "RSI(14)", Number(mom.RSI14, 2)},
			{"SMA(20)", Price(ma.SMA20), "vs SMA(20)", Pct(ma.PriceVsSMA20, 2)},
			{"SMA(50)", Price(ma.SMA50), "vs SMA(50)", Pct(ma.PriceVsSMA50, 2)},
			{"SMA(200)", Price(ma.SMA200), "vs SMA(200)", Pct(ma.PriceVsSMA200, 2)},
			{"MACD", Number(mom.MACD, 2), "MACD Sig", Number(mom.MACDSignal, 2)},
			{"Support", Price(sr.NearestSupport), "Resistance", Price(sr.NearestResistance)},
			{"Short Trend", t.Trend.ShortTerm, "Med Trend", t.Trend.MediumTerm},
		},
		signal: r.TechnicalSignal,
	}
}

func optionsSection(r *models.InvestmentReport) section {
	o := r.Options
	rows := [][]string{
		{"IV Current", Pct(o.IVCurrent, 2)},
		{"IV Percentile", Pct(o.IVPercentile, 2)},
		{"Put/Call Vol Ratio", Number(o.PutCallRatio, 2)},
		{"Put/Call OI Ratio", Number(o.PutCallOIRatio, 2)},
		{"Total Call Volume", count(o.TotalCallVolume)},
		{"Total Put Volume", count(o.TotalPutVolume)},
		{"Max Pain", Price(o.MaxPain)},
	}
	for i, note := range o.UnusualActivity {
		if i == 5 {
			break
		}
		rows = append(rows, []string{"Unusual", note})
	}
	return section{title: "Options Flow", rows: rows, signal: r.OptionsSignal}
}

func macroSection(r *models.InvestmentReport) section {
	m := r.Macro
	return section{
		title: "Macro & Sector",
		rows: [][]string{
			{"Sector", m.Sector.SectorName},
			{"Sector ETF", m.Sector.SectorETF},
			{"Sector 1M", Pct(m.Sector.SectorReturn1M, 2)},
			{"vs Sector 1M", Pct(m.Sector.StockVsSector1M, 2)},
			{"vs Sector 3M", Pct(m.Sector.StockVsSector3M, 2)},
			{"SPY 1M", Pct(m.SPYReturn1M, 2)},
			{"vs SPY 1M", Pct(m.StockVsMarket1M, 2)},
			{"10Y Yield", Pct(m.Rates.TenYearYield, 2)},
			{"Rate Trend", m.Rates.RateTrend},
		},
		signal: r.MacroSignal,
	}
}

func sentimentSection(r *models.InvestmentReport) section {
	s := r.Sentiment
	return section{
		title: "Analyst Sentiment",
		rows: [][]string{
			{"Consensus", s.Recommendation},
			{"Analysts", fmt.Sprintf("%d", s.AnalystCount)},
			{"Buy / Hold / Sell", fmt.Sprintf("%d / %d / %d", s.BuyCount, s.HoldCount, s.SellCount)},
			{"Mean Target", Price(s.MeanTarget)},
			{"Median Target", Price(s.MedianTarget)},
			{"Range", Price(s.LowTarget) + " to " + Price(s.HighTarget)},
			{"Upside", Pct(s.UpsidePct, 2)},
		},
		signal: r.SentimentSignal,
	}
}

func portfolioSection(r *models.InvestmentReport) section {
	p := r.Portfolio
	rows := [][]string{
		{"Portfolio Value", LargeNumber(p.TotalValue)},
		{"Current Weight", Pct(p.CurrentWeight, 2)},
		{"Max Correlation", Number(p.MaxCorrelation, 2)},
		{"Diversif. Score", Number(p.DiversificationScore, 2)},
	}

	top := append([]models.Correlation(nil), p.TopCorrelations...)
	sort.SliceStable(top, func(i, j int) bool {
		return math.Abs(top[i].Value) > math.Abs(top[j].Value)
	})
	if len(top) > 5 {
		top = top[:5]
	}
	for _, c := range top {
		v := c.Value
		rows = append(rows, []string{"Corr w/ " + c.Ticker, Number(&v, 2)})
	}
	return section{title: "Portfolio Context", rows: rows, signal: r.PortfolioSignal}
}

// summaryRows is the signal summary table: dimension, weight, signal, confidence, score
func summaryRows(r *models.InvestmentReport) [][]string {
	rows := make([][]string, 0, len(r.DimensionResults))
	for _, d := range r.DimensionResults {
		weight := fmt.Sprintf("%.0f%%", d.Weight*100)
		if !d.Available {
			rows = append(rows, []string{d.Name, weight, "-", "-", "-"})
			continue
		}
		score := d.Signal.WeightedScore()
		rows = append(rows, []string{
			d.Name,
			weight,
			d.Signal.Signal.String(),
			ConfidenceBar(d.Signal.Confidence),
			Number(&score, 2),
		})
	}
	return rows
}

func companyName(r *models.InvestmentReport) string {
	if r.CompanyName != "" {
		return r.CompanyName
	}
	return r.Ticker
}
