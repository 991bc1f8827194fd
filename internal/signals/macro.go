package signals

import (
	"github.com/ternarybob/indepth/internal/models"
)

// Benchmark symbols fetched alongside the analyzed ticker
const (
	MarketBenchmark  = "SPY"
	TenYearYield     = "^TNX"
	DefaultSectorETF = "XLK"
)

// SectorETFs maps a company sector to its SPDR sector fund
var SectorETFs = map[string]string{
	"Technology":             "XLK",
	"Healthcare":             "XLV",
	"Financials":             "XLF",
	"Financial Services":     "XLF",
	"Consumer Cyclical":      "XLY",
	"Consumer Defensive":     "XLP",
	"Energy":                 "XLE",
	"Utilities":              "XLU",
	"Industrials":            "XLI",
	"Basic Materials":        "XLB",
	"Real Estate":            "XLRE",
	"Communication Services": "XLC",
}

// SectorETF returns the sector fund for sector, XLK when unknown
func SectorETF(sector string) string {
	if etf, ok := SectorETFs[sector]; ok {
		return etf
	}
	return DefaultSectorETF
}

// Trading-day lookbacks
const (
	bars1M = 21
	bars3M = 63
	bars6M = 126
	bars1Y = 252

	rateTrendThreshold = 0.5
)

// MacroHistories carries the daily bars the macro dimension compares
type MacroHistories struct {
	Stock  []models.PriceBar
	Market []models.PriceBar
	Sector []models.PriceBar
	Yield  []models.PriceBar
}

// MacroAnalyzer compares the stock against its sector and the market
type MacroAnalyzer struct{}

func NewMacroAnalyzer() *MacroAnalyzer {
	return &MacroAnalyzer{}
}

// Analyze computes relative performance and the rate backdrop
func (a *MacroAnalyzer) Analyze(sector string, h MacroHistories) (*models.MacroData, models.SignalWithConfidence) {
	stock := closes(h.Stock)
	market := closes(h.Market)
	sec := closes(h.Sector)

	stock1M, stock3M, stock6M := periodReturn(stock, bars1M), periodReturn(stock, bars3M), periodReturn(stock, bars6M)
	sec1M, sec3M, sec6M := periodReturn(sec, bars1M), periodReturn(sec, bars3M), periodReturn(sec, bars6M)
	spy1M, spy3M := periodReturn(market, bars1M), periodReturn(market, bars3M)

	name := sector
	if name == "" {
		name = "Unknown"
	}

	data := &models.MacroData{
		Sector: models.SectorPerformance{
			SectorName:       name,
			SectorETF:        SectorETF(sector),
			SectorReturn1M:   sec1M,
			SectorReturn3M:   sec3M,
			SectorReturn6M:   sec6M,
			SectorReturn1Y:   periodReturn(sec, bars1Y),
			StockVsSector1M:  diff(stock1M, sec1M),
			StockVsSector3M:  diff(stock3M, sec3M),
			StockVsSector6M:  diff(stock6M, sec6M),
			RelativeStrength: diff(stock3M, sec3M),
		},
		Rates:           rateEnvironment(closes(h.Yield)),
		SPYReturn1M:     spy1M,
		SPYReturn3M:     spy3M,
		StockVsMarket1M: diff(stock1M, spy1M),
		StockVsMarket3M: diff(stock3M, spy3M),
	}

	return data, a.score(data)
}

// rateEnvironment reads the 10y yield trend over roughly three months
func rateEnvironment(yield []float64) models.RateEnvironment {
	if len(yield) == 0 {
		return models.RateEnvironment{RateTrend: models.RateTrendUnknown}
	}

	current := yield[len(yield)-1]
	prev := yield[0]
	if len(yield) >= bars3M {
		prev = yield[len(yield)-bars3M]
	}

	trend := models.RateTrendStable
	if current-prev > rateTrendThreshold {
		trend = models.RateTrendRising
	} else if prev-current > rateTrendThreshold {
		trend = models.RateTrendFalling
	}

	return models.RateEnvironment{TenYearYield: &current, RateTrend: trend}
}

func (a *MacroAnalyzer) score(data *models.MacroData) models.SignalWithConfidence {
	var card scorecard

	if rs := data.Sector.RelativeStrength; rs != nil {
		switch {
		case *rs > 5:
			card.add(0.5, "Outperforming sector")
		case *rs > 0:
			card.add(0.2, "Slightly above sector")
		case *rs > -5:
			card.add(-0.2, "Slightly below sector")
		default:
			card.add(-0.5, "Underperforming sector")
		}
	}

	if vs := data.StockVsMarket3M; vs != nil {
		switch {
		case *vs > 5:
			card.add(0.4, "Beating market")
		case *vs < -5:
			card.add(-0.4, "Lagging market")
		default:
			card.add(0, "In-line with market")
		}
	}

	switch data.Rates.RateTrend {
	case models.RateTrendRising:
		card.add(-0.2, "Rising rate environment")
	case models.RateTrendFalling:
		card.add(0.2, "Falling rate environment")
	}

	if card.empty() {
		return neutral(0.3, "Limited macro data")
	}
	return card.scaled(0.7, 3)
}
