package signals

import (
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/indepth/internal/models"
)

const (
	minCorrelationPoints = 10
	maxTopCorrelations   = 5
)

// PortfolioAnalyzer scores how a position would fit the existing holdings
type PortfolioAnalyzer struct{}

func NewPortfolioAnalyzer() *PortfolioAnalyzer {
	return &PortfolioAnalyzer{}
}

// Tickers returns the symbols whose history the analyzer needs: every holding plus the target
func (a *PortfolioAnalyzer) Tickers(target string, holdings []models.PortfolioHolding) []string {
	target = strings.ToUpper(target)
	seen := make(map[string]bool)
	var out []string
	for _, h := range holdings {
		if !seen[h.Ticker] {
			seen[h.Ticker] = true
			out = append(out, h.Ticker)
		}
	}
	if !seen[target] {
		out = append(out, target)
	}
	return out
}

// Analyze weights the holdings and correlates daily returns against the target.
// histories is keyed by ticker; missing or short histories are skipped.
func (a *PortfolioAnalyzer) Analyze(target string, holdings []models.PortfolioHolding, histories map[string][]models.PriceBar) (*models.PortfolioContext, models.SignalWithConfidence) {
	if len(holdings) == 0 {
		return &models.PortfolioContext{}, neutral(0.2, "No portfolio data")
	}

	target = strings.ToUpper(target)
	weighted := make([]models.PortfolioHolding, len(holdings))
	copy(weighted, holdings)

	total := 0.0
	for _, h := range weighted {
		if truthy(h.MarketValue) {
			total += *h.MarketValue
		}
	}
	for i := range weighted {
		if truthy(weighted[i].MarketValue) && total > 0 {
			w := *weighted[i].MarketValue / total * 100
			weighted[i].Weight = &w
		}
	}

	ctx := &models.PortfolioContext{Holdings: weighted}
	if total != 0 {
		ctx.TotalValue = &total
	}
	for _, h := range weighted {
		if h.Ticker == target {
			ctx.CurrentWeight = h.Weight
			break
		}
	}

	correlations := correlate(target, histories)
	if len(correlations) > 0 {
		ranked := make([]models.Correlation, len(correlations))
		copy(ranked, correlations)
		sort.SliceStable(ranked, func(i, j int) bool {
			return math.Abs(ranked[i].Value) > math.Abs(ranked[j].Value)
		})
		if len(ranked) > maxTopCorrelations {
			ranked = ranked[:maxTopCorrelations]
		}
		ctx.TopCorrelations = ranked

		maxAbs, sumAbs := 0.0, 0.0
		for _, c := range correlations {
			maxAbs = math.Max(maxAbs, math.Abs(c.Value))
			sumAbs += math.Abs(c.Value)
		}
		ctx.MaxCorrelation = &maxAbs

		if len(a.Tickers(target, holdings)) > 1 {
			score := math.Max(0, (1-sumAbs/float64(len(correlations)))*100)
			ctx.DiversificationScore = &score
		}
	}

	return ctx, a.score(ctx)
}

// correlate returns the Pearson correlation of daily returns between target and
// every other ticker, in ticker order, rounded to 3dp
func correlate(target string, histories map[string][]models.PriceBar) []models.Correlation {
	returns := make(map[string]map[string]float64)
	for ticker, bars := range histories {
		if len(bars) > minCorrelationPoints {
			returns[strings.ToUpper(ticker)] = dailyReturns(bars)
		}
	}

	base, ok := returns[target]
	if !ok {
		return nil
	}
	baseDates := make([]string, 0, len(base))
	for d := range base {
		baseDates = append(baseDates, d)
	}
	sort.Strings(baseDates)

	others := make([]string, 0, len(returns))
	for ticker := range returns {
		if ticker != target {
			others = append(others, ticker)
		}
	}
	sort.Strings(others)

	var out []models.Correlation
	for _, ticker := range others {
		series := returns[ticker]
		var x, y []float64
		for _, d := range baseDates {
			if v, ok := series[d]; ok {
				x = append(x, base[d])
				y = append(y, v)
			}
		}
		if len(x) <= minCorrelationPoints {
			continue
		}
		if corr := pearson(x, y); !math.IsNaN(corr) {
			out = append(out, models.Correlation{Ticker: ticker, Value: round(corr, 3)})
		}
	}
	return out
}

// dailyReturns maps each bar's date to its fractional change from the prior close
func dailyReturns(bars []models.PriceBar) map[string]float64 {
	out := make(map[string]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		out[bars[i].Date.Format("2006-01-02")] = bars[i].Close/prev - 1
	}
	return out
}

func (a *PortfolioAnalyzer) score(ctx *models.PortfolioContext) models.SignalWithConfidence {
	var card scorecard

	if w := ctx.CurrentWeight; w != nil {
		switch {
		case *w > 15:
			card.add(-0.5, "Already heavily concentrated")
		case *w > 8:
			card.add(-0.2, "Moderately concentrated")
		case *w > 0:
			card.add(0.1, "Existing small position")
		default:
			card.add(0.3, "New position adds diversification")
		}
	}

	if m := ctx.MaxCorrelation; m != nil {
		if *m > 0.8 {
			card.add(-0.3, "High correlation with existing holdings")
		} else if *m < 0.4 {
			card.add(0.3, "Low correlation, good diversifier")
		}
	}

	if d := ctx.DiversificationScore; d != nil {
		if *d > 70 {
			card.add(0.2, "Well-diversified portfolio")
		} else if *d < 30 {
			card.add(-0.2, "Portfolio needs diversification")
		}
	}

	if card.empty() {
		return neutral(0.3, "Limited portfolio context")
	}
	return card.scaled(0.6, 3)
}
