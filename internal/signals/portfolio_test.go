package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/indepth/internal/models"
)

// compound builds closes from a start price and per-bar returns
func compound(start float64, returns []float64) []models.PriceBar {
	closing := []float64{start}
	for _, r := range returns {
		closing = append(closing, closing[len(closing)-1]*(1+r))
	}
	return barsFrom(closing)
}

func sampleReturns(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.01*float64(i%3-1) + 0.002*float64(i%5)
	}
	return out
}

func negate(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = -v
	}
	return out
}

func TestPortfolioAnalyzer_NoHoldings(t *testing.T) {
	ctx, signal := NewPortfolioAnalyzer().Analyze("AAPL", nil, nil)

	assert.Nil(t, ctx.TotalValue)
	assert.Equal(t, models.SignalNeutral, signal.Signal)
	assert.Equal(t, 0.2, signal.Confidence)
	assert.Equal(t, "No portfolio data", signal.Rationale)
}

func TestPortfolioAnalyzer_Weights(t *testing.T) {
	holdings := []models.PortfolioHolding{
		{Ticker: "AAA", Shares: 10, MarketValue: models.Float(6000)},
		{Ticker: "BBB", Shares: 5, MarketValue: models.Float(3000)},
		{Ticker: "CCC", Shares: 1, MarketValue: models.Float(1000)},
	}

	ctx, signal := NewPortfolioAnalyzer().Analyze("bbb", holdings, nil)

	require.NotNil(t, ctx.TotalValue)
	assert.Equal(t, 10000.0, *ctx.TotalValue)
	require.NotNil(t, ctx.CurrentWeight)
	assert.InDelta(t, 30.0, *ctx.CurrentWeight, 1e-9)
	require.NotNil(t, ctx.Holdings[0].Weight)
	assert.InDelta(t, 60.0, *ctx.Holdings[0].Weight, 1e-9)
	assert.Nil(t, holdings[0].Weight, "input holdings are not mutated")
	assert.Nil(t, ctx.MaxCorrelation)

	assert.Equal(t, models.SignalLeanSell, signal.Signal)
	assert.Equal(t, 0.2, signal.Confidence)
	assert.Equal(t, "Already heavily concentrated", signal.Rationale)
}

func TestPortfolioAnalyzer_WeightBands(t *testing.T) {
	tests := []struct {
		value  float64
		reason string
	}{
		{value: 100, reason: "Moderately concentrated"},
		{value: 50, reason: "Existing small position"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			holdings := []models.PortfolioHolding{
				{Ticker: "AAA", MarketValue: models.Float(1000 - tt.value)},
				{Ticker: "TGT", MarketValue: models.Float(tt.value)},
			}
			_, signal := NewPortfolioAnalyzer().Analyze("TGT", holdings, nil)
			assert.Equal(t, tt.reason, signal.Rationale)
		})
	}
}

func TestPortfolioAnalyzer_Correlations(t *testing.T) {
	returns := sampleReturns(40)
	holdings := []models.PortfolioHolding{
		{Ticker: "XXX", MarketValue: models.Float(500)},
		{Ticker: "YYY", MarketValue: models.Float(500)},
	}
	histories := map[string][]models.PriceBar{
		"TGT": compound(100, returns),
		"XXX": compound(20, returns),
		"YYY": compound(50, negate(returns)),
		"ZZZ": compound(10, returns[:5]),
	}

	ctx, signal := NewPortfolioAnalyzer().Analyze("TGT", holdings, histories)

	require.Len(t, ctx.TopCorrelations, 2)
	assert.Equal(t, "XXX", ctx.TopCorrelations[0].Ticker)
	assert.Equal(t, 1.0, ctx.TopCorrelations[0].Value)
	assert.Equal(t, "YYY", ctx.TopCorrelations[1].Ticker)
	assert.Equal(t, -1.0, ctx.TopCorrelations[1].Value)
	require.NotNil(t, ctx.MaxCorrelation)
	assert.Equal(t, 1.0, *ctx.MaxCorrelation)
	require.NotNil(t, ctx.DiversificationScore)
	assert.InDelta(t, 0.0, *ctx.DiversificationScore, 1e-9)
	assert.Nil(t, ctx.CurrentWeight)

	assert.Equal(t, models.SignalLeanSell, signal.Signal)
	assert.Equal(t, 0.4, signal.Confidence)
	assert.Equal(t, "High correlation with existing holdings; Portfolio needs diversification", signal.Rationale)
}

func TestPortfolioAnalyzer_Tickers(t *testing.T) {
	holdings := []models.PortfolioHolding{{Ticker: "AAA"}, {Ticker: "BBB"}, {Ticker: "AAA"}}

	assert.Equal(t, []string{"AAA", "BBB", "TGT"}, NewPortfolioAnalyzer().Tickers("tgt", holdings))
	assert.Equal(t, []string{"AAA", "BBB"}, NewPortfolioAnalyzer().Tickers("bbb", holdings))
}

func TestCorrelate_TargetMissing(t *testing.T) {
	histories := map[string][]models.PriceBar{"XXX": compound(20, sampleReturns(30))}
	assert.Empty(t, correlate("TGT", histories))
}
