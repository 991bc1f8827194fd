package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/indepth/internal/models"
)

func sig(s models.Signal, conf float64) *models.SignalWithConfidence {
	v := models.NewSignal(s, conf, "test")
	return &v
}

func TestAggregator_NoDimensions(t *testing.T) {
	report := &models.InvestmentReport{Ticker: "AAPL"}
	NewAggregator(nil).Aggregate(report)

	assert.Equal(t, models.SignalNeutral, report.OverallSignal)
	assert.Equal(t, 0.0, report.OverallScore)
	assert.Equal(t, 0.0, report.OverallConfidence)
	assert.Equal(t, "No analysis dimensions available.", report.Summary)
	assert.Empty(t, report.DimensionResults)
}

func TestAggregator_SingleDimensionTakesFullWeight(t *testing.T) {
	report := &models.InvestmentReport{
		Ticker:          "MSFT",
		SentimentSignal: sig(models.SignalBuy, 0.5),
	}
	NewAggregator(nil).Aggregate(report)

	require.Len(t, report.DimensionResults, 6)
	first := report.DimensionResults[0]
	assert.Equal(t, "Sentiment", first.Name)
	assert.True(t, first.Available)
	assert.InDelta(t, 1.0, first.Weight, 1e-12)
	assert.InDelta(t, 0.67, report.OverallScore, 1e-9)
	assert.InDelta(t, 0.5, report.OverallConfidence, 1e-9)
	assert.Equal(t, models.SignalBuy, report.OverallSignal)
}

func TestAggregator_FundamentalBuyTechnicalSell(t *testing.T) {
	report := &models.InvestmentReport{
		Ticker:            "XYZ",
		FundamentalSignal: sig(models.SignalBuy, 0.8),
		TechnicalSignal:   sig(models.SignalSell, 0.7),
	}
	NewAggregator(DefaultWeights()).Aggregate(report)

	// 0.6*0.67 + 0.4*(-0.67)
	assert.InDelta(t, 0.134, report.OverallScore, 1e-9)
	assert.InDelta(t, 0.76, report.OverallConfidence, 1e-9)
	assert.Equal(t, models.SignalNeutral, report.OverallSignal)
	assert.Equal(t, "XYZ: NEUTRAL. Bullish signals from Fundamental. Bearish signals from Technical.", report.Summary)

	require.Len(t, report.DimensionResults, 6)
	assert.InDelta(t, 0.6, report.DimensionResults[0].Weight, 1e-12)
	assert.InDelta(t, 0.4, report.DimensionResults[1].Weight, 1e-12)
}

func TestAggregator_EffectiveWeightsSumToOne(t *testing.T) {
	report := &models.InvestmentReport{
		Ticker:            "ABC",
		FundamentalSignal: sig(models.SignalLeanBuy, 0.5),
		OptionsSignal:     sig(models.SignalNeutral, 0.6),
		MacroSignal:       sig(models.SignalLeanSell, 0.4),
		PortfolioSignal:   sig(models.SignalStrongBuy, 0.6),
	}
	NewAggregator(nil).Aggregate(report)

	sum := 0.0
	for _, d := range report.DimensionResults {
		if d.Available {
			sum += d.Weight
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestAggregator_UnavailableListedLastWithBaseWeight(t *testing.T) {
	report := &models.InvestmentReport{
		Ticker:          "ABC",
		PortfolioSignal: sig(models.SignalBuy, 0.6),
		MacroSignal:     sig(models.SignalBuy, 0.6),
	}
	NewAggregator(nil).Aggregate(report)

	names := make([]string, 0, len(report.DimensionResults))
	for _, d := range report.DimensionResults {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Macro/Sector", "Portfolio", "Fundamental", "Technical", "Options", "Sentiment"}, names)

	fundamental := report.DimensionResults[2]
	assert.False(t, fundamental.Available)
	assert.Equal(t, 0.30, fundamental.Weight)
	assert.Equal(t, models.SignalNeutral, fundamental.Signal.Signal)
	assert.Equal(t, 0.0, fundamental.Signal.Confidence)
	assert.Equal(t, "Not available", fundamental.Signal.Rationale)
}

func TestAggregator_ZeroTotalWeight(t *testing.T) {
	report := &models.InvestmentReport{
		Ticker:          "ABC",
		SentimentSignal: sig(models.SignalStrongBuy, 1),
	}
	NewAggregator(Weights{models.DimensionFundamental: 1}).Aggregate(report)

	assert.Equal(t, 0.0, report.DimensionResults[0].Weight)
	assert.Equal(t, 0.0, report.OverallScore)
	assert.Equal(t, models.SignalNeutral, report.OverallSignal)
	assert.Equal(t, "ABC: NEUTRAL. Bullish signals from Sentiment.", report.Summary)
}

func TestAggregator_MixedSummary(t *testing.T) {
	report := &models.InvestmentReport{
		Ticker:          "ABC",
		TechnicalSignal: sig(models.SignalLeanBuy, 0.5),
		OptionsSignal:   sig(models.SignalNeutral, 0.6),
	}
	NewAggregator(nil).Aggregate(report)
	assert.Contains(t, report.Summary, "Bullish signals from Technical.")

	report = &models.InvestmentReport{
		Ticker:        "ABC",
		OptionsSignal: sig(models.SignalNeutral, 0.6),
	}
	NewAggregator(nil).Aggregate(report)
	assert.Equal(t, "ABC: NEUTRAL. Mixed or neutral signals across all dimensions.", report.Summary)
}

func TestAggregator_WeightsCopied(t *testing.T) {
	w := DefaultWeights()
	agg := NewAggregator(w)
	w[models.DimensionFundamental] = 99

	report := &models.InvestmentReport{
		Ticker:            "ABC",
		FundamentalSignal: sig(models.SignalBuy, 0.8),
		TechnicalSignal:   sig(models.SignalSell, 0.7),
	}
	agg.Aggregate(report)
	assert.InDelta(t, 0.6, report.DimensionResults[0].Weight, 1e-12)
}
