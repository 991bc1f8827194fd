package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/indepth/internal/models"
)

// growth builds n flat bars whose final close has moved pct percent
func growth(n int, start, pct float64) []models.PriceBar {
	closing := make([]float64, n)
	for i := range closing {
		closing[i] = start
	}
	closing[n-1] = start * (1 + pct/100)
	return barsFrom(closing)
}

func TestSectorETF(t *testing.T) {
	assert.Equal(t, "XLV", SectorETF("Healthcare"))
	assert.Equal(t, "XLK", SectorETF(""))
	assert.Equal(t, "XLK", SectorETF("Crypto"))
}

func TestMacroAnalyzer_NoData(t *testing.T) {
	data, signal := NewMacroAnalyzer().Analyze("", MacroHistories{})

	assert.Equal(t, "Unknown", data.Sector.SectorName)
	assert.Equal(t, "XLK", data.Sector.SectorETF)
	assert.Equal(t, models.RateTrendUnknown, data.Rates.RateTrend)
	assert.Equal(t, models.SignalNeutral, signal.Signal)
	assert.Equal(t, 0.3, signal.Confidence)
	assert.Equal(t, "Limited macro data", signal.Rationale)
}

func TestMacroAnalyzer_Outperformer(t *testing.T) {
	h := MacroHistories{
		Stock:  growth(130, 100, 20),
		Market: growth(130, 400, 5),
		Sector: growth(130, 50, 4),
		Yield:  barsFrom([]float64{4.8, 4.5, 4.2}),
	}

	data, signal := NewMacroAnalyzer().Analyze("Technology", h)

	require.NotNil(t, data.Sector.RelativeStrength)
	assert.InDelta(t, 16.0, *data.Sector.RelativeStrength, 1e-9)
	require.NotNil(t, data.StockVsMarket3M)
	assert.InDelta(t, 15.0, *data.StockVsMarket3M, 1e-9)
	assert.Nil(t, data.Sector.SectorReturn1Y)
	assert.Equal(t, models.RateTrendFalling, data.Rates.RateTrend)
	require.NotNil(t, data.Rates.TenYearYield)
	assert.Equal(t, 4.2, *data.Rates.TenYearYield)

	// (0.5 + 0.4 + 0.2) / 3
	assert.Equal(t, models.SignalLeanBuy, signal.Signal)
	assert.Equal(t, 0.7, signal.Confidence)
	assert.Equal(t, "Outperforming sector; Beating market; Falling rate environment", signal.Rationale)
}

func TestMacroAnalyzer_RelativeStrengthBands(t *testing.T) {
	tests := []struct {
		name   string
		stock  float64
		reason string
	}{
		{name: "slightly above", stock: 12, reason: "Slightly above sector"},
		{name: "slightly below", stock: 8, reason: "Slightly below sector"},
		{name: "underperforming", stock: 2, reason: "Underperforming sector"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := MacroHistories{
				Stock:  growth(70, 100, tt.stock),
				Sector: growth(70, 100, 10),
			}
			_, signal := NewMacroAnalyzer().Analyze("Energy", h)
			assert.Equal(t, tt.reason, signal.Rationale)
			assert.Equal(t, 0.23, signal.Confidence)
		})
	}
}

func TestRateEnvironment(t *testing.T) {
	tests := []struct {
		name  string
		yield []float64
		want  string
	}{
		{name: "rising", yield: []float64{3.5, 3.9, 4.1}, want: models.RateTrendRising},
		{name: "stable", yield: []float64{4.0, 4.2, 4.4}, want: models.RateTrendStable},
		{name: "falling", yield: []float64{4.6, 4.0}, want: models.RateTrendFalling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rateEnvironment(tt.yield).RateTrend)
		})
	}
}
