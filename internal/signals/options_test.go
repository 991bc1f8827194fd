package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/indepth/internal/models"
)

func contract(right string, strike float64, volume, oi int64, iv float64) models.OptionContract {
	c := models.OptionContract{
		Strike:       strike,
		Expiry:       "20250117",
		Right:        right,
		Volume:       volume,
		OpenInterest: oi,
	}
	if iv != 0 {
		c.Greeks.ImpliedVolatility = models.Float(iv)
	}
	return c
}

func TestOptionsAnalyzer_NoChain(t *testing.T) {
	summary, signal := NewOptionsAnalyzer().Analyze(nil, models.Float(100))

	assert.Equal(t, models.SignalNeutral, signal.Signal)
	assert.Equal(t, 0.2, signal.Confidence)
	assert.Equal(t, "No options data", signal.Rationale)
	assert.Nil(t, summary.PutCallRatio)
}

func TestOptionsAnalyzer_Totals(t *testing.T) {
	chain := []models.OptionContract{
		contract(models.OptionCall, 95, 100, 400, 0.30),
		contract(models.OptionCall, 100, 300, 500, 0.20),
		contract(models.OptionPut, 95, 200, 300, 0.40),
		contract(models.OptionPut, 100, 50, 600, 0),
	}

	summary, signal := NewOptionsAnalyzer().Analyze(chain, models.Float(98))

	assert.Equal(t, int64(400), summary.TotalCallVolume)
	assert.Equal(t, int64(250), summary.TotalPutVolume)
	assert.Equal(t, int64(900), summary.TotalCallOI)
	assert.Equal(t, int64(900), summary.TotalPutOI)
	require.NotNil(t, summary.PutCallRatio)
	assert.InDelta(t, 0.625, *summary.PutCallRatio, 1e-12)
	require.NotNil(t, summary.PutCallOIRatio)
	assert.InDelta(t, 1.0, *summary.PutCallOIRatio, 1e-12)
	require.NotNil(t, summary.IVCurrent)
	assert.InDelta(t, 30.0, *summary.IVCurrent, 1e-9)
	assert.Empty(t, summary.UnusualActivity)
	assert.Len(t, summary.NearTermContracts, 4)

	assert.Equal(t, models.SignalNeutral, signal.Signal)
	assert.Equal(t, 0.6, signal.Confidence)
	assert.Equal(t, "Normal P/C ratio", signal.Rationale)
}

func TestOptionsAnalyzer_PutCallThresholds(t *testing.T) {
	tests := []struct {
		name      string
		putVol    int64
		want      models.Signal
		rationale string
	}{
		{name: "contrarian bullish", putVol: 200, want: models.SignalBuy, rationale: "High P/C ratio (contrarian bullish)"},
		{name: "elevated", putVol: 120, want: models.SignalLeanBuy, rationale: "Elevated P/C ratio"},
		{name: "complacency", putVol: 40, want: models.SignalLeanSell, rationale: "Low P/C ratio (complacency)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := []models.OptionContract{
				contract(models.OptionCall, 100, 100, 1000, 0),
				contract(models.OptionPut, 100, tt.putVol, 1000, 0),
			}
			_, signal := NewOptionsAnalyzer().Analyze(chain, nil)
			assert.Equal(t, tt.want, signal.Signal)
			assert.Equal(t, tt.rationale, signal.Rationale)
		})
	}
}

func TestOptionsAnalyzer_LimitedData(t *testing.T) {
	chain := []models.OptionContract{contract(models.OptionPut, 100, 10, 0, 0)}

	summary, signal := NewOptionsAnalyzer().Analyze(chain, nil)

	assert.Nil(t, summary.PutCallRatio)
	assert.Equal(t, 0.3, signal.Confidence)
	assert.Equal(t, "Limited options data", signal.Rationale)
}

func TestOptionsAnalyzer_UnusualActivity(t *testing.T) {
	chain := []models.OptionContract{
		contract(models.OptionCall, 102.5, 4000, 1000, 0.7),
		contract(models.OptionPut, 100, 100, 1000, 0.7),
	}

	summary, signal := NewOptionsAnalyzer().Analyze(chain, nil)

	assert.Equal(t, []string{"C 102.5 20250117: vol/OI=4.0"}, summary.UnusualActivity)
	assert.Equal(t, "Low P/C ratio (complacency); High IV environment; 1 unusual flows", signal.Rationale)
	assert.Equal(t, models.SignalLeanSell, signal.Signal)
}

func TestMaxPain(t *testing.T) {
	contracts := []models.OptionContract{
		contract(models.OptionCall, 90, 0, 100, 0),
		contract(models.OptionCall, 100, 0, 500, 0),
		contract(models.OptionPut, 100, 0, 300, 0),
		contract(models.OptionPut, 110, 0, 200, 0),
	}

	got := maxPain(contracts, models.Float(100))
	require.NotNil(t, got)
	// 90: 0 + 10*300 + 20*200 = 7000; 100: 10*100 + 10*200 = 3000; 110: 20*100 + 10*500 = 7000
	assert.Equal(t, 100.0, *got)

	assert.Nil(t, maxPain(contracts, nil))
	assert.Nil(t, maxPain(contracts, models.Float(0)))
}
