package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/indepth/internal/models"
)

func TestFundamentalsHistoryFrom(t *testing.T) {
	quarters := []models.QuarterlyFinancials{
		{Date: "2024-09-30", Revenue: models.Float(200), NetIncome: models.Float(40), GrossProfit: models.Float(90), OperatingIncome: models.Float(50)},
		{Date: "2024-06-30", Revenue: models.Float(0), NetIncome: models.Float(-5)},
		{Date: "2024-03-31", Revenue: models.Float(100), NetIncome: models.Float(10)},
	}

	h := FundamentalsHistoryFrom(quarters)

	assert.Equal(t, []string{"2024-03-31", "2024-06-30", "2024-09-30"}, h.Dates)
	assert.Equal(t, []float64{100, 0, 200}, h.Revenue)
	assert.Equal(t, []float64{10, -5, 40}, h.NetIncome)
	assert.Equal(t, []float64{0, 0, 45}, h.GrossMargin)
	assert.Equal(t, []float64{0, 0, 25}, h.OperatingMargin)
	assert.Equal(t, []float64{10, 0, 20}, h.ProfitMargin)
}

func TestFundamentalsHistoryFrom_NoRevenue(t *testing.T) {
	h := FundamentalsHistoryFrom([]models.QuarterlyFinancials{
		{Date: "2024-09-30", NetIncome: models.Float(3)},
	})

	assert.Equal(t, []string{"2024-09-30"}, h.Dates)
	assert.Nil(t, h.Revenue)
	assert.Equal(t, []float64{3}, h.NetIncome)
	assert.Empty(t, h.GrossMargin)
}

func TestFundamentalsHistoryFrom_Empty(t *testing.T) {
	assert.Empty(t, FundamentalsHistoryFrom(nil).Dates)
}
