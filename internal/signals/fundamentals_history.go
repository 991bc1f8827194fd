package signals

import (
	"github.com/ternarybob/indepth/internal/models"
)

// FundamentalsHistoryFrom turns newest-first quarterly statements into an
// oldest-first series with margins as percentages of revenue
func FundamentalsHistoryFrom(quarters []models.QuarterlyFinancials) models.FundamentalsHistory {
	var h models.FundamentalsHistory
	if len(quarters) == 0 {
		return h
	}

	ordered := make([]models.QuarterlyFinancials, len(quarters))
	for i, q := range quarters {
		ordered[len(quarters)-1-i] = q
	}

	value := func(get func(models.QuarterlyFinancials) *float64) []float64 {
		present := false
		out := make([]float64, len(ordered))
		for i, q := range ordered {
			if v := get(q); v != nil {
				out[i] = *v
				present = true
			}
		}
		if !present {
			return nil
		}
		return out
	}

	h.Dates = make([]string, len(ordered))
	for i, q := range ordered {
		h.Dates[i] = q.Date
	}
	h.Revenue = value(func(q models.QuarterlyFinancials) *float64 { return q.Revenue })
	h.NetIncome = value(func(q models.QuarterlyFinancials) *float64 { return q.NetIncome })
	gross := value(func(q models.QuarterlyFinancials) *float64 { return q.GrossProfit })
	operating := value(func(q models.QuarterlyFinancials) *float64 { return q.OperatingIncome })

	if h.Revenue == nil {
		return h
	}

	margin := func(series []float64, i int) float64 {
		if i >= len(series) || h.Revenue[i] == 0 {
			return 0
		}
		return series[i] / h.Revenue[i] * 100
	}
	for i := range h.Revenue {
		h.GrossMargin = append(h.GrossMargin, margin(gross, i))
		h.OperatingMargin = append(h.OperatingMargin, margin(operating, i))
		h.ProfitMargin = append(h.ProfitMargin, margin(h.NetIncome, i))
	}
	return h
}
