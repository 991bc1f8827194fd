package signals

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ternarybob/indepth/internal/models"
)

const (
	maxNearTermContracts = 20
	maxUnusualFlows      = 10
	unusualVolumeToOI    = 3.0
)

// OptionsAnalyzer reads positioning from the listed option chain
type OptionsAnalyzer struct{}

func NewOptionsAnalyzer() *OptionsAnalyzer {
	return &OptionsAnalyzer{}
}

// Analyze summarises volume, open interest and implied volatility across the chain
func (a *OptionsAnalyzer) Analyze(chain []models.OptionContract, currentPrice *float64) (*models.OptionsFlowSummary, models.SignalWithConfidence) {
	if len(chain) == 0 {
		return &models.OptionsFlowSummary{}, neutral(0.2, "No options data")
	}

	summary := &models.OptionsFlowSummary{}
	contracts := make([]models.OptionContract, 0, len(chain))
	var ivs []float64

	for _, c := range chain {
		c.Bid = positive(c.Bid)
		c.Ask = positive(c.Ask)
		contracts = append(contracts, c)

		if iv := c.Greeks.ImpliedVolatility; iv != nil && *iv > 0 {
			ivs = append(ivs, *iv)
		}

		if c.Right == models.OptionCall {
			summary.TotalCallVolume += c.Volume
			summary.TotalCallOI += c.OpenInterest
		} else {
			summary.TotalPutVolume += c.Volume
			summary.TotalPutOI += c.OpenInterest
		}
	}

	if summary.TotalCallVolume > 0 {
		r := float64(summary.TotalPutVolume) / float64(summary.TotalCallVolume)
		summary.PutCallRatio = &r
	}
	if summary.TotalCallOI > 0 {
		r := float64(summary.TotalPutOI) / float64(summary.TotalCallOI)
		summary.PutCallOIRatio = &r
	}
	if len(ivs) > 0 {
		iv := avg(ivs) * 100
		summary.IVCurrent = &iv
	}

	summary.MaxPain = maxPain(contracts, currentPrice)
	summary.UnusualActivity = unusualActivity(contracts)
	if len(contracts) > maxNearTermContracts {
		contracts = contracts[:maxNearTermContracts]
	}
	summary.NearTermContracts = contracts

	return summary, a.score(summary)
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// maxPain is the strike at which option holders in aggregate lose the most
func maxPain(contracts []models.OptionContract, currentPrice *float64) *float64 {
	if len(contracts) == 0 || !truthy(currentPrice) {
		return nil
	}

	seen := make(map[float64]bool)
	var strikes []float64
	for _, c := range contracts {
		if !seen[c.Strike] {
			seen[c.Strike] = true
			strikes = append(strikes, c.Strike)
		}
	}
	sort.Float64s(strikes)

	best := strikes[0]
	minPain := math.Inf(1)
	for _, strike := range strikes {
		pain := 0.0
		for _, c := range contracts {
			switch {
			case c.Right == models.OptionCall && strike > c.Strike:
				pain += (strike - c.Strike) * float64(c.OpenInterest)
			case c.Right == models.OptionPut && strike < c.Strike:
				pain += (c.Strike - strike) * float64(c.OpenInterest)
			}
		}
		if pain < minPain {
			minPain = pain
			best = strike
		}
	}
	return &best
}

func unusualActivity(contracts []models.OptionContract) []string {
	var flows []string
	for _, c := range contracts {
		if c.Volume <= 0 || c.OpenInterest <= 0 {
			continue
		}
		ratio := float64(c.Volume) / float64(c.OpenInterest)
		if ratio > unusualVolumeToOI {
			flows = append(flows, fmt.Sprintf("%s %s %s: vol/OI=%.1f",
				c.Right, strconv.FormatFloat(c.Strike, 'f', -1, 64), c.Expiry, ratio))
		}
		if len(flows) == maxUnusualFlows {
			break
		}
	}
	return flows
}

func (a *OptionsAnalyzer) score(s *models.OptionsFlowSummary) models.SignalWithConfidence {
	var card scorecard

	if pcr := s.PutCallRatio; pcr != nil {
		switch {
		case *pcr > 1.5:
			card.add(0.5, "High P/C ratio (contrarian bullish)")
		case *pcr > 1.0:
			card.add(0.2, "Elevated P/C ratio")
		case *pcr < 0.5:
			card.add(-0.3, "Low P/C ratio (complacency)")
		default:
			card.add(0, "Normal P/C ratio")
		}
	}

	if iv := s.IVCurrent; iv != nil {
		if *iv > 60 {
			card.add(-0.3, "High IV environment")
		} else if *iv < 20 {
			card.add(0.3, "Low IV environment")
		}
	}

	if n := len(s.UnusualActivity); n > 0 {
		card.note(fmt.Sprintf("%d unusual flows", n))
	}

	if card.empty() {
		return neutral(0.3, "Limited options data")
	}
	return card.fixed(0.6)
}
