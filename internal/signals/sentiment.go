package signals

import (
	"strings"

	"github.com/ternarybob/indepth/internal/models"
)

// SentimentAnalyzer scores analyst price targets and rating consensus
type SentimentAnalyzer struct{}

func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{}
}

// Analyze reads analyst coverage from the company snapshot
func (a *SentimentAnalyzer) Analyze(company *models.CompanySnapshot, currentPrice *float64) (*models.SentimentData, models.SignalWithConfidence) {
	if company == nil {
		company = &models.CompanySnapshot{}
	}

	data := &models.SentimentData{
		MeanTarget:     company.TargetMeanPrice,
		MedianTarget:   company.TargetMedianPrice,
		HighTarget:     company.TargetHighPrice,
		LowTarget:      company.TargetLowPrice,
		CurrentPrice:   currentPrice,
		Recommendation: company.RecommendationKey,
		RecentRatings:  []models.AnalystRating{},
	}
	if data.Recommendation == "" {
		data.Recommendation = "N/A"
	}

	// Without a rating distribution only the opinion count is known
	if r := company.Ratings; r != nil {
		data.BuyCount = r.StrongBuy + r.Buy
		data.HoldCount = r.Hold
		data.SellCount = r.Sell + r.StrongSell
		data.AnalystCount = data.BuyCount + data.HoldCount + data.SellCount
	} else {
		data.AnalystCount = company.AnalystOpinions
	}

	if truthy(data.MeanTarget) && currentPrice != nil && *currentPrice > 0 {
		upside := (*data.MeanTarget / *currentPrice - 1) * 100
		data.UpsidePct = &upside
	}

	return data, a.score(data)
}

var recommendationScores = map[string]float64{
	"strong_buy":   0.5,
	"strongbuy":    0.5,
	"buy":          0.3,
	"hold":         0,
	"sell":         -0.4,
	"underperform": -0.4,
	"strong_sell":  -0.4,
}

func (a *SentimentAnalyzer) score(data *models.SentimentData) models.SignalWithConfidence {
	var card scorecard

	if up := data.UpsidePct; up != nil {
		switch {
		case *up > 20:
			card.add(0.7, "Large upside to target")
		case *up > 10:
			card.add(0.4, "Moderate upside")
		case *up > 0:
			card.add(0.1, "Slight upside")
		case *up > -10:
			card.add(-0.2, "Near target")
		default:
			card.add(-0.5, "Above analyst targets")
		}
	}

	if total := data.BuyCount + data.HoldCount + data.SellCount; total > 0 {
		buyShare := float64(data.BuyCount) / float64(total)
		sellShare := float64(data.SellCount) / float64(total)
		switch {
		case buyShare > 0.7:
			card.add(0.5, "Strong analyst consensus buy")
		case buyShare > 0.5:
			card.add(0.3, "Majority buy ratings")
		case sellShare > 0.3:
			card.add(-0.4, "Significant sell ratings")
		default:
			card.add(0, "Mixed analyst opinions")
		}
	}

	if s, ok := recommendationScores[strings.ToLower(data.Recommendation)]; ok {
		card.add(s, "")
	}

	if card.empty() {
		return neutral(0.3, "Limited sentiment data")
	}
	return card.scaled(0.7, 3)
}
