package signals

import (
	"fmt"
	"strings"

	"github.com/ternarybob/indepth/internal/models"
)

// Weights are base weights per dimension. They need not sum to 1.
type Weights map[models.Dimension]float64

// DefaultWeights returns the standard dimension weighting
func DefaultWeights() Weights {
	return Weights{
		models.DimensionFundamental: 0.30,
		models.DimensionTechnical:   0.20,
		models.DimensionOptions:     0.15,
		models.DimensionMacro:       0.15,
		models.DimensionSentiment:   0.10,
		models.DimensionPortfolio:   0.10,
	}
}

// Aggregator combines per-dimension signals into one verdict
type Aggregator struct {
	weights Weights
}

// NewAggregator creates an Aggregator. A nil map uses DefaultWeights.
func NewAggregator(weights Weights) *Aggregator {
	if weights == nil {
		weights = DefaultWeights()
	}
	copied := make(Weights, len(weights))
	for k, v := range weights {
		copied[k] = v
	}
	return &Aggregator{weights: copied}
}

// Aggregate finalizes the report's dimension results, overall score,
// confidence, signal and summary.
//
// Weights of available dimensions are renormalized to sum to 1. Unavailable
// dimensions are listed after the available ones with their base weight and a
// neutral placeholder.
func (a *Aggregator) Aggregate(report *models.InvestmentReport) {
	type present struct {
		dim    models.Dimension
		signal models.SignalWithConfidence
	}

	var available []present
	var unavailable []models.Dimension
	for _, dim := range models.Dimensions {
		if sig := report.SignalFor(dim); sig != nil {
			available = append(available, present{dim: dim, signal: *sig})
		} else {
			unavailable = append(unavailable, dim)
		}
	}

	if len(available) == 0 {
		report.DimensionResults = nil
		report.OverallSignal = models.SignalNeutral
		report.OverallConfidence = 0
		report.OverallScore = 0
		report.Summary = "No analysis dimensions available."
		return
	}

	totalAvailable := 0.0
	for _, p := range available {
		totalAvailable += a.weights[p.dim]
	}

	results := make([]models.DimensionResult, 0, len(models.Dimensions))
	score := 0.0
	confidence := 0.0

	for _, p := range available {
		weight := 0.0
		if totalAvailable > 0 {
			weight = a.weights[p.dim] / totalAvailable
		}
		results = append(results, models.DimensionResult{
			Name:      p.dim.DisplayName(),
			Weight:    weight,
			Signal:    p.signal,
			Available: true,
		})
		score += p.signal.Signal.Numeric() * weight
		confidence += p.signal.Confidence * weight
	}

	for _, dim := range unavailable {
		results = append(results, models.DimensionResult{
			Name:      dim.DisplayName(),
			Weight:    a.weights[dim],
			Signal:    models.NewSignal(models.SignalNeutral, 0, "Not available"),
			Available: false,
		})
	}

	report.DimensionResults = results
	report.OverallScore = round(score, 4)
	report.OverallConfidence = round(confidence, 4)
	// bucket the unrounded score
	report.OverallSignal = models.SignalFromScore(score)
	report.Summary = buildSummary(report)
}

func buildSummary(report *models.InvestmentReport) string {
	var bull, bear []string
	for _, d := range report.DimensionResults {
		if !d.Available {
			continue
		}
		n := d.Signal.Signal.Numeric()
		switch {
		case n > 0.2:
			bull = append(bull, d.Name)
		case n < -0.2:
			bear = append(bear, d.Name)
		}
	}

	parts := []string{fmt.Sprintf("%s: %s.", report.Ticker, report.OverallSignal)}
	if len(bull) > 0 {
		parts = append(parts, fmt.Sprintf("Bullish signals from %s.", strings.Join(bull, ", ")))
	}
	if len(bear) > 0 {
		parts = append(parts, fmt.Sprintf("Bearish signals from %s.", strings.Join(bear, ", ")))
	}
	if len(bull) == 0 && len(bear) == 0 {
		parts = append(parts, "Mixed or neutral signals across all dimensions.")
	}
	return strings.Join(parts, " ")
}
