package models

import (
	"math"
)

// Signal is a discrete buy/sell verdict
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG BUY"
	SignalBuy        Signal = "BUY"
	SignalLeanBuy    Signal = "LEAN BUY"
	SignalNeutral    Signal = "NEUTRAL"
	SignalLeanSell   Signal = "LEAN SELL"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG SELL"
)

var signalNumeric = map[Signal]float64{
	SignalStrongBuy:  1.0,
	SignalBuy:        0.67,
	SignalLeanBuy:    0.33,
	SignalNeutral:    0.0,
	SignalLeanSell:   -0.33,
	SignalSell:       -0.67,
	SignalStrongSell: -1.0,
}

// Numeric returns the signal's position on the [-1, 1] scale.
// Unknown values map to 0.
func (s Signal) Numeric() float64 {
	return signalNumeric[s]
}

// String returns the display value
func (s Signal) String() string {
	return string(s)
}

// SignalFromScore buckets a continuous score into a signal.
// Thresholds are inclusive lower bounds: 0.8, 0.5, 0.2, -0.2, -0.5, -0.8.
func SignalFromScore(score float64) Signal {
	switch {
	case score >= 0.8:
		return SignalStrongBuy
	case score >= 0.5:
		return SignalBuy
	case score >= 0.2:
		return SignalLeanBuy
	case score >= -0.2:
		return SignalNeutral
	case score >= -0.5:
		return SignalLeanSell
	case score >= -0.8:
		return SignalSell
	default:
		return SignalStrongSell
	}
}

// SignalWithConfidence is one dimension's verdict
type SignalWithConfidence struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"` // [0, 1]
	Rationale  string  `json:"rationale"`
}

// NewSignal builds a SignalWithConfidence with confidence clamped to [0, 1]
func NewSignal(signal Signal, confidence float64, rationale string) SignalWithConfidence {
	return SignalWithConfidence{
		Signal:     signal,
		Confidence: math.Max(0, math.Min(1, confidence)),
		Rationale:  rationale,
	}
}

// WeightedScore is numeric(signal) * confidence
func (s SignalWithConfidence) WeightedScore() float64 {
	return s.Signal.Numeric() * s.Confidence
}

// Dimension identifies an analysis category
type Dimension string

const (
	DimensionFundamental Dimension = "fundamental"
	DimensionTechnical   Dimension = "technical"
	DimensionOptions     Dimension = "options"
	DimensionMacro       Dimension = "macro"
	DimensionSentiment   Dimension = "sentiment"
	DimensionPortfolio   Dimension = "portfolio"
)

// Dimensions lists every dimension in aggregation order
var Dimensions = []Dimension{
	DimensionFundamental,
	DimensionTechnical,
	DimensionOptions,
	DimensionMacro,
	DimensionSentiment,
	DimensionPortfolio,
}

var dimensionDisplayNames = map[Dimension]string{
	DimensionFundamental: "Fundamental",
	DimensionTechnical:   "Technical",
	DimensionOptions:     "Options",
	DimensionMacro:       "Macro/Sector",
	DimensionSentiment:   "Sentiment",
	DimensionPortfolio:   "Portfolio",
}

// DisplayName returns the human-readable dimension name
func (d Dimension) DisplayName() string {
	if name, ok := dimensionDisplayNames[d]; ok {
		return name
	}
	return string(d)
}

// DimensionResult is one row of the aggregated verdict
type DimensionResult struct {
	Name      string               `json:"name"`
	Weight    float64              `json:"weight"`
	Signal    SignalWithConfidence `json:"signal"`
	Available bool                 `json:"available"`
}
