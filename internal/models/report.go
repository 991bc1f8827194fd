package models

import "time"

// InvestmentReport is the aggregate of one analysis run.
// Dimension fields stay nil when the dimension could not be produced.
type InvestmentReport struct {
	Ticker       string    `json:"ticker"`
	CompanyName  string    `json:"company_name"`
	Sector       string    `json:"sector"`
	CurrentPrice *float64  `json:"current_price,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`

	Fundamental *FundamentalData    `json:"fundamental,omitempty"`
	Technical   *TechnicalData      `json:"technical,omitempty"`
	Options     *OptionsFlowSummary `json:"options,omitempty"`
	Macro       *MacroData          `json:"macro,omitempty"`
	Sentiment   *SentimentData      `json:"sentiment,omitempty"`
	Portfolio   *PortfolioContext   `json:"portfolio,omitempty"`

	FundamentalSignal *SignalWithConfidence `json:"fundamental_signal,omitempty"`
	TechnicalSignal   *SignalWithConfidence `json:"technical_signal,omitempty"`
	OptionsSignal     *SignalWithConfidence `json:"options_signal,omitempty"`
	MacroSignal       *SignalWithConfidence `json:"macro_signal,omitempty"`
	SentimentSignal   *SignalWithConfidence `json:"sentiment_signal,omitempty"`
	PortfolioSignal   *SignalWithConfidence `json:"portfolio_signal,omitempty"`

	DimensionResults  []DimensionResult `json:"dimension_results"`
	OverallSignal     Signal            `json:"overall_signal"`
	OverallConfidence float64           `json:"overall_confidence"`
	OverallScore      float64           `json:"overall_score"`
	Summary           string            `json:"summary"`

	// Narrative is optional long-form commentary appended to the markdown report
	Narrative string `json:"narrative,omitempty"`
}

// SignalFor returns the dimension's signal, or nil when unavailable
func (r *InvestmentReport) SignalFor(d Dimension) *SignalWithConfidence {
	switch d {
	case DimensionFundamental:
		return r.FundamentalSignal
	case DimensionTechnical:
		return r.TechnicalSignal
	case DimensionOptions:
		return r.OptionsSignal
	case DimensionMacro:
		return r.MacroSignal
	case DimensionSentiment:
		return r.SentimentSignal
	case DimensionPortfolio:
		return r.PortfolioSignal
	}
	return nil
}

// ReportData carries render-only series that are not part of the verdict
type ReportData struct {
	History             []PriceBar          `json:"history"`
	Indicators          IndicatorSeries     `json:"indicators"`
	FundamentalsHistory FundamentalsHistory `json:"fundamentals_history"`
	News                []NewsArticle       `json:"news"`
	CalendarEvents      []CalendarEvent     `json:"calendar_events"`
}
