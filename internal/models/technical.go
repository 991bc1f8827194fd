package models

import "time"

// PriceBar is one daily OHLCV bar
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Trend direction values
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

type MovingAverages struct {
	SMA20         *float64 `json:"sma_20,omitempty"`
	SMA50         *float64 `json:"sma_50,omitempty"`
	SMA200        *float64 `json:"sma_200,omitempty"`
	EMA12         *float64 `json:"ema_12,omitempty"`
	EMA26         *float64 `json:"ema_26,omitempty"`
	PriceVsSMA20  *float64 `json:"price_vs_sma20,omitempty"`
	PriceVsSMA50  *float64 `json:"price_vs_sma50,omitempty"`
	PriceVsSMA200 *float64 `json:"price_vs_sma200,omitempty"`
}

type MomentumIndicators struct {
	RSI14         *float64 `json:"rsi_14,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`
	StochasticK   *float64 `json:"stochastic_k,omitempty"`
	StochasticD   *float64 `json:"stochastic_d,omitempty"`
	ADX           *float64 `json:"adx,omitempty"`
}

type SupportResistance struct {
	SupportLevels           []float64 `json:"support_levels"`
	ResistanceLevels        []float64 `json:"resistance_levels"`
	NearestSupport          *float64  `json:"nearest_support,omitempty"`
	NearestResistance       *float64  `json:"nearest_resistance,omitempty"`
	DistanceToSupportPct    *float64  `json:"distance_to_support_pct,omitempty"`
	DistanceToResistancePct *float64  `json:"distance_to_resistance_pct,omitempty"`
}

type TrendAnalysis struct {
	ShortTerm   string `json:"short_term_trend"`
	MediumTerm  string `json:"medium_term_trend"`
	LongTerm    string `json:"long_term_trend"`
	GoldenCross bool   `json:"golden_cross"`
	DeathCross  bool   `json:"death_cross"`
	Above200SMA bool   `json:"above_200_sma"`
}

// TechnicalData is the technical dimension's computed snapshot
type TechnicalData struct {
	CurrentPrice      *float64           `json:"current_price,omitempty"`
	MovingAverages    MovingAverages     `json:"moving_averages"`
	Momentum          MomentumIndicators `json:"momentum"`
	SupportResistance SupportResistance  `json:"support_resistance"`
	Trend             TrendAnalysis      `json:"trend"`
}

// IndicatorSeries holds full-length indicator series aligned with Dates.
// Warm-up positions are NaN.
type IndicatorSeries struct {
	Dates         []time.Time `json:"dates"`
	Close         []float64   `json:"close"`
	SMA20         []float64   `json:"sma_20,omitempty"`
	SMA50         []float64   `json:"sma_50,omitempty"`
	SMA200        []float64   `json:"sma_200,omitempty"`
	RSI14         []float64   `json:"rsi_14,omitempty"`
	MACDLine      []float64   `json:"macd_line,omitempty"`
	MACDSignal    []float64   `json:"macd_signal,omitempty"`
	MACDHistogram []float64   `json:"macd_histogram,omitempty"`
	Volume        []int64     `json:"volume,omitempty"`
}
