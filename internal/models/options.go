package models

// Option rights
const (
	OptionCall = "C"
	OptionPut  = "P"
)

type GreeksSnapshot struct {
	Delta             *float64 `json:"delta,omitempty"`
	Gamma             *float64 `json:"gamma,omitempty"`
	Theta             *float64 `json:"theta,omitempty"`
	Vega              *float64 `json:"vega,omitempty"`
	ImpliedVolatility *float64 `json:"implied_volatility,omitempty"` // fraction, 0.35 = 35%
}

// OptionContract is one listed contract from the chain
type OptionContract struct {
	Strike       float64        `json:"strike"`
	Expiry       string         `json:"expiry"`
	Right        string         `json:"right"` // "C" or "P"
	Bid          *float64       `json:"bid,omitempty"`
	Ask          *float64       `json:"ask,omitempty"`
	Volume       int64          `json:"volume"`
	OpenInterest int64          `json:"open_interest"`
	Greeks       GreeksSnapshot `json:"greeks"`
}

// OptionsFlowSummary is the options dimension's computed snapshot
type OptionsFlowSummary struct {
	IVPercentile      *float64         `json:"iv_percentile,omitempty"`
	IVCurrent         *float64         `json:"iv_current,omitempty"` // percent
	IVMean1Y          *float64         `json:"iv_mean_1y,omitempty"`
	PutCallRatio      *float64         `json:"put_call_ratio,omitempty"`
	PutCallOIRatio    *float64         `json:"put_call_oi_ratio,omitempty"`
	TotalCallVolume   int64            `json:"total_call_volume"`
	TotalPutVolume    int64            `json:"total_put_volume"`
	TotalCallOI       int64            `json:"total_call_oi"`
	TotalPutOI        int64            `json:"total_put_oi"`
	UnusualActivity   []string         `json:"unusual_activity"`
	MaxPain           *float64         `json:"max_pain,omitempty"`
	NearTermContracts []OptionContract `json:"near_term_contracts"`
}
