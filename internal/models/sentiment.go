package models

type AnalystRating struct {
	Firm        string   `json:"firm"`
	Rating      string   `json:"rating"`
	PriceTarget *float64 `json:"price_target,omitempty"`
}

// SentimentData is the analyst sentiment dimension's snapshot
type SentimentData struct {
	AnalystCount   int             `json:"analyst_count"`
	BuyCount       int             `json:"buy_count"`
	HoldCount      int             `json:"hold_count"`
	SellCount      int             `json:"sell_count"`
	MeanTarget     *float64        `json:"mean_target,omitempty"`
	MedianTarget   *float64        `json:"median_target,omitempty"`
	HighTarget     *float64        `json:"high_target,omitempty"`
	LowTarget      *float64        `json:"low_target,omitempty"`
	CurrentPrice   *float64        `json:"current_price,omitempty"`
	UpsidePct      *float64        `json:"upside_pct,omitempty"`
	Recommendation string          `json:"recommendation"`
	RecentRatings  []AnalystRating `json:"recent_ratings"`
}

// NewsArticle is a headline shown in the report
type NewsArticle struct {
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	Link      string `json:"link"`
	Published string `json:"published"`
}

// CalendarEvent is an upcoming corporate event
type CalendarEvent struct {
	Date    string `json:"date"`
	Event   string `json:"event"` // Earnings, Dividend, Ex-Dividend
	Details string `json:"details"`
}
