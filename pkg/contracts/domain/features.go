package domain

import (
	"time"
)

// DailyFeatureRow is one row of the per-(symbol, day) feature table.
// The indicator engine produces rows with the return and indicator
// columns filled; the correlation joiner fills the sentiment columns and
// drops rows missing either side (inner join, never imputed).
//
// Returns and indicators that have not warmed up are absent rather than
// zero: HasReturn gates the return columns, and Indicators only contains
// entries whose window has filled.
type DailyFeatureRow struct {
	Symbol     string    `json:"symbol"`
	TradingDay time.Time `json:"trading_day"`

	DailyReturn float64 `json:"daily_return"`
	LogReturn   float64 `json:"log_return"`
	HasReturn   bool    `json:"has_return"`

	Indicators map[string]float64 `json:"indicator_values,omitempty"`

	Sentiment      float64 `json:"sentiment_score"`
	SentimentItems int     `json:"sentiment_items,omitempty"`
	HasSentiment   bool    `json:"has_sentiment"`

	// SentimentSmoothed carries the trailing rolling mean of the daily
	// sentiment score when smoothing is configured; absent until the
	// smoothing window fills.
	SentimentSmoothed    float64 `json:"sentiment_smoothed,omitempty"`
	HasSentimentSmoothed bool    `json:"has_sentiment_smoothed,omitempty"`
}

// Indicator returns the named indicator value and whether its warm-up
// window had filled on this day.
func (r DailyFeatureRow) Indicator(name string) (float64, bool) {
	v, ok := r.Indicators[name]
	return v, ok
}

// Key returns the (symbol, trading day) join key for the row.
func (r DailyFeatureRow) Key() string {
	return r.Symbol + "|" + r.TradingDay.Format("2006-01-02")
}
