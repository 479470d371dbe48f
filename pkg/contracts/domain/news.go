package domain

import (
	"time"
)

// NewsItem represents a single financial news record as supplied by the
// external loader. Sentiment is nil until the scoring collaborator has
// populated it; items are immutable once scored.
type NewsItem struct {
	Symbol      string    `json:"symbol" validate:"required"`
	Headline    string    `json:"headline" validate:"required"`
	Publisher   string    `json:"publisher,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	SourceZone  string    `json:"source_zone,omitempty"` // IANA zone name of the publication timestamp
	Sentiment   *float64  `json:"sentiment,omitempty"`
}

// IsScored reports whether the sentiment scoring collaborator has
// populated this item.
func (n NewsItem) IsScored() bool {
	return n.Sentiment != nil
}

// SentimentScore returns the sentiment score, or 0 when unscored.
func (n NewsItem) SentimentScore() float64 {
	if n.Sentiment == nil {
		return 0
	}
	return *n.Sentiment
}

// AlignedNewsRecord is one row of the daily sentiment table keyed by
// (symbol, trading day). The aligner emits one record per accepted item
// with SourceItemCount == 1; the aggregator collapses all records sharing
// a key into a single row whose SourceItemCount equals the number of
// contributing items.
type AlignedNewsRecord struct {
	Symbol          string    `json:"symbol"`
	TradingDay      time.Time `json:"trading_day"`
	Score           float64   `json:"score"`
	SourceItemCount int       `json:"source_item_count"`

	// Precursor-only fields carried from the source item so the
	// aggregator's weighted mode can weigh by publisher reputation and
	// recency. Cleared on the aggregated row.
	Publisher   string    `json:"publisher,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`

	// Distribution fields populated by the aggregator when more than
	// one item contributes to the day.
	ScoreStdDev float64 `json:"score_std_dev,omitempty"`
	ScoreMin    float64 `json:"score_min,omitempty"`
	ScoreMax    float64 `json:"score_max,omitempty"`

	// ScoreSmoothed is the trailing rolling mean of Score over the
	// configured smoothing window, populated after aggregation.
	// HasScoreSmoothed gates it the same way warm-up gates indicators.
	ScoreSmoothed    float64 `json:"score_smoothed,omitempty"`
	HasScoreSmoothed bool    `json:"has_score_smoothed,omitempty"`
}

// Key returns the (symbol, trading day) grouping key for the record.
func (r AlignedNewsRecord) Key() string {
	return r.Symbol + "|" + r.TradingDay.Format("2006-01-02")
}

// IsValid checks basic record consistency.
func (r AlignedNewsRecord) IsValid() bool {
	return r.Symbol != "" && !r.TradingDay.IsZero() && r.SourceItemCount > 0
}

// NormalizeDay strips the clock from t and returns the calendar date in
// UTC. Trading day keys are always stored this way so that records from
// different source zones compare equal.
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
