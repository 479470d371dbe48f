package domain

import (
	"time"
)

// CorrelationResult is the immutable output record of the correlation
// analyzer: the Pearson correlation between the daily sentiment series
// and a chosen return/indicator column at a given lag, with its
// two-sided p-value under the Student's t test.
//
// LagDays counts trading sessions, not calendar days; positive lag means
// sentiment leads price.
type CorrelationResult struct {
	Symbol      string    `json:"symbol"`
	Column      string    `json:"column"`
	LagDays     int       `json:"lag_days"`
	PearsonR    float64   `json:"pearson_r"`
	PValue      float64   `json:"p_value"`
	SampleSize  int       `json:"sample_size"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// IsSignificant reports whether the result clears the given two-sided
// significance level (e.g. 0.05).
func (c CorrelationResult) IsSignificant(alpha float64) bool {
	return c.SampleSize > 2 && c.PValue < alpha
}
