package domain

import (
	"time"
)

// PriceBar represents one OHLCV bar for a symbol on a trading session.
// The external loader supplies one bar per session per symbol; TradingDate
// must be a valid session in the configured trading calendar.
type PriceBar struct {
	Symbol      string    `json:"symbol" validate:"required"`
	TradingDate time.Time `json:"trading_date"`
	Open        float64   `json:"open" validate:"min=0"`
	High        float64   `json:"high" validate:"min=0"`
	Low         float64   `json:"low" validate:"min=0"`
	Close       float64   `json:"close" validate:"min=0"`
	Volume      int64     `json:"volume" validate:"min=0"`
}

// IsValid checks OHLCV consistency: non-negative values and a high/low
// range that brackets open and close.
func (b PriceBar) IsValid() bool {
	return b.Symbol != "" && !b.TradingDate.IsZero() &&
		b.Open >= 0 && b.High >= 0 && b.Low >= 0 && b.Close >= 0 &&
		b.Volume >= 0 &&
		b.High >= b.Low && b.High >= b.Open && b.High >= b.Close &&
		b.Low <= b.Open && b.Low <= b.Close
}

// SimpleReturn calculates the simple return against the previous close.
// Callers must ensure prevClose > 0; see the indicator engine for the
// zero-denominator policy.
func (b PriceBar) SimpleReturn(prevClose float64) float64 {
	return (b.Close - prevClose) / prevClose
}
