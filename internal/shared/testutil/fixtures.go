package testutil

import (
	"time"

	"fnspipe/pkg/contracts/domain"
)

// Score returns a pointer to the given sentiment value, for building
// scored NewsItem fixtures.
func Score(v float64) *float64 {
	return &v
}

// Bars builds one OHLCV bar per session date from close prices, with a
// one-percent high/low band around the close.
func Bars(symbol string, dates []time.Time, closes []float64) []domain.PriceBar {
	n := len(closes)
	if len(dates) < n {
		n = len(dates)
	}
	out := make([]domain.PriceBar, n)
	for i := 0; i < n; i++ {
		c := closes[i]
		out[i] = domain.PriceBar{
			Symbol:      symbol,
			TradingDate: dates[i],
			Open:        c,
			High:        c * 1.01,
			Low:         c * 0.99,
			Close:       c,
			Volume:      1000,
		}
	}
	return out
}
