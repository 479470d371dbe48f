// Package indicator computes price-derived daily series — returns,
// moving averages and oscillators — from per-symbol OHLCV bar
// sequences. Warm-up semantics are strict: values whose window has not
// filled are absent from the output, never zero-filled.
package indicator
