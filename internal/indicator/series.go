package indicator

import (
	"math"
)

// Series helpers operate on close-price (or return) slices and use NaN
// to mark positions where a window has not yet filled. Callers omit NaN
// positions from the output table, so warm-up rows are absent rather
// than zero-filled.

// nanSlice returns a slice of n NaNs.
func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// SMA calculates the simple moving average. A window of size N requires
// N prior values; positions before the window fills are NaN.
func SMA(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if window <= 0 || n < window {
		return out
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA calculates the exponential moving average with multiplier
// k = 2/(window+1), seeded with the SMA of the first window values.
// The warm-up length is window-1.
func EMA(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if window <= 0 || n < window {
		return out
	}

	sum := 0.0
	for i := 0; i < window; i++ {
		sum += values[i]
	}
	out[window-1] = sum / float64(window)

	k := 2.0 / float64(window+1)
	for i := window; i < n; i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI calculates the Relative Strength Index with Wilder's smoothing:
// avg = (prevAvg*(period-1) + current) / period. The warm-up length is
// period (the first value appears at index period). Values are 0-100.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACDSeries holds the three MACD output lines.
type MACDSeries struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates the Moving Average Convergence Divergence: the fast
// EMA minus the slow EMA, with a signal EMA over the MACD line. The
// MACD line warms up after slow-1 values, the signal (and histogram)
// after slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) MACDSeries {
	n := len(closes)
	out := MACDSeries{
		MACD:      nanSlice(n),
		Signal:    nanSlice(n),
		Histogram: nanSlice(n),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 || n < slow {
		return out
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	for i := slow - 1; i < n; i++ {
		out.MACD[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal line: EMA of the defined portion of the MACD line.
	defined := out.MACD[slow-1:]
	signalEMA := EMA(defined, signal)
	for i, v := range signalEMA {
		if !math.IsNaN(v) {
			out.Signal[slow-1+i] = v
			out.Histogram[slow-1+i] = defined[i] - v
		}
	}
	return out
}

// RollingStdDev calculates the sample standard deviation over a rolling
// window. Positions before the window fills are NaN; NaN inputs poison
// their windows.
func RollingStdDev(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if window <= 1 || n < window {
		return out
	}

	for i := window - 1; i < n; i++ {
		segment := values[i-window+1 : i+1]
		mean := 0.0
		valid := true
		for _, v := range segment {
			if math.IsNaN(v) {
				valid = false
				break
			}
			mean += v
		}
		if !valid {
			continue
		}
		mean /= float64(window)

		var sumSq float64
		for _, v := range segment {
			d := v - mean
			sumSq += d * d
		}
		out[i] = math.Sqrt(sumSq / float64(window-1))
	}
	return out
}

// annualizationFactor converts daily volatility to annualized terms
// assuming 252 trading sessions per year.
var annualizationFactor = math.Sqrt(252)

// AnnualizedVolatility is the rolling sample standard deviation of a
// daily return series scaled by sqrt(252).
func AnnualizedVolatility(returns []float64, window int) []float64 {
	out := RollingStdDev(returns, window)
	for i, v := range out {
		if !math.IsNaN(v) {
			out[i] = v * annualizationFactor
		}
	}
	return out
}
