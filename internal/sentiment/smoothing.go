package sentiment

import (
	"math"

	"fnspipe/pkg/contracts/domain"
)

// Smooth returns a copy of the daily rows with ScoreSmoothed populated
// from RollingMean over the given window. A window of zero or less
// returns the rows unchanged.
func Smooth(rows []domain.AlignedNewsRecord, window int) []domain.AlignedNewsRecord {
	if window <= 0 {
		return rows
	}
	means := RollingMean(rows, window)
	out := make([]domain.AlignedNewsRecord, len(rows))
	copy(out, rows)
	for i, m := range means {
		if !math.IsNaN(m) {
			out[i].ScoreSmoothed = m
			out[i].HasScoreSmoothed = true
		}
	}
	return out
}

// RollingMean computes the trailing mean of the daily scores over the
// given window, per symbol, parallel to the input rows. Rows must be
// ordered by trading day within each symbol, the order Aggregate
// produces. Positions before a symbol's window fills are NaN, matching
// the indicator warm-up convention.
func RollingMean(rows []domain.AlignedNewsRecord, window int) []float64 {
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 {
		return out
	}

	indexes := make(map[string][]int)
	for i, r := range rows {
		indexes[r.Symbol] = append(indexes[r.Symbol], i)
	}

	for _, idx := range indexes {
		sum := 0.0
		for j, i := range idx {
			sum += rows[i].Score
			if j >= window {
				sum -= rows[idx[j-window]].Score
			}
			if j >= window-1 {
				out[i] = sum / float64(window)
			}
		}
	}
	return out
}
