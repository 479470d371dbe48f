package correlation

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"fnspipe/internal/calendar"
	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// DefaultMinSampleSize is the floor below which a correlation is
// refused rather than reported with misleading precision.
const DefaultMinSampleSize = 5

// Analyzer correlates a symbol's daily sentiment series against one of
// its return or indicator columns, at one or more session lags.
type Analyzer struct {
	cal       *calendar.Calendar
	minSample int
	logger    *slog.Logger
}

// NewAnalyzer creates an analyzer. A minSample below 1 falls back to
// DefaultMinSampleSize.
func NewAnalyzer(cal *calendar.Calendar, minSample int, logger *slog.Logger) *Analyzer {
	if minSample < 1 {
		minSample = DefaultMinSampleSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cal: cal, minSample: minSample, logger: logger}
}

// Correlate computes the Pearson correlation between the sentiment
// series and the given column at a single lag, with a two-sided
// t-distribution p-value. A positive lag means sentiment leads price by
// that many sessions. Fails with INSUFFICIENT_SAMPLE when fewer than
// the minimum number of joined observations exist, or when either
// series is constant over the joined window.
func (a *Analyzer) Correlate(ctx context.Context, symbol, column string, records []domain.AlignedNewsRecord, rows []domain.DailyFeatureRow, lag int) (domain.CorrelationResult, error) {
	pairs, err := joinPairs(a.cal, records, rows, column, lag)
	if err != nil {
		return domain.CorrelationResult{}, err
	}
	n := len(pairs)
	if n < a.minSample {
		return domain.CorrelationResult{}, apperrors.NewInsufficientSampleError(n, a.minSample).
			WithContext("symbol", symbol).
			WithContext("column", column).
			WithContext("lag_days", lag)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range pairs {
		xs[i] = p.sentiment
		ys[i] = p.value
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		// Zero variance on one side; correlation is undefined.
		return domain.CorrelationResult{}, apperrors.NewInsufficientSampleError(n, a.minSample).
			WithContext("symbol", symbol).
			WithContext("column", column).
			WithContext("lag_days", lag).
			WithContext("reason", "constant series")
	}

	result := domain.CorrelationResult{
		Symbol:      symbol,
		Column:      column,
		LagDays:     lag,
		PearsonR:    r,
		PValue:      pValue(r, n),
		SampleSize:  n,
		WindowStart: pairs[0].day,
		WindowEnd:   pairs[n-1].day,
	}

	a.logger.DebugContext(ctx, "correlation computed",
		slog.String("symbol", symbol),
		slog.String("column", column),
		slog.Int("lag_days", lag),
		slog.Float64("pearson_r", result.PearsonR),
		slog.Float64("p_value", result.PValue),
		slog.Int("sample_size", n))

	return result, nil
}

// LagFailure records a lag whose correlation could not be computed.
// Per-lag failures never abort the remaining lags.
type LagFailure struct {
	Lag int
	Err error
}

// ScanLags evaluates every lag in [lagMin, lagMax] inclusive and
// returns one result per succeeding lag plus the per-lag failures.
// Result order follows the lag order but carries no other guarantee;
// callers sort by |r| or p-value as they see fit.
func (a *Analyzer) ScanLags(ctx context.Context, symbol, column string, records []domain.AlignedNewsRecord, rows []domain.DailyFeatureRow, lagMin, lagMax int) ([]domain.CorrelationResult, []LagFailure, error) {
	if lagMax < lagMin {
		return nil, nil, apperrors.NewValidationError("lag range inverted").
			WithContext("lag_min", lagMin).
			WithContext("lag_max", lagMax)
	}

	var results []domain.CorrelationResult
	var failures []LagFailure
	for lag := lagMin; lag <= lagMax; lag++ {
		res, err := a.Correlate(ctx, symbol, column, records, rows, lag)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrTypeInsufficientSample) {
				failures = append(failures, LagFailure{Lag: lag, Err: err})
				continue
			}
			return nil, nil, err
		}
		results = append(results, res)
	}
	return results, failures, nil
}

// pValue is the two-sided significance of r under the t-distribution
// with n-2 degrees of freedom.
func pValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	denom := 1 - r*r
	if denom <= 0 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.CDF(-math.Abs(t))
}
