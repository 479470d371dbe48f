package indicator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnspipe/internal/calendar"
	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.LoadMarket("XNYS",
		day(2023, time.June, 1),
		day(2023, time.September, 29),
		nil,
	)
	require.NoError(t, err)
	return cal
}

// barsFromCloses builds one bar per session starting at the given
// session date.
func barsFromCloses(t *testing.T, cal *calendar.Calendar, symbol string, start time.Time, closes []float64) []domain.PriceBar {
	t.Helper()
	bars := make([]domain.PriceBar, len(closes))
	d := start
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			Symbol:      symbol,
			TradingDate: d,
			Open:        c,
			High:        c * 1.01,
			Low:         c * 0.99,
			Close:       c,
			Volume:      1000,
		}
		if i < len(closes)-1 {
			next, err := cal.NextSession(d)
			require.NoError(t, err)
			d = next
		}
	}
	return bars
}

func newTestEngine(t *testing.T, cal *calendar.Calendar, cfg Config) *Engine {
	t.Helper()
	eng, err := New(cal, cfg, nil)
	require.NoError(t, err)
	return eng
}

func TestNew_RejectsUnknownColumn(t *testing.T) {
	cal := testCalendar(t)

	_, err := New(cal, Config{Windows: map[string]int{"fibonacci_8": 8}}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	_, err = New(cal, Config{Windows: map[string]int{"sma_0": 0}}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestCompute_Returns(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, DefaultConfig())

	bars := barsFromCloses(t, cal, "ACME", day(2023, time.September, 5),
		[]float64{100, 102, 101, 105})

	rows, err := eng.Compute(context.Background(), "ACME", bars)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// First bar of a series has no return, emitted as absent.
	assert.False(t, rows[0].HasReturn)

	require.True(t, rows[1].HasReturn)
	assert.InDelta(t, 0.02, rows[1].DailyReturn, 1e-9)
	require.True(t, rows[2].HasReturn)
	assert.InDelta(t, -0.0098039, rows[2].DailyReturn, 1e-6)
	require.True(t, rows[3].HasReturn)
	assert.InDelta(t, 0.0396040, rows[3].DailyReturn, 1e-6)

	// Log returns agree with ln(close_t / close_{t-1}).
	assert.InDelta(t, 0.0198026, rows[1].LogReturn, 1e-6)
}

// Simple returns are invariant under uniform price scaling, and log
// returns likewise.
func TestCompute_ScaleInvariance(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, DefaultConfig())
	closes := []float64{100, 102, 101, 105, 103, 108, 110, 104}

	scaled := make([]float64, len(closes))
	for i, c := range closes {
		scaled[i] = c * 2
	}

	base, err := eng.Compute(context.Background(), "ACME",
		barsFromCloses(t, cal, "ACME", day(2023, time.September, 5), closes))
	require.NoError(t, err)
	doubled, err := eng.Compute(context.Background(), "ACME",
		barsFromCloses(t, cal, "ACME", day(2023, time.September, 5), scaled))
	require.NoError(t, err)

	for i := 1; i < len(closes); i++ {
		assert.InDelta(t, base[i].DailyReturn, doubled[i].DailyReturn, 1e-12)
		assert.InDelta(t, base[i].LogReturn, doubled[i].LogReturn, 1e-12)
	}
}

func TestCompute_WarmupRowsAbsent(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, Config{Windows: map[string]int{"sma_3": 3}})

	bars := barsFromCloses(t, cal, "ACME", day(2023, time.September, 5),
		[]float64{100, 102, 104, 106})

	rows, err := eng.Compute(context.Background(), "ACME", bars)
	require.NoError(t, err)

	_, ok := rows[0].Indicator("sma_3")
	assert.False(t, ok)
	_, ok = rows[1].Indicator("sma_3")
	assert.False(t, ok)

	v, ok := rows[2].Indicator("sma_3")
	require.True(t, ok)
	assert.InDelta(t, 102, v, 1e-12)
	v, ok = rows[3].Indicator("sma_3")
	require.True(t, ok)
	assert.InDelta(t, 104, v, 1e-12)
}

func TestCompute_MACDColumnsPresent(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, DefaultConfig())

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rows, err := eng.Compute(context.Background(), "ACME",
		barsFromCloses(t, cal, "ACME", day(2023, time.June, 1), closes))
	require.NoError(t, err)

	_, ok := rows[10].Indicator("macd")
	assert.False(t, ok, "macd before slow EMA warm-up")

	macd, ok := rows[59].Indicator("macd")
	require.True(t, ok)
	signal, ok := rows[59].Indicator("macd_signal")
	require.True(t, ok)
	hist, ok := rows[59].Indicator("macd_hist")
	require.True(t, ok)
	assert.InDelta(t, macd-signal, hist, 1e-12)
}

func TestCompute_NonPositiveClose(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, DefaultConfig())

	bars := barsFromCloses(t, cal, "ACME", day(2023, time.September, 5),
		[]float64{100, 102})
	bars[1].Open = 0
	bars[1].High = 0
	bars[1].Low = 0
	bars[1].Close = 0

	_, err := eng.Compute(context.Background(), "ACME", bars)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidPrice))
}

func TestCompute_UnsortedSeriesIsProgrammerError(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, DefaultConfig())

	bars := barsFromCloses(t, cal, "ACME", day(2023, time.September, 5),
		[]float64{100, 102, 101})
	bars[0], bars[1] = bars[1], bars[0]

	_, err := eng.Compute(context.Background(), "ACME", bars)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestCompute_NonSessionBarRejected(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, DefaultConfig())

	bars := []domain.PriceBar{{
		Symbol:      "ACME",
		TradingDate: day(2023, time.September, 9), // Saturday
		Open:        100, High: 101, Low: 99, Close: 100, Volume: 10,
	}}

	_, err := eng.Compute(context.Background(), "ACME", bars)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestCompute_EmptySeries(t *testing.T) {
	cal := testCalendar(t)
	eng := newTestEngine(t, cal, DefaultConfig())

	rows, err := eng.Compute(context.Background(), "ACME", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
