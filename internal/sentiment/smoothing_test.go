package sentiment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fnspipe/pkg/contracts/domain"
)

func TestRollingMean(t *testing.T) {
	d := func(n int) time.Time { return day(2023, time.September, n) }

	rows := []domain.AlignedNewsRecord{
		rec("ACME", d(5), 0.2),
		rec("ACME", d(6), 0.4),
		rec("ACME", d(7), 0.6),
		rec("BETA", d(5), 1.0),
		rec("BETA", d(6), 0.0),
	}

	out := RollingMean(rows, 2)

	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 0.3, out[1], 1e-12)
	assert.InDelta(t, 0.5, out[2], 1e-12)

	// Symbols smooth independently.
	assert.True(t, math.IsNaN(out[3]))
	assert.InDelta(t, 0.5, out[4], 1e-12)
}

func TestSmooth(t *testing.T) {
	d := func(n int) time.Time { return day(2023, time.September, n) }

	rows := []domain.AlignedNewsRecord{
		rec("ACME", d(5), 0.2),
		rec("ACME", d(6), 0.4),
		rec("ACME", d(7), 0.6),
	}

	out := Smooth(rows, 2)

	assert.False(t, out[0].HasScoreSmoothed)
	assert.True(t, out[1].HasScoreSmoothed)
	assert.InDelta(t, 0.3, out[1].ScoreSmoothed, 1e-12)
	assert.True(t, out[2].HasScoreSmoothed)
	assert.InDelta(t, 0.5, out[2].ScoreSmoothed, 1e-12)

	// Input rows stay untouched.
	assert.False(t, rows[1].HasScoreSmoothed)
}

func TestSmooth_DisabledWindow(t *testing.T) {
	rows := []domain.AlignedNewsRecord{rec("ACME", day(2023, time.September, 5), 0.2)}
	out := Smooth(rows, 0)
	assert.Equal(t, rows, out)
	assert.False(t, out[0].HasScoreSmoothed)
}

func TestRollingMean_BadWindow(t *testing.T) {
	rows := []domain.AlignedNewsRecord{rec("ACME", day(2023, time.September, 5), 0.2)}
	for _, v := range RollingMean(rows, 0) {
		assert.True(t, math.IsNaN(v))
	}
}
