package sentiment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnspipe/pkg/contracts/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(symbol string, d time.Time, score float64) domain.AlignedNewsRecord {
	return domain.AlignedNewsRecord{
		Symbol:          symbol,
		TradingDay:      d,
		Score:           score,
		SourceItemCount: 1,
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"mean", ModeMean, false},
		{"weighted", ModeWeighted, false},
		{"", ModeMean, false},
		{"median", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregate_MeanMode(t *testing.T) {
	agg := New(ModeMean, Options{}, nil)
	d1 := day(2023, time.September, 5)
	d2 := day(2023, time.September, 6)

	rows := agg.Aggregate(context.Background(), []domain.AlignedNewsRecord{
		rec("ACME", d1, 0.5),
		rec("ACME", d1, -0.1),
		rec("ACME", d1, 0.2),
		rec("ACME", d2, -0.2),
		rec("BETA", d1, 0.9),
	})

	require.Len(t, rows, 3)

	byKey := make(map[string]domain.AlignedNewsRecord, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r
	}

	acmeD1 := byKey["ACME|2023-09-05"]
	assert.Equal(t, 3, acmeD1.SourceItemCount)
	assert.InDelta(t, 0.2, acmeD1.Score, 1e-12) // (0.5 - 0.1 + 0.2) / 3
	assert.InDelta(t, -0.1, acmeD1.ScoreMin, 1e-12)
	assert.InDelta(t, 0.5, acmeD1.ScoreMax, 1e-12)
	assert.InDelta(t, 0.2449489743, acmeD1.ScoreStdDev, 1e-9)

	acmeD2 := byKey["ACME|2023-09-06"]
	assert.Equal(t, 1, acmeD2.SourceItemCount)
	assert.InDelta(t, -0.2, acmeD2.Score, 1e-12)
	assert.InDelta(t, 0, acmeD2.ScoreStdDev, 1e-12)

	betaD1 := byKey["BETA|2023-09-05"]
	assert.Equal(t, 1, betaD1.SourceItemCount)
	assert.InDelta(t, 0.9, betaD1.Score, 1e-12)
}

// Every input record contributes exactly once: total SourceItemCount
// across output rows equals the number of input records.
func TestAggregate_NoDoubleCountNoSilentDrop(t *testing.T) {
	agg := New(ModeMean, Options{}, nil)
	var records []domain.AlignedNewsRecord
	for i := 0; i < 50; i++ {
		d := day(2023, time.September, 1+i%10)
		records = append(records, rec("ACME", d, float64(i)/50))
	}

	rows := agg.Aggregate(context.Background(), records)

	total := 0
	for _, r := range rows {
		total += r.SourceItemCount
		assert.Positive(t, r.SourceItemCount)
	}
	assert.Equal(t, len(records), total)
}

func TestAggregate_EmptyInputYieldsNoRows(t *testing.T) {
	agg := New(ModeMean, Options{}, nil)
	rows := agg.Aggregate(context.Background(), nil)
	assert.Empty(t, rows)
}

func TestAggregate_WeightedByPublisher(t *testing.T) {
	agg := New(ModeWeighted, Options{
		PublisherWeights: map[string]float64{"reuters": 3.0},
	}, nil)
	d1 := day(2023, time.September, 5)

	r1 := rec("ACME", d1, 1.0)
	r1.Publisher = "reuters"
	r2 := rec("ACME", d1, 0.0)
	r2.Publisher = "blog"

	rows := agg.Aggregate(context.Background(), []domain.AlignedNewsRecord{r1, r2})
	require.Len(t, rows, 1)

	// (3*1.0 + 1*0.0) / 4
	assert.InDelta(t, 0.75, rows[0].Score, 1e-12)
	assert.Equal(t, 2, rows[0].SourceItemCount)
}

func TestAggregate_WeightedByRecency(t *testing.T) {
	agg := New(ModeWeighted, Options{
		RecencyHalfLife: 6 * time.Hour,
	}, nil)
	d1 := day(2023, time.September, 5)

	// The older item is exactly one half-life behind the newer one.
	older := rec("ACME", d1, 0.0)
	older.PublishedAt = time.Date(2023, time.September, 5, 8, 0, 0, 0, time.UTC)
	newer := rec("ACME", d1, 1.0)
	newer.PublishedAt = time.Date(2023, time.September, 5, 14, 0, 0, 0, time.UTC)

	rows := agg.Aggregate(context.Background(), []domain.AlignedNewsRecord{older, newer})
	require.Len(t, rows, 1)

	// (1*1.0 + 0.5*0.0) / 1.5
	assert.InDelta(t, 2.0/3.0, rows[0].Score, 1e-12)
}

func TestAggregate_WeightedFallsBackToMeanOnZeroWeights(t *testing.T) {
	agg := New(ModeWeighted, Options{
		PublisherWeights: map[string]float64{"blog": 0},
	}, nil)
	d1 := day(2023, time.September, 5)

	r1 := rec("ACME", d1, 0.4)
	r1.Publisher = "blog"
	r2 := rec("ACME", d1, 0.6)
	r2.Publisher = "blog"

	rows := agg.Aggregate(context.Background(), []domain.AlignedNewsRecord{r1, r2})
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.5, rows[0].Score, 1e-12)
}
