package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fnspipe/internal/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestCalendar covers the first two weeks of September 2023 for XNYS
// with Labor Day (Mon Sep 4) as a holiday.
func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := LoadMarket("XNYS",
		day(2023, time.September, 1),
		day(2023, time.September, 15),
		[]time.Time{day(2023, time.September, 4)},
	)
	require.NoError(t, err)
	return cal
}

func TestMarketByID(t *testing.T) {
	m, err := MarketByID("XNYS")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", m.Timezone)

	_, err = MarketByID("NOPE")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidMarket))
}

func TestRegisterMarket(t *testing.T) {
	err := RegisterMarket(Market{
		ID:       "XTSE",
		Timezone: "America/Toronto",
		Open:     9*time.Hour + 30*time.Minute,
		Close:    16 * time.Hour,
	})
	require.NoError(t, err)

	m, err := MarketByID("XTSE")
	require.NoError(t, err)
	assert.Equal(t, "America/Toronto", m.Timezone)

	assert.Error(t, RegisterMarket(Market{ID: "BAD", Timezone: "Not/AZone", Close: time.Hour}))
}

func TestLoadMarket_SkipsWeekendsAndHolidays(t *testing.T) {
	cal := newTestCalendar(t)

	sessions := cal.Sessions()
	// Sep 1, 5, 6, 7, 8, 11, 12, 13, 14, 15 — weekends and Labor Day out.
	require.Len(t, sessions, 10)
	assert.Equal(t, day(2023, time.September, 1), sessions[0])
	assert.Equal(t, day(2023, time.September, 5), sessions[1])
	assert.Equal(t, day(2023, time.September, 15), sessions[len(sessions)-1])
}

func TestNew_RejectsUnsortedAndDuplicates(t *testing.T) {
	m, _ := MarketByID("XNYS")

	_, err := New(m, []time.Time{day(2023, 9, 5), day(2023, 9, 1)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = New(m, []time.Time{day(2023, 9, 1), day(2023, 9, 1)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = New(m, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestIsSession(t *testing.T) {
	cal := newTestCalendar(t)

	tests := []struct {
		name    string
		date    time.Time
		want    bool
		wantErr bool
	}{
		{"weekday session", day(2023, time.September, 6), true, false},
		{"saturday", day(2023, time.September, 9), false, false},
		{"holiday", day(2023, time.September, 4), false, false},
		{"before range", day(2023, time.August, 15), false, true},
		{"after range", day(2023, time.October, 1), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.IsSession(tt.date)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOutOfRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextAndPrevSession(t *testing.T) {
	cal := newTestCalendar(t)

	// Friday -> Tuesday across the Labor Day weekend.
	next, err := cal.NextSession(day(2023, time.September, 1))
	require.NoError(t, err)
	assert.Equal(t, day(2023, time.September, 5), next)

	prev, err := cal.PrevSession(day(2023, time.September, 5))
	require.NoError(t, err)
	assert.Equal(t, day(2023, time.September, 1), prev)

	// Rolling past either end is out of range.
	_, err = cal.NextSession(day(2023, time.September, 15))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOutOfRange))

	_, err = cal.PrevSession(day(2023, time.September, 1))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOutOfRange))
}

func TestSessionAfter_MarketHoursCutoff(t *testing.T) {
	cal := newTestCalendar(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			name: "pre-market on a session maps to that session",
			at:   time.Date(2023, time.September, 6, 8, 0, 0, 0, ny),
			want: day(2023, time.September, 6),
		},
		{
			name: "during hours maps to that session",
			at:   time.Date(2023, time.September, 6, 12, 0, 0, 0, ny),
			want: day(2023, time.September, 6),
		},
		{
			name: "at the close maps to the next session",
			at:   time.Date(2023, time.September, 6, 16, 0, 0, 0, ny),
			want: day(2023, time.September, 7),
		},
		{
			name: "after close maps to the next session",
			at:   time.Date(2023, time.September, 6, 18, 30, 0, 0, ny),
			want: day(2023, time.September, 7),
		},
		{
			name: "saturday maps to monday session",
			at:   time.Date(2023, time.September, 9, 10, 0, 0, 0, ny),
			want: day(2023, time.September, 11),
		},
		{
			name: "holiday maps to next session",
			at:   time.Date(2023, time.September, 4, 11, 0, 0, 0, ny),
			want: day(2023, time.September, 5),
		},
		{
			name: "UTC timestamp converted to market local before cutoff",
			// 19:00 UTC == 15:00 New York, still before the 16:00 close.
			at:   time.Date(2023, time.September, 6, 19, 0, 0, 0, time.UTC),
			want: day(2023, time.September, 6),
		},
		{
			name: "UTC timestamp converted to market local after cutoff",
			// 21:00 UTC == 17:00 New York.
			at:   time.Date(2023, time.September, 6, 21, 0, 0, 0, time.UTC),
			want: day(2023, time.September, 7),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.SessionAfter(tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionAfter_OutOfRange(t *testing.T) {
	cal := newTestCalendar(t)
	ny, _ := time.LoadLocation("America/New_York")

	// Before the range the first session is still a defined answer.
	got, err := cal.SessionAfter(time.Date(2023, time.August, 20, 9, 0, 0, 0, ny))
	require.NoError(t, err)
	assert.Equal(t, day(2023, time.September, 1), got)

	// After close on the final session there is nothing left to roll to.
	_, err = cal.SessionAfter(time.Date(2023, time.September, 15, 17, 0, 0, 0, ny))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOutOfRange))
}

func TestShift(t *testing.T) {
	cal := newTestCalendar(t)

	got, err := cal.Shift(day(2023, time.September, 1), 2)
	require.NoError(t, err)
	assert.Equal(t, day(2023, time.September, 6), got)

	got, err = cal.Shift(day(2023, time.September, 6), -2)
	require.NoError(t, err)
	assert.Equal(t, day(2023, time.September, 1), got)

	_, err = cal.Shift(day(2023, time.September, 15), 1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOutOfRange))

	// Shifting from a non-session date is a programmer error.
	_, err = cal.Shift(day(2023, time.September, 9), 1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestRange(t *testing.T) {
	cal := newTestCalendar(t)
	start, end := cal.Range()
	assert.Equal(t, day(2023, time.September, 1), start)
	assert.Equal(t, day(2023, time.September, 15), end)
}
