package correlation

import (
	"sort"
	"time"

	"fnspipe/internal/calendar"
	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// ColumnDailyReturn and ColumnLogReturn name the two return columns a
// correlation can target; any other column name is looked up in the
// feature row's indicator map.
const (
	ColumnDailyReturn = "daily_return"
	ColumnLogReturn   = "log_return"
)

// JoinTables inner-joins aggregated sentiment records onto feature rows
// by (symbol, trading day). Rows present on only one side are dropped,
// never imputed. The result is sorted by symbol then day and is the
// table handed to storage.
func JoinTables(records []domain.AlignedNewsRecord, rows []domain.DailyFeatureRow) []domain.DailyFeatureRow {
	scores := make(map[string]domain.AlignedNewsRecord, len(records))
	for _, r := range records {
		scores[r.Key()] = r
	}

	var joined []domain.DailyFeatureRow
	for _, row := range rows {
		rec, ok := scores[row.Key()]
		if !ok {
			continue
		}
		row.Sentiment = rec.Score
		row.SentimentItems = rec.SourceItemCount
		row.HasSentiment = true
		row.SentimentSmoothed = rec.ScoreSmoothed
		row.HasSentimentSmoothed = rec.HasScoreSmoothed
		joined = append(joined, row)
	}

	sort.Slice(joined, func(i, j int) bool {
		if joined[i].Symbol != joined[j].Symbol {
			return joined[i].Symbol < joined[j].Symbol
		}
		return joined[i].TradingDay.Before(joined[j].TradingDay)
	})
	return joined
}

// samplePair is one joined observation: a sentiment score and the
// target column value it is correlated against.
type samplePair struct {
	sentiment float64
	value     float64
	day       time.Time
}

// joinPairs builds the correlation sample for one symbol and lag. A
// positive lag shifts each sentiment day forward by that many sessions,
// so sentiment on day d is paired with the column value on d+lag.
// Sentiment days whose shifted target falls outside the calendar range,
// or whose target row lacks the column, contribute nothing.
func joinPairs(cal *calendar.Calendar, records []domain.AlignedNewsRecord, rows []domain.DailyFeatureRow, column string, lag int) ([]samplePair, error) {
	byDay := make(map[time.Time]domain.DailyFeatureRow, len(rows))
	for _, row := range rows {
		byDay[row.TradingDay] = row
	}

	var pairs []samplePair
	for _, rec := range records {
		target := rec.TradingDay
		if lag != 0 {
			shifted, err := cal.Shift(rec.TradingDay, lag)
			if err != nil {
				if apperrors.IsType(err, apperrors.ErrTypeOutOfRange) {
					continue
				}
				return nil, err
			}
			target = shifted
		}
		row, ok := byDay[target]
		if !ok {
			continue
		}
		v, ok := columnValue(row, column)
		if !ok {
			continue
		}
		pairs = append(pairs, samplePair{sentiment: rec.Score, value: v, day: target})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].day.Before(pairs[j].day) })
	return pairs, nil
}

// columnValue extracts the requested column from a feature row,
// reporting absence for warm-up rows and the first-bar return gap.
func columnValue(row domain.DailyFeatureRow, column string) (float64, bool) {
	switch column {
	case ColumnDailyReturn:
		return row.DailyReturn, row.HasReturn
	case ColumnLogReturn:
		return row.LogReturn, row.HasReturn
	default:
		return row.Indicator(column)
	}
}
