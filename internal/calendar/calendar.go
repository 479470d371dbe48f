package calendar

import (
	"fmt"
	"sort"
	"time"

	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// Calendar is the authoritative source of trading sessions for one
// market over a bounded, pre-loaded date range. Sessions are held as a
// strictly increasing, duplicate-free slice of normalized dates;
// queries outside the loaded range fail with OUT_OF_RANGE rather than
// extrapolating. A Calendar is immutable once built and safe for
// concurrent use without locking.
type Calendar struct {
	market   Market
	loc      *time.Location
	sessions []time.Time
	index    map[time.Time]int
}

// New builds a calendar from an explicit session date list. The list is
// normalized and must be strictly increasing with no duplicates.
func New(market Market, sessions []time.Time) (*Calendar, error) {
	if !market.IsValid() {
		return nil, apperrors.NewValidationError("invalid market definition").
			WithContext("market_id", market.ID)
	}
	loc, err := time.LoadLocation(market.Timezone)
	if err != nil {
		return nil, apperrors.NewValidationError("unknown market timezone").
			WithContext("market_id", market.ID).
			WithContext("timezone", market.Timezone)
	}
	if len(sessions) == 0 {
		return nil, apperrors.NewValidationError("no session data provided").
			WithContext("market_id", market.ID)
	}

	normalized := make([]time.Time, len(sessions))
	for i, s := range sessions {
		normalized[i] = domain.NormalizeDay(s)
	}
	if !sort.SliceIsSorted(normalized, func(i, j int) bool {
		return normalized[i].Before(normalized[j])
	}) {
		return nil, apperrors.NewValidationError("session dates not strictly increasing").
			WithContext("market_id", market.ID)
	}
	index := make(map[time.Time]int, len(normalized))
	for i, s := range normalized {
		if _, dup := index[s]; dup {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("duplicate session date %s", s.Format("2006-01-02"))).
				WithContext("market_id", market.ID)
		}
		index[s] = i
	}

	return &Calendar{
		market:   market,
		loc:      loc,
		sessions: normalized,
		index:    index,
	}, nil
}

// LoadMarket builds a weekday calendar for a registered market between
// start and end inclusive, skipping the given holiday dates. This is
// the common constructor when no explicit session list is available.
func LoadMarket(marketID string, start, end time.Time, holidays []time.Time) (*Calendar, error) {
	market, err := MarketByID(marketID)
	if err != nil {
		return nil, err
	}

	startDay := domain.NormalizeDay(start)
	endDay := domain.NormalizeDay(end)
	if endDay.Before(startDay) {
		return nil, apperrors.NewValidationError("calendar end before start").
			WithContext("market_id", marketID)
	}

	holidaySet := make(map[time.Time]struct{}, len(holidays))
	for _, h := range holidays {
		holidaySet[domain.NormalizeDay(h)] = struct{}{}
	}

	var sessions []time.Time
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if _, holiday := holidaySet[d]; holiday {
			continue
		}
		sessions = append(sessions, d)
	}
	if len(sessions) == 0 {
		return nil, apperrors.NewValidationError("calendar range contains no sessions").
			WithContext("market_id", marketID)
	}

	return New(market, sessions)
}

// Market returns the market this calendar covers.
func (c *Calendar) Market() Market {
	return c.market
}

// Location returns the market's local timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Range returns the first and last loaded session dates.
func (c *Calendar) Range() (start, end time.Time) {
	return c.sessions[0], c.sessions[len(c.sessions)-1]
}

// Sessions returns a copy of the loaded session dates.
func (c *Calendar) Sessions() []time.Time {
	out := make([]time.Time, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// covers reports whether d lies inside the loaded range.
func (c *Calendar) covers(d time.Time) bool {
	return !d.Before(c.sessions[0]) && !d.After(c.sessions[len(c.sessions)-1])
}

// IsSession reports whether the given date is a trading session.
// Dates outside the loaded range fail with OUT_OF_RANGE.
func (c *Calendar) IsSession(d time.Time) (bool, error) {
	day := domain.NormalizeDay(d)
	if !c.covers(day) {
		return false, c.outOfRange(day)
	}
	_, ok := c.index[day]
	return ok, nil
}

// NextSession returns the first session strictly after the given date.
func (c *Calendar) NextSession(d time.Time) (time.Time, error) {
	day := domain.NormalizeDay(d)
	if day.Before(c.sessions[0]) {
		return c.sessions[0], nil
	}
	i := sort.Search(len(c.sessions), func(i int) bool {
		return c.sessions[i].After(day)
	})
	if i == len(c.sessions) {
		return time.Time{}, c.outOfRange(day)
	}
	return c.sessions[i], nil
}

// PrevSession returns the last session strictly before the given date.
func (c *Calendar) PrevSession(d time.Time) (time.Time, error) {
	day := domain.NormalizeDay(d)
	if day.After(c.sessions[len(c.sessions)-1]) {
		return c.sessions[len(c.sessions)-1], nil
	}
	i := sort.Search(len(c.sessions), func(i int) bool {
		return !c.sessions[i].Before(day)
	})
	if i == 0 {
		return time.Time{}, c.outOfRange(day)
	}
	return c.sessions[i-1], nil
}

// SessionOnOrAfter returns the given date if it is a session, otherwise
// the next session after it.
func (c *Calendar) SessionOnOrAfter(d time.Time) (time.Time, error) {
	day := domain.NormalizeDay(d)
	if is, err := c.IsSession(day); err == nil && is {
		return day, nil
	} else if err != nil && !day.Before(c.sessions[0]) {
		return time.Time{}, err
	}
	return c.NextSession(day)
}

// SessionOnOrBefore returns the given date if it is a session, otherwise
// the last session before it.
func (c *Calendar) SessionOnOrBefore(d time.Time) (time.Time, error) {
	day := domain.NormalizeDay(d)
	if is, err := c.IsSession(day); err == nil && is {
		return day, nil
	} else if err != nil && !day.After(c.sessions[len(c.sessions)-1]) {
		return time.Time{}, err
	}
	return c.PrevSession(day)
}

// SessionAfter returns the first session at which news published at
// instant t can affect trading, in market-local terms: publication
// before market close on a session date maps to that date; publication
// at or after close, or on a non-session date, maps to the next session.
func (c *Calendar) SessionAfter(t time.Time) (time.Time, error) {
	local := t.In(c.loc)
	day := domain.NormalizeDay(local)

	if is, err := c.IsSession(day); err != nil {
		// Before the range start the next session is simply the first;
		// past the end there is nothing to roll to.
		if day.Before(c.sessions[0]) {
			return c.sessions[0], nil
		}
		return time.Time{}, err
	} else if is {
		midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
		if local.Sub(midnight) < c.market.Close {
			return day, nil
		}
	}
	return c.NextSession(day)
}

// Shift moves n sessions forward (n > 0) or backward (n < 0) from the
// given session date. The date itself must be a loaded session.
func (c *Calendar) Shift(d time.Time, n int) (time.Time, error) {
	day := domain.NormalizeDay(d)
	i, ok := c.index[day]
	if !ok {
		if !c.covers(day) {
			return time.Time{}, c.outOfRange(day)
		}
		return time.Time{}, apperrors.NewValidationError(
			fmt.Sprintf("%s is not a session", day.Format("2006-01-02"))).
			WithContext("market_id", c.market.ID)
	}
	j := i + n
	if j < 0 || j >= len(c.sessions) {
		return time.Time{}, c.outOfRange(day)
	}
	return c.sessions[j], nil
}

func (c *Calendar) outOfRange(day time.Time) error {
	return apperrors.NewOutOfRangeError(
		fmt.Sprintf("no session data covering %s", day.Format("2006-01-02"))).
		WithContext("market_id", c.market.ID).
		WithContext("range_start", c.sessions[0].Format("2006-01-02")).
		WithContext("range_end", c.sessions[len(c.sessions)-1].Format("2006-01-02"))
}
