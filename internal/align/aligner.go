package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fnspipe/internal/calendar"
	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// Policy selects the rule mapping a news timestamp to a trading day.
type Policy string

const (
	// PolicySameDay uses the market-local publication date when it is a
	// session, otherwise rolls forward.
	PolicySameDay Policy = "same_day"
	// PolicyNextDay maps to the first session at which the news can
	// affect trading: before market close on a session date that date,
	// otherwise the next session. This is the default; the assumption is
	// that a news effect realizes at the next opportunity to trade.
	PolicyNextDay Policy = "next_day"
	// PolicyPreviousDay rolls backward, for backtests that assume
	// anticipatory pricing.
	PolicyPreviousDay Policy = "previous_day"
)

// ParsePolicy converts a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySameDay, PolicyNextDay, PolicyPreviousDay:
		return Policy(s), nil
	case "":
		return PolicyNextDay, nil
	default:
		return "", apperrors.NewConfigError(fmt.Sprintf("unknown alignment policy %q", s), nil)
	}
}

// Rejection reasons reported per skipped item.
const (
	ReasonMissingSymbol    = "missing symbol"
	ReasonMissingTimestamp = "missing timestamp"
	ReasonUnknownZone      = "unknown source timezone"
	ReasonUnscored         = "missing sentiment score"
	ReasonOutOfRange       = "resolved day outside calendar range"
)

// Report summarizes one alignment batch. Per-item failures are counted
// by reason and never abort the batch.
type Report struct {
	Accepted   int            `json:"accepted"`
	Rejected   int            `json:"rejected"`
	OutOfRange int            `json:"out_of_range"`
	Reasons    map[string]int `json:"reasons,omitempty"`
}

func (r *Report) reject(reason string) {
	r.Rejected++
	if r.Reasons == nil {
		r.Reasons = make(map[string]int)
	}
	r.Reasons[reason]++
}

// Aligner converts each news item's publication timestamp, in its source
// timezone, into a trading-day key using the market calendar.
type Aligner struct {
	cal    *calendar.Calendar
	policy Policy
	logger *slog.Logger
}

// New creates an aligner for the given calendar and policy.
func New(cal *calendar.Calendar, policy Policy, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aligner{cal: cal, policy: policy, logger: logger}
}

// Align maps a batch of news items to trading-day records, one record
// per accepted item with SourceItemCount == 1. Items with unusable
// timestamps are rejected individually; items whose resolved day falls
// outside the loaded calendar range are dropped and counted.
func (a *Aligner) Align(ctx context.Context, items []domain.NewsItem) ([]domain.AlignedNewsRecord, Report) {
	var report Report
	records := make([]domain.AlignedNewsRecord, 0, len(items))

	for _, item := range items {
		record, err := a.alignItem(item)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrTypeOutOfRange) {
				report.OutOfRange++
				report.reject(ReasonOutOfRange)
			} else {
				reason := "unparseable item"
				var appErr *apperrors.AppError
				if errors.As(err, &appErr) {
					reason = appErr.Message
				}
				report.reject(reason)
			}
			a.logger.DebugContext(ctx, "news item skipped",
				slog.String("symbol", item.Symbol),
				slog.String("error", err.Error()))
			continue
		}
		report.Accepted++
		records = append(records, record)
	}

	a.logger.InfoContext(ctx, "news alignment completed",
		slog.String("policy", string(a.policy)),
		slog.Int("accepted", report.Accepted),
		slog.Int("rejected", report.Rejected),
		slog.Int("out_of_range", report.OutOfRange))

	return records, report
}

// alignItem resolves a single item to its trading day.
func (a *Aligner) alignItem(item domain.NewsItem) (domain.AlignedNewsRecord, error) {
	if item.Symbol == "" {
		return domain.AlignedNewsRecord{}, apperrors.NewParseError(ReasonMissingSymbol, nil)
	}
	if item.PublishedAt.IsZero() {
		return domain.AlignedNewsRecord{}, apperrors.NewParseError(ReasonMissingTimestamp, nil).
			WithContext("symbol", item.Symbol)
	}
	if !item.IsScored() {
		return domain.AlignedNewsRecord{}, apperrors.NewParseError(ReasonUnscored, nil).
			WithContext("symbol", item.Symbol)
	}

	published, err := a.publishedInstant(item)
	if err != nil {
		return domain.AlignedNewsRecord{}, err
	}

	tradingDay, err := a.resolve(published)
	if err != nil {
		return domain.AlignedNewsRecord{}, err
	}

	return domain.AlignedNewsRecord{
		Symbol:          item.Symbol,
		TradingDay:      tradingDay,
		Score:           item.SentimentScore(),
		SourceItemCount: 1,
		Publisher:       item.Publisher,
		PublishedAt:     published,
	}, nil
}

// publishedInstant interprets the item's wall-clock timestamp in its
// declared source timezone. Without a declared zone the timestamp's own
// location stands.
func (a *Aligner) publishedInstant(item domain.NewsItem) (time.Time, error) {
	if item.SourceZone == "" {
		return item.PublishedAt, nil
	}
	loc, err := time.LoadLocation(item.SourceZone)
	if err != nil {
		return time.Time{}, apperrors.NewParseError(ReasonUnknownZone, err).
			WithContext("symbol", item.Symbol).
			WithContext("source_zone", item.SourceZone)
	}
	t := item.PublishedAt
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
}

// resolve applies the alignment policy to a publication instant.
func (a *Aligner) resolve(published time.Time) (time.Time, error) {
	local := published.In(a.cal.Location())
	switch a.policy {
	case PolicySameDay:
		return a.cal.SessionOnOrAfter(local)
	case PolicyPreviousDay:
		return a.cal.SessionOnOrBefore(local)
	default: // PolicyNextDay
		return a.cal.SessionAfter(published)
	}
}
