// Package sentiment reduces item-level sentiment scores into one daily
// signal per (symbol, trading day).
package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// Mode selects how item scores combine into the daily score.
type Mode string

const (
	// ModeMean is the arithmetic mean of the contributing scores.
	ModeMean Mode = "mean"
	// ModeWeighted weighs each score by publisher reputation and,
	// when a recency half-life is configured, by item age within the day.
	ModeWeighted Mode = "weighted"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMean, ModeWeighted:
		return Mode(s), nil
	case "":
		return ModeMean, nil
	default:
		return "", apperrors.NewConfigError(fmt.Sprintf("unknown aggregation mode %q", s), nil)
	}
}

// Options tunes the weighted mode. Publishers absent from
// PublisherWeights weigh 1.0; RecencyHalfLife == 0 disables decay.
type Options struct {
	PublisherWeights map[string]float64
	RecencyHalfLife  time.Duration
}

// Aggregator combines aligned per-item records into at most one row per
// (symbol, trading day). The mode is selected by configuration; the
// interface is the same for every mode.
type Aggregator struct {
	mode   Mode
	opts   Options
	logger *slog.Logger
}

// New creates an aggregator for the given mode.
func New(mode Mode, opts Options, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{mode: mode, opts: opts, logger: logger}
}

// Aggregate collapses the precursor records into daily rows. Every input
// record contributes to exactly one output row; SourceItemCount on each
// row equals the number of contributing items. Days with no qualifying
// items never appear — no synthetic zero rows.
func (g *Aggregator) Aggregate(ctx context.Context, records []domain.AlignedNewsRecord) []domain.AlignedNewsRecord {
	groups := make(map[string][]domain.AlignedNewsRecord)
	var keys []string
	for _, r := range records {
		k := r.Key()
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}

	// Deterministic output order regardless of input order.
	sort.Strings(keys)

	out := make([]domain.AlignedNewsRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.combine(groups[k]))
	}

	g.logger.InfoContext(ctx, "sentiment aggregation completed",
		slog.String("mode", string(g.mode)),
		slog.Int("input_records", len(records)),
		slog.Int("daily_rows", len(out)))

	return out
}

// combine reduces one (symbol, day) group. The group is never empty.
func (g *Aggregator) combine(group []domain.AlignedNewsRecord) domain.AlignedNewsRecord {
	first := group[0]
	row := domain.AlignedNewsRecord{
		Symbol:          first.Symbol,
		TradingDay:      first.TradingDay,
		SourceItemCount: len(group),
		ScoreMin:        group[0].Score,
		ScoreMax:        group[0].Score,
	}

	var sum, weightedSum, weightSum float64
	for _, r := range group {
		sum += r.Score
		if r.Score < row.ScoreMin {
			row.ScoreMin = r.Score
		}
		if r.Score > row.ScoreMax {
			row.ScoreMax = r.Score
		}
		if g.mode == ModeWeighted {
			w := g.weight(r, group)
			weightedSum += w * r.Score
			weightSum += w
		}
	}

	mean := sum / float64(len(group))
	if g.mode == ModeWeighted && weightSum > 0 {
		row.Score = weightedSum / weightSum
	} else {
		row.Score = mean
	}

	// Population standard deviation around the arithmetic mean.
	var sumSq float64
	for _, r := range group {
		d := r.Score - mean
		sumSq += d * d
	}
	row.ScoreStdDev = math.Sqrt(sumSq / float64(len(group)))

	return row
}

// weight computes a record's weight in weighted mode: publisher
// reputation, decayed by 2^(-age/halfLife) where age is measured back
// from the latest publication in the group.
func (g *Aggregator) weight(r domain.AlignedNewsRecord, group []domain.AlignedNewsRecord) float64 {
	w := 1.0
	if pw, ok := g.opts.PublisherWeights[r.Publisher]; ok {
		w = pw
	}
	if g.opts.RecencyHalfLife > 0 && !r.PublishedAt.IsZero() {
		latest := r.PublishedAt
		for _, other := range group {
			if other.PublishedAt.After(latest) {
				latest = other.PublishedAt
			}
		}
		age := latest.Sub(r.PublishedAt)
		w *= math.Exp2(-age.Hours() / g.opts.RecencyHalfLife.Hours())
	}
	return w
}
