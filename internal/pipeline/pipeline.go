package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fnspipe/internal/align"
	"fnspipe/internal/calendar"
	"fnspipe/internal/config"
	"fnspipe/internal/correlation"
	apperrors "fnspipe/internal/errors"
	"fnspipe/internal/indicator"
	"fnspipe/internal/infrastructure"
	"fnspipe/internal/sentiment"
	"fnspipe/pkg/contracts/domain"
)

// Input carries one run's raw material: scored news items, per-symbol
// ordered price bars, and the market holidays inside the bar range.
type Input struct {
	News     []domain.NewsItem
	Bars     map[string][]domain.PriceBar
	Holidays []time.Time
}

// Result is the merged output of one run. Feature rows and correlation
// results are concatenated across symbols; order across symbols is not
// guaranteed beyond the final sort by symbol and day.
type Result struct {
	Features     []domain.DailyFeatureRow
	Correlations []domain.CorrelationResult
	Report       RunReport
}

// RunReport distinguishes processed rows, skipped rows with reasons,
// and per-symbol fatals so a caller can tell partial success from total
// failure.
type RunReport struct {
	RunID         string
	Alignment     align.Report
	RowsProcessed int

	// SymbolErrors holds per-symbol fatal failures; the other symbols
	// continue.
	SymbolErrors map[string]error

	// LagFailures holds per-symbol lags whose correlation could not be
	// computed; the other lags continue.
	LagFailures map[string][]correlation.LagFailure

	Duration time.Duration
}

// Runner wires the stages together and fans per-symbol work out across
// a bounded worker group. The calendar is shared read-only by every
// worker.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, apperrors.NewValidationError("nil configuration")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Run executes the full batch: align news to trading days, aggregate to
// daily sentiment rows, compute per-symbol price features, join the two
// tables, and scan the configured lag range. Calendar misconfiguration
// aborts the run; per-item and per-symbol failures are collected into
// the report alongside the successful results.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	started := time.Now()

	report := RunReport{
		RunID:        infrastructure.GetRunID(ctx),
		SymbolErrors: make(map[string]error),
		LagFailures:  make(map[string][]correlation.LagFailure),
	}

	cal, err := r.loadCalendar(in)
	if err != nil {
		return nil, err
	}

	pcfg := r.cfg.Pipeline
	policy, err := align.ParsePolicy(pcfg.AlignmentPolicy)
	if err != nil {
		return nil, err
	}
	mode, err := sentiment.ParseMode(pcfg.AggregationMode)
	if err != nil {
		return nil, err
	}

	aligner := align.New(cal, policy, r.logger)
	records, alignReport := aligner.Align(ctx, in.News)
	report.Alignment = alignReport

	aggregator := sentiment.New(mode, sentiment.Options{
		PublisherWeights: pcfg.PublisherWeights,
		RecencyHalfLife:  time.Duration(pcfg.RecencyHalfLifeHours * float64(time.Hour)),
	}, r.logger)
	daily := aggregator.Aggregate(ctx, records)
	daily = sentiment.Smooth(daily, pcfg.SentimentSmoothWindow)

	dailyBySymbol := make(map[string][]domain.AlignedNewsRecord)
	for _, rec := range daily {
		dailyBySymbol[rec.Symbol] = append(dailyBySymbol[rec.Symbol], rec)
	}

	engine, err := indicator.New(cal, indicator.Config{Windows: pcfg.IndicatorWindows}, r.logger)
	if err != nil {
		return nil, err
	}
	analyzer := correlation.NewAnalyzer(cal, pcfg.MinSampleSize, r.logger)

	result := &Result{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pcfg.MaxConcurrency)

	for symbol, bars := range in.Bars {
		symbol, bars := symbol, bars
		g.Go(func() error {
			features, corrs, lagFailures, err := r.processSymbol(gctx, symbol, bars, dailyBySymbol[symbol], engine, analyzer)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if apperrors.IsType(err, apperrors.ErrTypeInvalidPrice) {
					report.SymbolErrors[symbol] = err
					r.logger.WarnContext(gctx, "symbol skipped",
						slog.String("symbol", symbol),
						slog.String("error", err.Error()))
					return nil
				}
				return err
			}
			result.Features = append(result.Features, features...)
			result.Correlations = append(result.Correlations, corrs...)
			if len(lagFailures) > 0 {
				report.LagFailures[symbol] = lagFailures
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline run: %w", err)
	}

	sort.Slice(result.Features, func(i, j int) bool {
		if result.Features[i].Symbol != result.Features[j].Symbol {
			return result.Features[i].Symbol < result.Features[j].Symbol
		}
		return result.Features[i].TradingDay.Before(result.Features[j].TradingDay)
	})
	sort.Slice(result.Correlations, func(i, j int) bool {
		if result.Correlations[i].Symbol != result.Correlations[j].Symbol {
			return result.Correlations[i].Symbol < result.Correlations[j].Symbol
		}
		return result.Correlations[i].LagDays < result.Correlations[j].LagDays
	})

	report.RowsProcessed = len(result.Features)
	report.Duration = time.Since(started)
	result.Report = report

	r.logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("symbols", len(in.Bars)),
		slog.Int("rows_processed", report.RowsProcessed),
		slog.Int("symbols_failed", len(report.SymbolErrors)),
		slog.Int("correlations", len(result.Correlations)),
		slog.Duration("duration", report.Duration))

	return result, nil
}

// processSymbol runs the price-side stages, the join and the lag scan
// for one symbol.
func (r *Runner) processSymbol(ctx context.Context, symbol string, bars []domain.PriceBar, daily []domain.AlignedNewsRecord, engine *indicator.Engine, analyzer *correlation.Analyzer) ([]domain.DailyFeatureRow, []domain.CorrelationResult, []correlation.LagFailure, error) {
	rows, err := engine.Compute(ctx, symbol, bars)
	if err != nil {
		return nil, nil, nil, err
	}

	features := correlation.JoinTables(daily, rows)
	if len(daily) == 0 {
		// No sentiment for this symbol: keep its feature rows out of the
		// joined table and skip the lag scan entirely.
		return nil, nil, nil, nil
	}

	pcfg := r.cfg.Pipeline
	corrs, lagFailures, err := analyzer.ScanLags(ctx, symbol, pcfg.TargetColumn, daily, rows, pcfg.LagMin, pcfg.LagMax)
	if err != nil {
		return nil, nil, nil, err
	}
	return features, corrs, lagFailures, nil
}

// loadCalendar builds the run calendar spanning the full bar range.
func (r *Runner) loadCalendar(in Input) (*calendar.Calendar, error) {
	var start, end time.Time
	for _, bars := range in.Bars {
		for _, b := range bars {
			d := domain.NormalizeDay(b.TradingDate)
			if start.IsZero() || d.Before(start) {
				start = d
			}
			if end.IsZero() || d.After(end) {
				end = d
			}
		}
	}
	if start.IsZero() {
		return nil, apperrors.NewValidationError("no price bars provided")
	}
	return calendar.LoadMarket(r.cfg.Pipeline.MarketID, start, end, in.Holidays)
}
