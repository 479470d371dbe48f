package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"fnspipe/internal/calendar"
	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// Config selects the indicator columns the engine emits. Windows maps
// an output column name to its window length; the column's indicator
// kind is taken from the name prefix (sma, ema, rsi, realized_vol,
// volatility). MACD parameters apply to the always-emitted macd,
// macd_signal and macd_hist columns.
type Config struct {
	Windows map[string]int

	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultConfig returns the standard indicator set: 20-day SMA/EMA,
// 14-day RSI, 20-day annualized volatility, MACD 12/26/9.
func DefaultConfig() Config {
	return Config{
		Windows: map[string]int{
			"sma_20":        20,
			"ema_20":        20,
			"rsi_14":        14,
			"volatility_20": 20,
		},
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// columnKind resolves an indicator column name to its computation kind.
func columnKind(name string) (string, error) {
	switch {
	case strings.HasPrefix(name, "sma"):
		return "sma", nil
	case strings.HasPrefix(name, "ema"):
		return "ema", nil
	case strings.HasPrefix(name, "rsi"):
		return "rsi", nil
	case strings.HasPrefix(name, "realized_vol"):
		return "realized_vol", nil
	case strings.HasPrefix(name, "volatility"):
		return "volatility", nil
	default:
		return "", apperrors.NewConfigError(fmt.Sprintf("unknown indicator column %q", name), nil)
	}
}

// Engine computes price-derived daily feature rows from ordered OHLCV
// bars, one symbol at a time. Rows before an indicator's warm-up window
// fills carry no entry for that column; the first bar of a series has
// no return at all.
type Engine struct {
	cal    *calendar.Calendar
	cfg    Config
	logger *slog.Logger
}

// New creates an engine, validating the configured indicator columns.
func New(cal *calendar.Calendar, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MACDFast <= 0 {
		cfg.MACDFast = 12
	}
	if cfg.MACDSlow <= 0 {
		cfg.MACDSlow = 26
	}
	if cfg.MACDSignal <= 0 {
		cfg.MACDSignal = 9
	}
	for name, window := range cfg.Windows {
		if _, err := columnKind(name); err != nil {
			return nil, err
		}
		if window < 1 {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("indicator column %q has window %d", name, window), nil)
		}
	}
	return &Engine{cal: cal, cfg: cfg, logger: logger}, nil
}

// Compute produces one feature row per input bar. The bar sequence must
// be strictly increasing by trading date with every date a valid
// session; violations are programmer errors that abort the run. A
// non-positive close price fails with INVALID_PRICE, fatal for this
// symbol's series only.
func (e *Engine) Compute(ctx context.Context, symbol string, bars []domain.PriceBar) ([]domain.DailyFeatureRow, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	if err := e.validateSeries(symbol, bars); err != nil {
		return nil, err
	}

	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	simpleReturns := nanSlice(n)
	logReturns := nanSlice(n)
	for i := 1; i < n; i++ {
		simpleReturns[i] = (closes[i] - closes[i-1]) / closes[i-1]
		logReturns[i] = math.Log(closes[i] / closes[i-1])
	}

	columns := e.computeColumns(closes, simpleReturns, logReturns)

	rows := make([]domain.DailyFeatureRow, n)
	for i, b := range bars {
		row := domain.DailyFeatureRow{
			Symbol:     symbol,
			TradingDay: domain.NormalizeDay(b.TradingDate),
			Indicators: make(map[string]float64),
		}
		if i > 0 {
			row.DailyReturn = simpleReturns[i]
			row.LogReturn = logReturns[i]
			row.HasReturn = true
		}
		for name, series := range columns {
			if v := series[i]; !math.IsNaN(v) {
				row.Indicators[name] = v
			}
		}
		rows[i] = row
	}

	e.logger.DebugContext(ctx, "indicator computation completed",
		slog.String("symbol", symbol),
		slog.Int("bars", n),
		slog.Int("columns", len(columns)))

	return rows, nil
}

// computeColumns evaluates every configured indicator column plus the
// MACD triple.
func (e *Engine) computeColumns(closes, simpleReturns, logReturns []float64) map[string][]float64 {
	columns := make(map[string][]float64, len(e.cfg.Windows)+3)

	for name, window := range e.cfg.Windows {
		kind, _ := columnKind(name) // validated in New
		switch kind {
		case "sma":
			columns[name] = SMA(closes, window)
		case "ema":
			columns[name] = EMA(closes, window)
		case "rsi":
			columns[name] = RSI(closes, window)
		case "volatility":
			columns[name] = AnnualizedVolatility(simpleReturns, window)
		case "realized_vol":
			columns[name] = AnnualizedVolatility(logReturns, window)
		}
	}

	macd := MACD(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	columns["macd"] = macd.MACD
	columns["macd_signal"] = macd.Signal
	columns["macd_hist"] = macd.Histogram

	return columns
}

// validateSeries enforces the input contract for one symbol's bars.
func (e *Engine) validateSeries(symbol string, bars []domain.PriceBar) error {
	for i, b := range bars {
		if !b.IsValid() {
			return apperrors.NewInvalidPriceError(symbol,
				fmt.Sprintf("invalid OHLCV bar at %s", b.TradingDate.Format("2006-01-02")))
		}
		if b.Close <= 0 {
			return apperrors.NewInvalidPriceError(symbol,
				fmt.Sprintf("non-positive close price at %s", b.TradingDate.Format("2006-01-02")))
		}
		if i > 0 && !bars[i-1].TradingDate.Before(b.TradingDate) {
			return apperrors.NewValidationError(
				fmt.Sprintf("price series for %s not strictly increasing at index %d", symbol, i))
		}
		is, err := e.cal.IsSession(b.TradingDate)
		if err != nil {
			return fmt.Errorf("validate bar date for %s: %w", symbol, err)
		}
		if !is {
			return apperrors.NewValidationError(
				fmt.Sprintf("price bar for %s dated %s is not a trading session",
					symbol, b.TradingDate.Format("2006-01-02")))
		}
	}
	return nil
}
