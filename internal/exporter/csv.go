package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"fnspipe/internal/config"
	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// Exporter writes the feature table and correlation report to the
// configured output directory.
type Exporter struct {
	cfg    config.OutputConfig
	logger *slog.Logger
}

// New creates an exporter.
func New(cfg config.OutputConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cfg: cfg, logger: logger}
}

// writeOptions configures one CSV write.
type writeOptions struct {
	headers []string
	records [][]string

	// bomPrefix adds a UTF-8 BOM so Excel opens the file correctly.
	bomPrefix bool
}

// WriteFeaturesCSV writes the joined daily feature table and returns
// the written path. Indicator columns are the sorted union across all
// rows; warm-up cells stay empty rather than zero.
func (e *Exporter) WriteFeaturesCSV(rows []domain.DailyFeatureRow) (string, error) {
	indicators := indicatorColumns(rows)

	headers := []string{"symbol", "trading_day", "daily_return", "log_return", "sentiment", "sentiment_items", "sentiment_roll_mean"}
	headers = append(headers, indicators...)

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := []string{
			row.Symbol,
			row.TradingDay.Format("2006-01-02"),
			formatOptional(row.DailyReturn, row.HasReturn),
			formatOptional(row.LogReturn, row.HasReturn),
			formatOptional(row.Sentiment, row.HasSentiment),
			strconv.Itoa(row.SentimentItems),
			formatOptional(row.SentimentSmoothed, row.HasSentimentSmoothed),
		}
		for _, name := range indicators {
			v, ok := row.Indicator(name)
			record = append(record, formatOptional(v, ok))
		}
		records = append(records, record)
	}

	path := filepath.Join(e.cfg.Dir, e.cfg.FeaturesCSV)
	if err := e.writeCSV(path, writeOptions{headers: headers, records: records, bomPrefix: true}); err != nil {
		return "", err
	}

	e.logger.Info("feature table written",
		slog.String("path", path),
		slog.Int("rows", len(records)),
		slog.Int("indicator_columns", len(indicators)))
	return path, nil
}

// WriteCorrelationsCSV writes the correlation report and returns the
// written path.
func (e *Exporter) WriteCorrelationsCSV(results []domain.CorrelationResult) (string, error) {
	headers := []string{"symbol", "column", "lag_days", "pearson_r", "p_value", "sample_size", "window_start", "window_end"}

	records := make([][]string, 0, len(results))
	for _, res := range results {
		records = append(records, []string{
			res.Symbol,
			res.Column,
			strconv.Itoa(res.LagDays),
			formatFloat(res.PearsonR),
			formatFloat(res.PValue),
			strconv.Itoa(res.SampleSize),
			res.WindowStart.Format("2006-01-02"),
			res.WindowEnd.Format("2006-01-02"),
		})
	}

	path := filepath.Join(e.cfg.Dir, e.cfg.CorrelationCSV)
	if err := e.writeCSV(path, writeOptions{headers: headers, records: records, bomPrefix: true}); err != nil {
		return "", err
	}

	e.logger.Info("correlation report written",
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return path, nil
}

// writeCSV writes one file, creating the output directory as needed.
func (e *Exporter) writeCSV(path string, options writeOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create output directory", err).
			WithContext("path", path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return apperrors.NewStorageError("open output file", err).
			WithContext("path", path)
	}
	defer file.Close()

	if options.bomPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return apperrors.NewStorageError("write BOM", err).
				WithContext("path", path)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.headers) > 0 {
		if err := writer.Write(options.headers); err != nil {
			return apperrors.NewStorageError("write headers", err).
				WithContext("path", path)
		}
	}
	for i, record := range options.records {
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write record %d", i), err).
				WithContext("path", path)
		}
	}

	writer.Flush()
	return writer.Error()
}

// indicatorColumns collects the sorted union of indicator names.
func indicatorColumns(rows []domain.DailyFeatureRow) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Indicators {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatOptional(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return formatFloat(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
