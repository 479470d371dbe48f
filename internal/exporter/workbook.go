package exporter

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

const (
	sheetFeatures     = "Features"
	sheetCorrelations = "Correlations"
)

// WriteWorkbook writes both tables into one Excel workbook and returns
// the written path. Cells for absent values stay empty, matching the
// CSV output.
func (e *Exporter) WriteWorkbook(rows []domain.DailyFeatureRow, results []domain.CorrelationResult) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetFeatures); err != nil {
		return "", apperrors.NewStorageError("rename workbook sheet", err)
	}
	if _, err := f.NewSheet(sheetCorrelations); err != nil {
		return "", apperrors.NewStorageError("create workbook sheet", err)
	}

	if err := e.writeFeatureSheet(f, rows); err != nil {
		return "", err
	}
	if err := e.writeCorrelationSheet(f, results); err != nil {
		return "", err
	}

	path := filepath.Join(e.cfg.Dir, e.cfg.Workbook)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apperrors.NewStorageError("create output directory", err).
			WithContext("path", path)
	}
	if err := f.SaveAs(path); err != nil {
		return "", apperrors.NewStorageError("save workbook", err).
			WithContext("path", path)
	}

	e.logger.Info("workbook written",
		slog.String("path", path),
		slog.Int("feature_rows", len(rows)),
		slog.Int("correlation_rows", len(results)))
	return path, nil
}

func (e *Exporter) writeFeatureSheet(f *excelize.File, rows []domain.DailyFeatureRow) error {
	indicators := indicatorColumns(rows)

	header := []interface{}{"symbol", "trading_day", "daily_return", "log_return", "sentiment", "sentiment_items", "sentiment_roll_mean"}
	for _, name := range indicators {
		header = append(header, name)
	}
	if err := setRow(f, sheetFeatures, 1, header); err != nil {
		return err
	}

	for i, row := range rows {
		cells := []interface{}{
			row.Symbol,
			row.TradingDay.Format("2006-01-02"),
			optionalCell(row.DailyReturn, row.HasReturn),
			optionalCell(row.LogReturn, row.HasReturn),
			optionalCell(row.Sentiment, row.HasSentiment),
			row.SentimentItems,
			optionalCell(row.SentimentSmoothed, row.HasSentimentSmoothed),
		}
		for _, name := range indicators {
			v, ok := row.Indicator(name)
			cells = append(cells, optionalCell(v, ok))
		}
		if err := setRow(f, sheetFeatures, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeCorrelationSheet(f *excelize.File, results []domain.CorrelationResult) error {
	header := []interface{}{"symbol", "column", "lag_days", "pearson_r", "p_value", "sample_size", "window_start", "window_end"}
	if err := setRow(f, sheetCorrelations, 1, header); err != nil {
		return err
	}

	for i, res := range results {
		cells := []interface{}{
			res.Symbol,
			res.Column,
			res.LagDays,
			res.PearsonR,
			res.PValue,
			res.SampleSize,
			res.WindowStart.Format("2006-01-02"),
			res.WindowEnd.Format("2006-01-02"),
		}
		if err := setRow(f, sheetCorrelations, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	cell := "A" + strconv.Itoa(rowNum)
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return apperrors.NewStorageError("write workbook row", err).
			WithContext("sheet", sheet).
			WithContext("row", rowNum)
	}
	return nil
}

func optionalCell(v float64, ok bool) interface{} {
	if !ok {
		return nil
	}
	return v
}
