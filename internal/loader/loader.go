package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "fnspipe/internal/errors"
	"fnspipe/pkg/contracts/domain"
)

// validate checks parsed records against the constraint tags declared on
// the domain structs. A failing record is skipped, not fatal.
var validate = validator.New()

// Report counts the rows of one load. Malformed rows are skipped with a
// per-reason count and never abort the load.
type Report struct {
	Rows    int            `json:"rows"`
	Loaded  int            `json:"loaded"`
	Skipped int            `json:"skipped"`
	Reasons map[string]int `json:"reasons,omitempty"`
}

func (r *Report) skip(reason string) {
	r.Skipped++
	if r.Reasons == nil {
		r.Reasons = make(map[string]int)
	}
	r.Reasons[reason]++
}

// timestampLayouts are tried in order when parsing news timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NewsReader loads scored news items from CSV files with a header row.
// Column names are matched case-insensitively against a small alias
// set, so exports from different feeds load without reshaping.
type NewsReader struct {
	// DefaultZone is assumed for rows without a timezone column.
	DefaultZone string

	logger *slog.Logger
}

// NewNewsReader creates a news reader.
func NewNewsReader(defaultZone string, logger *slog.Logger) *NewsReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsReader{DefaultZone: defaultZone, logger: logger}
}

// ReadCSV loads every parseable row of the file. An unreadable file or
// unusable header fails outright; individual bad rows are counted and
// skipped.
func (r *NewsReader) ReadCSV(path string) ([]domain.NewsItem, Report, error) {
	var report Report

	f, err := os.Open(path)
	if err != nil {
		return nil, report, apperrors.NewStorageError("open news file", err).
			WithContext("path", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, report, apperrors.NewParseError("read news header", err).
			WithContext("path", path)
	}
	cols, err := mapColumns(header, map[string][]string{
		"symbol":       {"symbol", "stock", "stock_symbol", "ticker"},
		"published_at": {"published_at", "date", "datetime", "timestamp"},
		"headline":     {"headline", "headline_text", "title"},
		"publisher":    {"publisher", "source"},
		"sentiment":    {"sentiment", "sentiment_score", "score"},
	}, []string{"symbol", "published_at"})
	if err != nil {
		return nil, report, err
	}
	zoneCol := optionalColumn(header, "source_zone", "timezone", "zone")

	var items []domain.NewsItem
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Rows++
			report.skip("malformed csv row")
			continue
		}
		report.Rows++

		item, err := r.parseRow(row, cols, zoneCol)
		if err != nil {
			report.skip(err.Error())
			continue
		}
		report.Loaded++
		items = append(items, item)
	}

	r.logger.Info("news file loaded",
		slog.String("path", path),
		slog.Int("rows", report.Rows),
		slog.Int("loaded", report.Loaded),
		slog.Int("skipped", report.Skipped))

	return items, report, nil
}

func (r *NewsReader) parseRow(row []string, cols map[string]int, zoneCol int) (domain.NewsItem, error) {
	symbol := strings.ToUpper(strings.TrimSpace(field(row, cols["symbol"])))
	if symbol == "" {
		return domain.NewsItem{}, fmt.Errorf("missing symbol")
	}

	rawTime := strings.TrimSpace(field(row, cols["published_at"]))
	published, ok := parseTimestamp(rawTime)
	if !ok {
		return domain.NewsItem{}, fmt.Errorf("unparseable timestamp")
	}

	item := domain.NewsItem{
		Symbol:      symbol,
		Headline:    strings.TrimSpace(fieldAt(row, cols, "headline")),
		Publisher:   strings.TrimSpace(fieldAt(row, cols, "publisher")),
		PublishedAt: published,
		SourceZone:  r.DefaultZone,
	}
	if zoneCol >= 0 {
		if z := strings.TrimSpace(field(row, zoneCol)); z != "" {
			item.SourceZone = z
		}
	}

	if raw := strings.TrimSpace(fieldAt(row, cols, "sentiment")); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.NewsItem{}, fmt.Errorf("unparseable sentiment score")
		}
		item.Sentiment = &score
	}

	if err := validate.Struct(item); err != nil {
		return domain.NewsItem{}, fmt.Errorf("invalid news record")
	}
	return item, nil
}

// PriceReader loads OHLCV bars from CSV files with a header row.
type PriceReader struct {
	logger *slog.Logger
}

// NewPriceReader creates a price reader.
func NewPriceReader(logger *slog.Logger) *PriceReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceReader{logger: logger}
}

// ReadCSV loads a bar file into per-symbol series sorted by date.
// defaultSymbol applies to files without a symbol column, the usual
// shape of single-ticker history exports.
func (p *PriceReader) ReadCSV(path, defaultSymbol string) (map[string][]domain.PriceBar, Report, error) {
	var report Report

	f, err := os.Open(path)
	if err != nil {
		return nil, report, apperrors.NewStorageError("open price file", err).
			WithContext("path", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, report, apperrors.NewParseError("read price header", err).
			WithContext("path", path)
	}
	cols, err := mapColumns(header, map[string][]string{
		"symbol": {"symbol", "stock", "stock_symbol", "ticker"},
		"date":   {"date", "trading_date"},
		"open":   {"open"},
		"high":   {"high"},
		"low":    {"low"},
		"close":  {"close", "adj close", "adj_close"},
		"volume": {"volume"},
	}, []string{"date", "open", "high", "low", "close", "volume"})
	if err != nil {
		return nil, report, err
	}
	symbolCol, hasSymbolCol := cols["symbol"]
	if !hasSymbolCol && defaultSymbol == "" {
		return nil, report, apperrors.NewParseError("price file has no symbol column and no default symbol given", nil).
			WithContext("path", path)
	}

	bars := make(map[string][]domain.PriceBar)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Rows++
			report.skip("malformed csv row")
			continue
		}
		report.Rows++

		symbol := defaultSymbol
		if hasSymbolCol {
			if s := strings.ToUpper(strings.TrimSpace(field(row, symbolCol))); s != "" {
				symbol = s
			}
		}
		if symbol == "" {
			report.skip("missing symbol")
			continue
		}

		bar, err := parseBar(symbol, row, cols)
		if err != nil {
			report.skip(err.Error())
			continue
		}
		report.Loaded++
		bars[symbol] = append(bars[symbol], bar)
	}

	for symbol := range bars {
		series := bars[symbol]
		sort.Slice(series, func(i, j int) bool {
			return series[i].TradingDate.Before(series[j].TradingDate)
		})
		bars[symbol] = series
	}

	p.logger.Info("price file loaded",
		slog.String("path", path),
		slog.Int("rows", report.Rows),
		slog.Int("loaded", report.Loaded),
		slog.Int("skipped", report.Skipped),
		slog.Int("symbols", len(bars)))

	return bars, report, nil
}

func parseBar(symbol string, row []string, cols map[string]int) (domain.PriceBar, error) {
	date, ok := parseTimestamp(strings.TrimSpace(field(row, cols["date"])))
	if !ok {
		return domain.PriceBar{}, fmt.Errorf("unparseable date")
	}

	values := make(map[string]float64, 4)
	for _, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(field(row, cols[name])), 64)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("unparseable %s price", name)
		}
		values[name] = v
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(field(row, cols["volume"])), 10, 64)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("unparseable volume")
	}

	bar := domain.PriceBar{
		Symbol:      symbol,
		TradingDate: domain.NormalizeDay(date),
		Open:        values["open"],
		High:        values["high"],
		Low:         values["low"],
		Close:       values["close"],
		Volume:      volume,
	}
	if err := validate.Struct(bar); err != nil {
		return domain.PriceBar{}, fmt.Errorf("invalid price record")
	}
	return bar, nil
}

// mapColumns resolves logical column names to header positions. Every
// name in required must resolve; the rest stay absent from the map.
func mapColumns(header []string, aliases map[string][]string, required []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.ToLower(strings.TrimSpace(stripBOM(h)))] = i
	}

	cols := make(map[string]int, len(aliases))
	for name, names := range aliases {
		for _, alias := range names {
			if i, ok := positions[alias]; ok {
				cols[name] = i
				break
			}
		}
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.NewParseError(fmt.Sprintf("missing required column %q", name), nil)
		}
	}
	return cols, nil
}

func optionalColumn(header []string, names ...string) int {
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(stripBOM(h)))
		for _, name := range names {
			if key == name {
				return i
			}
		}
	}
	return -1
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\xEF\xBB\xBF")
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func fieldAt(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok {
		return ""
	}
	return field(row, i)
}
