package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"fnspipe/internal/config"
	"fnspipe/internal/exporter"
	"fnspipe/internal/infrastructure"
	"fnspipe/internal/loader"
	"fnspipe/internal/pipeline"
	"fnspipe/pkg/contracts"
)

func main() {
	newsPath := flag.String("news", "", "news CSV file (required)")
	pricesPath := flag.String("prices", "", "price bar CSV file (required)")
	configPath := flag.String("config", os.Getenv("FNS_CONFIG_FILE"), "optional YAML config file")
	newsZone := flag.String("news-zone", "America/New_York", "default timezone for news rows without one")
	symbol := flag.String("symbol", "", "symbol for price files without a symbol column")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return
	}

	if *newsPath == "" || *pricesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: pipeline -news <news.csv> -prices <prices.csv> [-config <config.yaml>]")
		os.Exit(2)
	}

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()
	slog.SetDefault(logger)

	ctx := infrastructure.ContextWithRunID(context.Background())
	logger.InfoContext(ctx, "pipeline starting",
		slog.String("market_id", cfg.Pipeline.MarketID),
		slog.String("alignment_policy", cfg.Pipeline.AlignmentPolicy),
		slog.String("aggregation_mode", cfg.Pipeline.AggregationMode))

	news, newsReport, err := loader.NewNewsReader(*newsZone, logger).ReadCSV(*newsPath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load news", "error", err)
		os.Exit(1)
	}
	bars, priceReport, err := loader.NewPriceReader(logger).ReadCSV(*pricesPath, *symbol)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load prices", "error", err)
		os.Exit(1)
	}

	runner, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	result, err := runner.Run(ctx, pipeline.Input{News: news, Bars: bars})
	if err != nil {
		logger.ErrorContext(ctx, "pipeline run failed", "error", err)
		os.Exit(1)
	}

	exp := exporter.New(cfg.Output, logger)
	if _, err := exp.WriteFeaturesCSV(result.Features); err != nil {
		logger.ErrorContext(ctx, "failed to write feature table", "error", err)
		os.Exit(1)
	}
	if _, err := exp.WriteCorrelationsCSV(result.Correlations); err != nil {
		logger.ErrorContext(ctx, "failed to write correlation report", "error", err)
		os.Exit(1)
	}
	if cfg.Output.WriteWorkbook {
		if _, err := exp.WriteWorkbook(result.Features, result.Correlations); err != nil {
			logger.ErrorContext(ctx, "failed to write workbook", "error", err)
			os.Exit(1)
		}
	}

	logger.InfoContext(ctx, "pipeline finished",
		slog.String("run_id", result.Report.RunID),
		slog.Int("news_rows_loaded", newsReport.Loaded),
		slog.Int("news_rows_skipped", newsReport.Skipped),
		slog.Int("price_rows_loaded", priceReport.Loaded),
		slog.Int("price_rows_skipped", priceReport.Skipped),
		slog.Int("news_items_aligned", result.Report.Alignment.Accepted),
		slog.Int("news_items_rejected", result.Report.Alignment.Rejected),
		slog.Int("feature_rows", result.Report.RowsProcessed),
		slog.Int("correlations", len(result.Correlations)),
		slog.Int("symbols_failed", len(result.Report.SymbolErrors)),
		slog.Duration("duration", result.Report.Duration))

	for symbol, symErr := range result.Report.SymbolErrors {
		logger.WarnContext(ctx, "symbol failed",
			slog.String("symbol", symbol),
			slog.String("error", symErr.Error()))
	}
}
