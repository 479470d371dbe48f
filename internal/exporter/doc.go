// Package exporter persists the pipeline's output tables as CSV files
// and an Excel workbook. CSV files carry a UTF-8 BOM so Excel opens
// them correctly; absent values are written as empty cells, never zero.
package exporter
