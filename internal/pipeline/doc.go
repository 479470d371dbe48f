// Package pipeline orchestrates the batch run: news alignment, daily
// sentiment aggregation, per-symbol price feature computation, the
// sentiment/price join and the lag scan. Per-symbol work fans out
// across a bounded worker group; per-item and per-symbol failures are
// collected into the run report rather than aborting the batch.
package pipeline
