// Package loader reads news and price CSV exports into the typed
// records the pipeline consumes. Header columns are matched by alias so
// feeds with slightly different naming load without reshaping; bad rows
// are counted and skipped, never fatal.
package loader
