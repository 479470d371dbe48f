// Package calendar answers which dates are trading sessions for a
// market and how to roll an arbitrary timestamp to one. Calendars are
// pre-loaded for a bounded date range and immutable once built, so all
// pipeline workers share one instance without locking.
package calendar
