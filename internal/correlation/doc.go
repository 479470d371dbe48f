// Package correlation joins the daily sentiment table against the
// price feature table and measures the linear relationship between the
// two, per symbol and per session lag. Sample sizes below the
// configured floor are refused instead of reported.
package correlation
