package calendar

import (
	"time"

	apperrors "fnspipe/internal/errors"
)

// Market describes an exchange: its identifier, local timezone and
// trading hours. All calendar comparisons happen in the market's local
// timezone, never in the caller's.
type Market struct {
	ID       string
	Timezone string // IANA zone name, e.g. America/New_York

	// Open and Close are offsets from local midnight.
	Open  time.Duration
	Close time.Duration
}

// IsValid checks the market definition.
func (m Market) IsValid() bool {
	return m.ID != "" && m.Timezone != "" && m.Open >= 0 && m.Close > m.Open
}

// builtinMarkets are the exchanges known out of the box. Additional
// markets are registered with RegisterMarket.
var builtinMarkets = map[string]Market{
	"XNYS": {
		ID:       "XNYS",
		Timezone: "America/New_York",
		Open:     9*time.Hour + 30*time.Minute,
		Close:    16 * time.Hour,
	},
	"ISX": {
		ID:       "ISX",
		Timezone: "Asia/Baghdad",
		Open:     10 * time.Hour,
		Close:    13 * time.Hour,
	},
}

var customMarkets = map[string]Market{}

// RegisterMarket makes a custom market available to MarketByID. It
// overrides a builtin with the same ID.
func RegisterMarket(m Market) error {
	if !m.IsValid() {
		return apperrors.NewValidationError("invalid market definition").
			WithContext("market_id", m.ID)
	}
	if _, err := time.LoadLocation(m.Timezone); err != nil {
		return apperrors.NewValidationError("unknown market timezone").
			WithContext("market_id", m.ID).
			WithContext("timezone", m.Timezone)
	}
	customMarkets[m.ID] = m
	return nil
}

// MarketByID resolves a market identifier. Unknown IDs fail with an
// INVALID_MARKET error, which aborts the run.
func MarketByID(id string) (Market, error) {
	if m, ok := customMarkets[id]; ok {
		return m, nil
	}
	if m, ok := builtinMarkets[id]; ok {
		return m, nil
	}
	return Market{}, apperrors.NewInvalidMarketError(id)
}
