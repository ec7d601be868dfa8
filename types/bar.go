package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV observation for a symbol. Bars are built during data
// loading and never mutated afterwards.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}

// AdjustmentFactor front-adjusts a symbol's price history: the factor is
// multiplied into all prices strictly before EffectiveDate, so the most
// recent price segment stays unadjusted.
type AdjustmentFactor struct {
	Symbol        string          `json:"symbol"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	Factor        decimal.Decimal `json:"factor"`
}

// HaltRecord marks a (symbol, date) pair as untradeable. No bar is emitted
// for a halted session; existing positions are held at the last known close.
type HaltRecord struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Halted bool      `json:"halted"`
}
