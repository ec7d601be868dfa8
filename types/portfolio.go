package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioView is a read-only snapshot of the ledger, handed to the
// strategy each step and to the analyzer at run end.
type PortfolioView struct {
	Cash      decimal.Decimal
	Positions map[string]PositionSnapshot
	Time      time.Time
}

type PositionSnapshot struct {
	Symbol    string
	Quantity  decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

// Value marks the snapshot to market: cash plus every position at its last
// known price.
func (v PortfolioView) Value() decimal.Decimal {
	total := v.Cash
	for _, pos := range v.Positions {
		total = total.Add(pos.Quantity.Mul(pos.LastPrice))
	}
	return total
}

// UnrealizedPnL of a single position at its last known price.
func (s PositionSnapshot) UnrealizedPnL() decimal.Decimal {
	return s.LastPrice.Sub(s.AvgCost).Mul(s.Quantity)
}

// EquityPoint is one mark-to-market observation of total portfolio value.
// The engine appends one per processed step; together they form the equity
// curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    decimal.Decimal
}
