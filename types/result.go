package types

import (
	"github.com/shopspring/decimal"
)

type RunStatus string

const (
	RunInitialized RunStatus = "INITIALIZED"
	RunRunning     RunStatus = "RUNNING"
	RunCompleted   RunStatus = "COMPLETED"
	RunFailed      RunStatus = "FAILED"
)

// RunResult is everything a backtest run leaves behind. It is a plain
// record: the analyzer and any report sink consume it without touching the
// engine. On a failed run the fields hold whatever was recorded up to the
// failure point.
type RunResult struct {
	RunID       string
	Status      RunStatus
	InitialCash decimal.Decimal
	Fills       []Fill
	Equity      []EquityPoint
	Final       PortfolioView
	// RealizedBySymbol accumulates gross realized P&L per symbol over the
	// whole run, including positions closed and reopened along the way.
	RealizedBySymbol map[string]decimal.Decimal
	Commissions      decimal.Decimal
	Warnings         int
}
