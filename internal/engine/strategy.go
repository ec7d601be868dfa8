package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"quantbt/types"
)

// Strategy is the one capability the engine requires from a caller. An
// error return is treated as "no orders this step" and logged, unless the
// engine was configured with StrategyFatal.
//
// Implementations must not mutate the snapshot they receive.
type Strategy interface {
	GenerateOrders(snap Snapshot) ([]types.Order, error)
}

// Snapshot is what a strategy sees at one step. History holds bars up
// through the previous step only; the current bar's close is used for fill
// pricing but is never visible at decision time, which keeps the simulation
// free of lookahead bias.
type Snapshot struct {
	Timestamp time.Time
	// History maps symbol to its aligned bars up through the previous step.
	History map[string][]types.Bar
	// AvgVolume is the trailing average volume per symbol over the
	// configured window, for participation-aware sizing.
	AvgVolume map[string]decimal.Decimal
	Portfolio types.PortfolioView
}

// LastClose returns the most recent visible close for a symbol, or false
// when no bar has been seen yet.
func (s Snapshot) LastClose(symbol string) (decimal.Decimal, bool) {
	bars := s.History[symbol]
	if len(bars) == 0 {
		return decimal.Decimal{}, false
	}
	return bars[len(bars)-1].Close, true
}
