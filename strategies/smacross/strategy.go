// Package smacross is a simple moving-average crossover strategy, included
// as the reference implementation of the engine's strategy capability.
package smacross

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"quantbt/internal/engine"
	"quantbt/types"
)

type Strategy struct {
	fast int
	slow int
	// positionPercent is the fraction of current cash committed per entry.
	positionPercent decimal.Decimal
}

func New(fast, slow int, positionPercent decimal.Decimal) (*Strategy, error) {
	if fast <= 0 || slow <= fast {
		return nil, fmt.Errorf("sma windows must satisfy 0 < fast < slow, got %d/%d", fast, slow)
	}
	if positionPercent.LessThanOrEqual(decimal.Zero) || positionPercent.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("position percent must be in (0, 1], got %s", positionPercent)
	}
	return &Strategy{fast: fast, slow: slow, positionPercent: positionPercent}, nil
}

// GenerateOrders buys when the fast SMA crosses above the slow SMA while
// flat, and liquidates when it crosses back below. Long-only.
func (s *Strategy) GenerateOrders(snap engine.Snapshot) ([]types.Order, error) {
	symbols := make([]string, 0, len(snap.History))
	for symbol := range snap.History {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var orders []types.Order
	for _, symbol := range symbols {
		bars := snap.History[symbol]
		// One extra bar so the previous step's crossover state is known.
		if len(bars) < s.slow+1 {
			continue
		}

		fastCur := sma(bars, s.fast, 0)
		slowCur := sma(bars, s.slow, 0)
		fastPrev := sma(bars, s.fast, 1)
		slowPrev := sma(bars, s.slow, 1)

		pos := snap.Portfolio.Positions[symbol]
		lastClose := bars[len(bars)-1].Close

		crossedUp := fastPrev.LessThanOrEqual(slowPrev) && fastCur.GreaterThan(slowCur)
		crossedDown := fastPrev.GreaterThanOrEqual(slowPrev) && fastCur.LessThan(slowCur)

		switch {
		case crossedUp && pos.Quantity.IsZero():
			budget := snap.Portfolio.Cash.Mul(s.positionPercent)
			qty := quantityForPrice(lastClose, budget)
			if qty.IsZero() {
				continue
			}
			orders = append(orders, types.NewOrder(
				symbol, qty, types.SideTypeBuy,
				fmt.Sprintf("SMA(%d) crossed above SMA(%d)", s.fast, s.slow),
				snap.Timestamp,
			))

		case crossedDown && pos.Quantity.IsPositive():
			orders = append(orders, types.NewOrder(
				symbol, pos.Quantity, types.SideTypeSell,
				fmt.Sprintf("SMA(%d) crossed below SMA(%d)", s.fast, s.slow),
				snap.Timestamp,
			))
		}
	}
	return orders, nil
}

// sma averages closes over a window ending offset bars before the latest.
func sma(bars []types.Bar, window, offset int) decimal.Decimal {
	end := len(bars) - offset
	start := end - window
	if start < 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, bar := range bars[start:end] {
		total = total.Add(bar.Close)
	}
	return total.Div(decimal.NewFromInt(int64(window)))
}

func quantityForPrice(price, budget decimal.Decimal) decimal.Decimal {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return budget.Div(price).Floor()
}
