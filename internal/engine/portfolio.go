package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"quantbt/types"
)

// portfolio is the position ledger. It is exclusively owned by one engine
// run and only ever mutated through applyFill, which is what makes the
// cash and average-cost invariants hold without locking.
type portfolio struct {
	initialCash decimal.Decimal
	cash        decimal.Decimal
	positions   map[string]*position
	realized    map[string]decimal.Decimal
	commissions decimal.Decimal
	fills       []types.Fill
}

type position struct {
	Symbol    string
	Quantity  decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]*position),
		realized:    make(map[string]decimal.Decimal),
	}
}

// applyFill books a fill: cash moves by the fill's net flow, the position
// updates under weighted-average-cost accounting, and any reduction books
// realized P&L against the average cost basis. Returns the realized amount
// (gross of commission) and whether the fill reduced an existing position.
func (p *portfolio) applyFill(fill types.Fill) (decimal.Decimal, bool, error) {
	if fill.Side != types.SideTypeBuy && fill.Side != types.SideTypeSell {
		return decimal.Zero, false, ErrUnknownSide
	}

	signedQty := fill.Quantity
	if fill.Side == types.SideTypeSell {
		signedQty = signedQty.Neg()
	}

	p.cash = p.cash.Add(fill.CashFlow())
	p.commissions = p.commissions.Add(fill.Commission)

	pos := p.positions[fill.Symbol]
	if pos == nil {
		pos = &position{Symbol: fill.Symbol}
		p.positions[fill.Symbol] = pos
	}

	oldQty := pos.Quantity
	newQty := oldQty.Add(signedQty)
	realized := decimal.Zero
	closing := false

	switch {
	case oldQty.IsZero():
		pos.AvgCost = fill.Price
		pos.Quantity = newQty

	case sameSign(oldQty, signedQty):
		// Scale-in: weighted average cost over the combined quantity.
		pos.AvgCost = weightedAvg(pos.AvgCost, oldQty.Abs(), fill.Price, signedQty.Abs())
		pos.Quantity = newQty

	case sameSign(oldQty, newQty) || newQty.IsZero():
		// Reduce (or fully close) against average cost.
		closedQty := signedQty.Abs()
		realized = pnlOnClose(oldQty, pos.AvgCost, fill.Price, closedQty)
		closing = true
		pos.Quantity = newQty
		if newQty.IsZero() {
			pos.AvgCost = decimal.Zero
		}

	default:
		// Flip: realize the whole old position, open the remainder at the
		// fill price.
		realized = pnlOnClose(oldQty, pos.AvgCost, fill.Price, oldQty.Abs())
		closing = true
		pos.Quantity = newQty
		pos.AvgCost = fill.Price
	}

	pos.LastPrice = fill.Price
	if !realized.IsZero() || closing {
		p.realized[fill.Symbol] = p.realized[fill.Symbol].Add(realized)
	}

	fill.RealizedPnL = realized
	fill.Closing = closing
	p.fills = append(p.fills, fill)

	return realized, closing, nil
}

// pnlOnClose books P&L for closing closedQty out of a position of oldQty at
// avgCost: longs earn price-avgCost, shorts the reverse.
func pnlOnClose(oldQty, avgCost, price, closedQty decimal.Decimal) decimal.Decimal {
	perShare := price.Sub(avgCost)
	if oldQty.IsNegative() {
		perShare = perShare.Neg()
	}
	return perShare.Mul(closedQty)
}

func (p *portfolio) markToMarket(prices map[string]decimal.Decimal) decimal.Decimal {
	total := p.cash
	for symbol, pos := range p.positions {
		if pos.Quantity.IsZero() {
			continue
		}
		price, ok := prices[symbol]
		if !ok {
			// No quote this step (halt): hold at the position's last known
			// price.
			price = pos.LastPrice
		}
		total = total.Add(pos.Quantity.Mul(price))
	}
	return total
}

func (p *portfolio) positionQty(symbol string) decimal.Decimal {
	pos := p.positions[symbol]
	if pos == nil {
		return decimal.Zero
	}
	return pos.Quantity
}

func (p *portfolio) totalRealized() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.realized {
		total = total.Add(r)
	}
	return total
}

func (p *portfolio) snapshot(t time.Time) types.PortfolioView {
	view := types.PortfolioView{
		Cash:      p.cash,
		Positions: make(map[string]types.PositionSnapshot, len(p.positions)),
		Time:      t,
	}
	for symbol, pos := range p.positions {
		if pos.Quantity.IsZero() {
			continue
		}
		view.Positions[symbol] = types.PositionSnapshot{
			Symbol:    pos.Symbol,
			Quantity:  pos.Quantity,
			AvgCost:   pos.AvgCost,
			LastPrice: pos.LastPrice,
		}
	}
	return view
}

// updateLastPrices refreshes each open position's mark with the step's
// closes. Symbols without a bar this step keep their previous mark.
func (p *portfolio) updateLastPrices(closes map[string]decimal.Decimal) {
	for symbol, pos := range p.positions {
		if price, ok := closes[symbol]; ok {
			pos.LastPrice = price
		}
	}
}

func sameSign(a, b decimal.Decimal) bool {
	return (a.IsPositive() && b.IsPositive()) || (a.IsNegative() && b.IsNegative())
}

func weightedAvg(existingAvg, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvg.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
