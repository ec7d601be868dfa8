package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill records one simulated execution. Price already includes slippage and
// impact; Commission is charged on top. RealizedPnL is set only on fills
// that reduce or flip an existing position (Closing == true) and is gross
// of commission.
type Fill struct {
	Symbol      string
	Timestamp   time.Time
	Side        Side
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Commission  decimal.Decimal
	RealizedPnL decimal.Decimal
	Closing     bool
	Reason      string
}

// CashFlow is the signed effect of the fill on the cash balance:
// -(price*qty + commission) for buys, price*qty - commission for sells.
func (f Fill) CashFlow() decimal.Decimal {
	notional := f.Price.Mul(f.Quantity)
	if f.Side == SideTypeBuy {
		return notional.Neg().Sub(f.Commission)
	}
	return notional.Sub(f.Commission)
}
