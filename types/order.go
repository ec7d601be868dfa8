package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	// Market orders are the only order type the simulator executes; bounded
	// lifetimes and limit semantics are the caller's concern.
	TypeMarket OrderType = "MARKET"
)

// Order is created by the strategy and consumed exactly once by the fill
// simulator. Never mutated after creation.
type Order struct {
	Symbol    string
	Quantity  decimal.Decimal
	OrderType OrderType
	Side      Side
	Reason    string
	CreatedAt time.Time
}

func NewOrder(symbol string, quantity decimal.Decimal, side Side, reason string, createdAt time.Time) Order {
	return Order{
		Symbol:    symbol,
		Quantity:  quantity,
		OrderType: TypeMarket,
		Side:      side,
		Reason:    reason,
		CreatedAt: createdAt,
	}
}
