package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"quantbt/internal/align"
	"quantbt/types"
)

// SlippageModel prices the order-side friction of executing against a bar.
// The returned cost is the total price-equivalent amount for the whole
// order, always >= 0; the engine signs it by side so slippage always works
// against the trader.
type SlippageModel interface {
	Cost(order types.Order, bar types.Bar) (decimal.Decimal, error)
}

// ImpactModel prices the degradation caused by the order's own size
// relative to liquidity. avgVolume is a trailing average supplied by the
// engine; when it is <= 0 there is no liquidity signal and impact is zero.
type ImpactModel interface {
	Cost(order types.Order, bar types.Bar, avgVolume decimal.Decimal) decimal.Decimal
}

// FixedSlippage charges a flat rate per share. The zero value charges
// nothing.
type FixedSlippage struct {
	RatePerShare decimal.Decimal
}

func (m FixedSlippage) Cost(order types.Order, _ types.Bar) (decimal.Decimal, error) {
	return m.RatePerShare.Mul(order.Quantity), nil
}

// VolatilitySlippage scales with the bar's high-low range relative to its
// close: factor * ((high-low)/close) * close * qty. Degenerates to zero on
// a flat bar.
type VolatilitySlippage struct {
	Factor decimal.Decimal
}

func (m VolatilitySlippage) Cost(order types.Order, bar types.Bar) (decimal.Decimal, error) {
	if bar.Close.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%s %s: %w", bar.Symbol, bar.Timestamp, align.ErrInvalidBar)
	}
	spread := bar.High.Sub(bar.Low)
	if spread.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}
	// (high-low)/close * close collapses to the raw range; kept explicit so
	// the factor stays a fraction of close like the fixed model's rate.
	return m.Factor.Mul(spread.Div(bar.Close)).Mul(bar.Close).Mul(order.Quantity), nil
}

// SquareRootImpact is the classic square-root market impact law:
// factor * close * sqrt(qty / avgVolume) * qty.
type SquareRootImpact struct {
	Factor decimal.Decimal
}

func (m SquareRootImpact) Cost(order types.Order, bar types.Bar, avgVolume decimal.Decimal) decimal.Decimal {
	if avgVolume.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	participation := order.Quantity.Div(avgVolume).InexactFloat64()
	if participation <= 0 {
		return decimal.Zero
	}
	root := decimal.NewFromFloat(math.Sqrt(participation))
	return m.Factor.Mul(bar.Close).Mul(root).Mul(order.Quantity)
}

// LinearImpact charges proportionally to participation:
// factor * close * (qty / avgVolume) * qty.
type LinearImpact struct {
	Factor decimal.Decimal
}

func (m LinearImpact) Cost(order types.Order, bar types.Bar, avgVolume decimal.Decimal) decimal.Decimal {
	if avgVolume.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return m.Factor.Mul(bar.Close).Mul(order.Quantity.Div(avgVolume)).Mul(order.Quantity)
}

// NoImpact is the default when no impact model is configured.
type NoImpact struct{}

func (NoImpact) Cost(types.Order, types.Bar, decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}
