package engine

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"quantbt/types"
)

const defaultAvgVolumeWindow = 20

// Config is the full construction-time surface of the engine. It is copied
// into the engine and never mutated afterwards; there is no ambient state.
type Config struct {
	InitialCash    decimal.Decimal
	CommissionRate decimal.Decimal
	// MinCommission floors the commission per order. Zero disables the
	// floor, leaving the plain rate * notional schedule.
	MinCommission decimal.Decimal
	// SellTaxRate is an extra sell-side levy on notional (stamp duty in
	// some markets). Zero by default.
	SellTaxRate decimal.Decimal

	Slippage SlippageModel
	Impact   ImpactModel

	Interval        types.Interval
	AllowShorting   bool
	StrategyFatal   bool
	AvgVolumeWindow int

	// MinHoldingBars blocks selling a symbol for this many steps after its
	// latest buy (T+1 style settlement). Zero disables the check.
	MinHoldingBars int

	// ShowProgress renders a progress bar over the run loop. Off by default
	// so library callers stay silent.
	ShowProgress bool

	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.InitialCash.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("initial cash must be positive, got %s: %w", c.InitialCash, ErrInvalidConfiguration)
	}
	if c.CommissionRate.IsNegative() {
		return fmt.Errorf("commission rate must be non-negative, got %s: %w", c.CommissionRate, ErrInvalidConfiguration)
	}
	if c.MinCommission.IsNegative() {
		return fmt.Errorf("minimum commission must be non-negative, got %s: %w", c.MinCommission, ErrInvalidConfiguration)
	}
	if c.SellTaxRate.IsNegative() {
		return fmt.Errorf("sell tax rate must be non-negative, got %s: %w", c.SellTaxRate, ErrInvalidConfiguration)
	}
	if _, ok := types.IntervalToDuration[c.Interval]; !ok {
		return fmt.Errorf("unknown interval %q: %w", c.Interval, ErrInvalidConfiguration)
	}
	if c.MinHoldingBars < 0 {
		return fmt.Errorf("minimum holding bars must be non-negative, got %d: %w", c.MinHoldingBars, ErrInvalidConfiguration)
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Slippage == nil {
		out.Slippage = FixedSlippage{}
	}
	if out.Impact == nil {
		out.Impact = NoImpact{}
	}
	if out.AvgVolumeWindow <= 0 {
		out.AvgVolumeWindow = defaultAvgVolumeWindow
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// commission applies the configured schedule to a fill's notional value.
func (c *Config) commission(notional decimal.Decimal, side types.Side) decimal.Decimal {
	fee := notional.Mul(c.CommissionRate)
	if fee.LessThan(c.MinCommission) {
		fee = c.MinCommission
	}
	if side == types.SideTypeSell && c.SellTaxRate.IsPositive() {
		fee = fee.Add(notional.Mul(c.SellTaxRate))
	}
	return fee
}
