package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"quantbt/internal/align"
	"quantbt/types"
)

func costBar(open, high, low, close string) types.Bar {
	return types.Bar{
		Symbol:    "AAPL",
		Open:      decimal.RequireFromString(open),
		High:      decimal.RequireFromString(high),
		Low:       decimal.RequireFromString(low),
		Close:     decimal.RequireFromString(close),
		Volume:    decimal.NewFromInt(1000),
		Interval:  types.Day,
		Timestamp: time.UnixMilli(1).UTC(),
	}
}

func costOrder(qty string) types.Order {
	return types.NewOrder("AAPL", decimal.RequireFromString(qty), types.SideTypeBuy, "", time.UnixMilli(1).UTC())
}

func TestFixedSlippage(t *testing.T) {
	m := FixedSlippage{RatePerShare: decimal.RequireFromString("0.02")}

	got, err := m.Cost(costOrder("100"), costBar("50", "50", "50", "50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := decimal.RequireFromString("2"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	// Zero value charges nothing.
	got, err = m.Cost(costOrder("0"), costBar("50", "50", "50", "50"))
	if err != nil || !got.IsZero() {
		t.Fatalf("zero quantity: got %s, %v", got, err)
	}
}

func TestVolatilitySlippage(t *testing.T) {
	m := VolatilitySlippage{Factor: decimal.RequireFromString("0.5")}

	// 0.5 * ((102-98)/100) * 100 * 10 = 20
	got, err := m.Cost(costOrder("10"), costBar("100", "102", "98", "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := decimal.RequireFromString("20"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestVolatilitySlippageFlatBar(t *testing.T) {
	m := VolatilitySlippage{Factor: decimal.NewFromInt(1)}
	got, err := m.Cost(costOrder("10"), costBar("100", "100", "100", "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("flat bar must cost nothing, got %s", got)
	}
}

func TestVolatilitySlippageInvalidClose(t *testing.T) {
	m := VolatilitySlippage{Factor: decimal.NewFromInt(1)}
	bad := costBar("100", "102", "98", "100")
	bad.Close = decimal.Zero
	_, err := m.Cost(costOrder("10"), bad)
	if !errors.Is(err, align.ErrInvalidBar) {
		t.Fatalf("got %v, want ErrInvalidBar", err)
	}
}

func TestSquareRootImpact(t *testing.T) {
	m := SquareRootImpact{Factor: decimal.RequireFromString("0.1")}
	bar := costBar("100", "100", "100", "100")

	// 0.1 * 100 * sqrt(10000/1000000) * 10000 = 10000
	got := m.Cost(costOrder("10000"), bar, decimal.NewFromInt(1000000))
	if want := decimal.RequireFromString("10000"); !got.RoundBank(6).Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSquareRootImpactNoLiquiditySignal(t *testing.T) {
	m := SquareRootImpact{Factor: decimal.NewFromInt(1)}
	bar := costBar("100", "100", "100", "100")

	for _, avgVolume := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		if got := m.Cost(costOrder("100"), bar, avgVolume); !got.IsZero() {
			t.Fatalf("avgVolume %s: got %s, want 0", avgVolume, got)
		}
	}
}

func TestLinearImpact(t *testing.T) {
	m := LinearImpact{Factor: decimal.RequireFromString("0.1")}
	bar := costBar("100", "100", "100", "100")

	// 0.1 * 100 * (1000/1000000) * 1000 = 10
	got := m.Cost(costOrder("1000"), bar, decimal.NewFromInt(1000000))
	if want := decimal.RequireFromString("10"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	if got := m.Cost(costOrder("1000"), bar, decimal.Zero); !got.IsZero() {
		t.Fatalf("zero liquidity must cost nothing, got %s", got)
	}
}

func TestNoImpact(t *testing.T) {
	got := NoImpact{}.Cost(costOrder("1000"), costBar("100", "100", "100", "100"), decimal.NewFromInt(1))
	if !got.IsZero() {
		t.Fatalf("got %s, want 0", got)
	}
}
