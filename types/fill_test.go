package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFillCashFlow(t *testing.T) {
	tests := []struct {
		name string
		fill Fill
		want string
	}{
		{
			name: "buy debits notional plus commission",
			fill: Fill{
				Side:       SideTypeBuy,
				Quantity:   decimal.NewFromInt(10),
				Price:      decimal.NewFromInt(100),
				Commission: decimal.NewFromInt(1),
			},
			want: "-1001",
		},
		{
			name: "sell credits notional minus commission",
			fill: Fill{
				Side:       SideTypeSell,
				Quantity:   decimal.NewFromInt(10),
				Price:      decimal.NewFromInt(100),
				Commission: decimal.NewFromInt(1),
			},
			want: "999",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.fill.CashFlow()
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("CashFlow() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	if iv, ok := ParseInterval("1d"); !ok || iv != Day {
		t.Fatalf("ParseInterval(1d) = %s, %v", iv, ok)
	}
	if _, ok := ParseInterval("3d"); ok {
		t.Fatalf("ParseInterval(3d) should not be recognized")
	}
}
