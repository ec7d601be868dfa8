package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"quantbt/types"
)

func equityCurve(values ...float64) []types.EquityPoint {
	points := make([]types.EquityPoint, len(values))
	for i, v := range values {
		points[i] = types.EquityPoint{
			Timestamp: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Equity:    decimal.NewFromFloat(v),
		}
	}
	return points
}

func closingFill(pnl float64) types.Fill {
	return types.Fill{
		Symbol:      "AAPL",
		Side:        types.SideTypeSell,
		Closing:     true,
		RealizedPnL: decimal.NewFromFloat(pnl),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeEmptyRun(t *testing.T) {
	res := &types.RunResult{
		RunID:       "run-1",
		Status:      types.RunCompleted,
		InitialCash: decimal.NewFromInt(10000),
	}
	report := Analyze(res, Config{})

	if !report.FinalEquity.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("final equity: got %s", report.FinalEquity)
	}
	if report.TotalReturn != 0 || report.Volatility != 0 || report.SharpeRatio != 0 || report.SortinoRatio != 0 {
		t.Fatalf("degenerate run must yield zero metrics: %+v", report)
	}
	if !math.IsNaN(report.CalmarRatio) {
		t.Fatalf("calmar with zero drawdown must be NaN, got %f", report.CalmarRatio)
	}
	if report.WinRate != 0 || report.TotalFills != 0 {
		t.Fatalf("trade metrics must be zero: %+v", report)
	}
	if len(report.Attribution) != 0 {
		t.Fatalf("attribution: got %+v", report.Attribution)
	}
}

func TestAnalyzeReturns(t *testing.T) {
	res := &types.RunResult{
		InitialCash: decimal.NewFromInt(10000),
		Equity:      equityCurve(10000, 10500, 11000),
	}
	report := Analyze(res, Config{PeriodsPerYear: 252})

	if !almostEqual(report.TotalReturn, 0.10) {
		t.Fatalf("total return: got %f", report.TotalReturn)
	}
	wantAnnualized := math.Pow(1.10, 252.0/3.0) - 1
	if !almostEqual(report.AnnualizedReturn, wantAnnualized) {
		t.Fatalf("annualized: got %f, want %f", report.AnnualizedReturn, wantAnnualized)
	}
	if report.TradedPeriods != 3 {
		t.Fatalf("traded periods: got %d", report.TradedPeriods)
	}
}

func TestAnalyzeFlatCurveHasZeroRatios(t *testing.T) {
	res := &types.RunResult{
		InitialCash: decimal.NewFromInt(10000),
		Equity:      equityCurve(10000, 10000, 10000, 10000),
	}
	report := Analyze(res, Config{RiskFreeRate: 0.02})

	// Zero volatility and zero downside deviation: ratios stay 0, never NaN
	// or Inf.
	if report.Volatility != 0 || report.SharpeRatio != 0 || report.SortinoRatio != 0 {
		t.Fatalf("flat curve: vol=%f sharpe=%f sortino=%f",
			report.Volatility, report.SharpeRatio, report.SortinoRatio)
	}
}

func TestCalcMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []types.EquityPoint
		want   float64
	}{
		{"empty", nil, 0},
		{"monotonic rise", equityCurve(100, 110, 120), 0},
		{"single trough", equityCurve(100, 120, 90, 110), 0.25},
		{"deepest of two troughs", equityCurve(100, 80, 100, 50), 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := calcMaxDrawdown(tc.equity); !almostEqual(got, tc.want) {
				t.Fatalf("got %f, want %f", got, tc.want)
			}
		})
	}
}

func TestCalcTailRisk(t *testing.T) {
	returns := []float64{-0.10, -0.05}
	for i := 0; i < 18; i++ {
		returns = append(returns, 0.01)
	}

	// n=20: the 5% cut lands exactly on the single worst return.
	var95, cvar95 := calcTailRisk(returns)
	if !almostEqual(var95, 0.10) {
		t.Fatalf("VaR95: got %f", var95)
	}
	if !almostEqual(cvar95, 0.10) {
		t.Fatalf("CVaR95: got %f", cvar95)
	}

	var95, cvar95 = calcTailRisk(nil)
	if var95 != 0 || cvar95 != 0 {
		t.Fatalf("empty returns: got %f / %f", var95, cvar95)
	}
}

func TestCalcTradeMetrics(t *testing.T) {
	// One opening fill (ignored), then wins 100 and 50 against losses 40,
	// 10 and 30, with the two middle losses back to back.
	fills := []types.Fill{
		{Side: types.SideTypeBuy},
		closingFill(100),
		closingFill(-40),
		closingFill(-10),
		closingFill(50),
		closingFill(-30),
	}

	winRate, profitFactor, avgWin, avgLoss, maxLossStreak, closing := calcTradeMetrics(fills)

	if closing != 5 {
		t.Fatalf("closing fills: got %d", closing)
	}
	if !almostEqual(winRate, 2.0/5.0) {
		t.Fatalf("win rate: got %f", winRate)
	}
	if !almostEqual(profitFactor, 150.0/80.0) {
		t.Fatalf("profit factor: got %f", profitFactor)
	}
	if !avgWin.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("avg win: got %s", avgWin)
	}
	if !avgLoss.RoundBank(6).Equal(decimal.RequireFromString("26.666667")) {
		t.Fatalf("avg loss: got %s", avgLoss)
	}
	if maxLossStreak != 2 {
		t.Fatalf("max loss streak: got %d", maxLossStreak)
	}
}

func TestCalcTradeMetricsAllWins(t *testing.T) {
	_, profitFactor, _, _, _, _ := calcTradeMetrics([]types.Fill{
		closingFill(10), closingFill(20),
	})
	if !math.IsInf(profitFactor, 1) {
		t.Fatalf("profit factor with no losses must be +Inf, got %f", profitFactor)
	}
}

func TestAnalyzeAttribution(t *testing.T) {
	res := &types.RunResult{
		InitialCash: decimal.NewFromInt(10000),
		Equity:      equityCurve(10000, 10100),
		RealizedBySymbol: map[string]decimal.Decimal{
			"AAPL": decimal.NewFromInt(100),
			"MSFT": decimal.NewFromInt(-50),
		},
		Final: types.PortfolioView{
			Positions: map[string]types.PositionSnapshot{
				"MSFT": {
					Symbol:    "MSFT",
					Quantity:  decimal.NewFromInt(10),
					AvgCost:   decimal.NewFromInt(50),
					LastPrice: decimal.NewFromInt(65),
				},
			},
		},
	}
	report := Analyze(res, Config{})

	if len(report.Attribution) != 2 {
		t.Fatalf("attribution entries: got %d", len(report.Attribution))
	}
	// MSFT: -50 realized + 150 unrealized = 100; ties with AAPL's 100,
	// resolved alphabetically.
	if report.Attribution[0].Symbol != "AAPL" || report.Attribution[1].Symbol != "MSFT" {
		t.Fatalf("order: got %s, %s", report.Attribution[0].Symbol, report.Attribution[1].Symbol)
	}
	if !report.Attribution[1].Unrealized.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("MSFT unrealized: got %s", report.Attribution[1].Unrealized)
	}
	if !report.Attribution[1].Total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("MSFT total: got %s", report.Attribution[1].Total)
	}
}

func TestSampleStdev(t *testing.T) {
	if got := sampleStdev([]float64{0.5}); got != 0 {
		t.Fatalf("single value: got %f", got)
	}
	// Known case: {2, 4, 4, 4, 5, 5, 7, 9} has sample stdev ~2.138.
	got := sampleStdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2.13809) > 1e-4 {
		t.Fatalf("got %f", got)
	}
}

func TestDownsideDeviation(t *testing.T) {
	if got := downsideDeviation([]float64{0.01, 0.02}); got != 0 {
		t.Fatalf("no negatives: got %f", got)
	}
	// Two negatives {-0.02, -0.04}: population stdev is 0.01.
	got := downsideDeviation([]float64{0.01, -0.02, 0.03, -0.04})
	if !almostEqual(got, 0.01) {
		t.Fatalf("got %f", got)
	}
}
