// Package analytics turns a finished run's equity curve and fill log into
// return, risk and attribution metrics. It consumes only the run's output
// records, never the engine itself.
package analytics

import (
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"quantbt/types"
)

// Config parameterizes the analyzer. PeriodsPerYear defaults to 252 (daily
// bars); pick the matching entry from types.PeriodsPerYear for other
// frequencies.
type Config struct {
	RiskFreeRate   float64
	PeriodsPerYear float64
}

// Report is the structured output record. Serialization to JSON/CSV/DB is
// the caller's concern.
type Report struct {
	RunID string

	InitialCapital decimal.Decimal
	FinalEquity    decimal.Decimal

	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64
	SharpeRatio      float64
	SortinoRatio     float64
	// CalmarRatio is NaN when max drawdown is zero.
	CalmarRatio float64
	MaxDrawdown float64
	VaR95       float64
	CVaR95      float64

	WinRate              float64
	ProfitFactor         float64
	AvgWin               decimal.Decimal
	AvgLoss              decimal.Decimal
	MaxConsecutiveLosses int

	TotalFills    int
	ClosingFills  int
	TotalCosts    decimal.Decimal
	TradedPeriods int

	// Attribution sums realized plus unrealized P&L per symbol, sorted
	// descending by total.
	Attribution []SymbolPnL
}

type SymbolPnL struct {
	Symbol     string
	Realized   decimal.Decimal
	Unrealized decimal.Decimal
	Total      decimal.Decimal
}

// Analyze computes every metric from the run record. Degenerate inputs
// (no fills, a single equity point, zero volatility) yield zeros or NaN per
// metric; a trade-free run is a valid scenario, not an error.
func Analyze(res *types.RunResult, cfg Config) *Report {
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = types.PeriodsPerYear[types.Day]
	}

	report := &Report{
		RunID:          res.RunID,
		InitialCapital: res.InitialCash,
		TotalFills:     len(res.Fills),
		TradedPeriods:  len(res.Equity),
	}
	if len(res.Equity) > 0 {
		report.FinalEquity = res.Equity[len(res.Equity)-1].Equity
	} else {
		report.FinalEquity = res.InitialCash
	}

	returns := periodReturns(res.Equity)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		report.TotalReturn, report.AnnualizedReturn,
			report.Volatility, report.SharpeRatio, report.SortinoRatio =
			calcReturnMetrics(res, returns, cfg)
	}()
	go func() {
		defer wg.Done()
		report.MaxDrawdown = calcMaxDrawdown(res.Equity)
		report.VaR95, report.CVaR95 = calcTailRisk(returns)
	}()
	go func() {
		defer wg.Done()
		report.WinRate, report.ProfitFactor, report.AvgWin, report.AvgLoss,
			report.MaxConsecutiveLosses, report.ClosingFills = calcTradeMetrics(res.Fills)
		report.TotalCosts = res.Commissions
	}()
	go func() {
		defer wg.Done()
		report.Attribution = calcAttribution(res)
	}()
	wg.Wait()

	// Calmar needs both groups done.
	if report.MaxDrawdown == 0 {
		report.CalmarRatio = math.NaN()
	} else {
		report.CalmarRatio = report.AnnualizedReturn / report.MaxDrawdown
	}

	return report
}

func periodReturns(equity []types.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	prev := equity[0].Equity.InexactFloat64()
	for _, point := range equity[1:] {
		cur := point.Equity.InexactFloat64()
		if prev > 0 {
			returns = append(returns, cur/prev-1)
		}
		prev = cur
	}
	return returns
}

func calcReturnMetrics(
	res *types.RunResult,
	returns []float64,
	cfg Config,
) (total, annualized, volatility, sharpe, sortino float64) {
	initial := res.InitialCash.InexactFloat64()
	if initial <= 0 || len(res.Equity) == 0 {
		return 0, 0, 0, 0, 0
	}
	final := res.Equity[len(res.Equity)-1].Equity.InexactFloat64()
	total = (final - initial) / initial

	periods := float64(len(res.Equity))
	annualized = math.Pow(1+total, cfg.PeriodsPerYear/periods) - 1

	volatility = sampleStdev(returns) * math.Sqrt(cfg.PeriodsPerYear)
	if volatility > 0 {
		sharpe = (annualized - cfg.RiskFreeRate) / volatility
	}

	downside := downsideDeviation(returns) * math.Sqrt(cfg.PeriodsPerYear)
	if downside > 0 {
		sortino = (annualized - cfg.RiskFreeRate) / downside
	}
	return total, annualized, volatility, sharpe, sortino
}

func calcMaxDrawdown(equity []types.EquityPoint) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, point := range equity {
		value := point.Equity.InexactFloat64()
		if value > peak {
			peak = value
		}
		if peak > 0 {
			dd := (peak - value) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// calcTailRisk reports VaR and CVaR at 95% confidence as positive loss
// magnitudes.
func calcTailRisk(returns []float64) (var95, cvar95 float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(math.Ceil(0.05*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	threshold := sorted[idx]
	var95 = -threshold

	sum, count := 0.0, 0
	for _, r := range sorted {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count > 0 {
		cvar95 = -(sum / float64(count))
	}
	return var95, cvar95
}

func calcTradeMetrics(fills []types.Fill) (winRate, profitFactor float64, avgWin, avgLoss decimal.Decimal, maxLossStreak, closingFills int) {
	sumWins := decimal.Zero
	sumLosses := decimal.Zero
	wins, losses := 0, 0
	streak := 0

	for _, fill := range fills {
		if !fill.Closing {
			continue
		}
		closingFills++
		switch {
		case fill.RealizedPnL.IsPositive():
			wins++
			sumWins = sumWins.Add(fill.RealizedPnL)
			streak = 0
		default:
			losses++
			sumLosses = sumLosses.Add(fill.RealizedPnL.Abs())
			streak++
			if streak > maxLossStreak {
				maxLossStreak = streak
			}
		}
	}

	if closingFills > 0 {
		winRate = float64(wins) / float64(closingFills)
	}
	if wins > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(losses)))
	}
	switch {
	case sumLosses.IsPositive():
		profitFactor = sumWins.InexactFloat64() / sumLosses.InexactFloat64()
	case sumWins.IsPositive():
		profitFactor = math.Inf(1)
	}
	return winRate, profitFactor, avgWin, avgLoss, maxLossStreak, closingFills
}

func calcAttribution(res *types.RunResult) []SymbolPnL {
	bySymbol := make(map[string]*SymbolPnL)
	get := func(symbol string) *SymbolPnL {
		entry := bySymbol[symbol]
		if entry == nil {
			entry = &SymbolPnL{Symbol: symbol}
			bySymbol[symbol] = entry
		}
		return entry
	}

	for symbol, realized := range res.RealizedBySymbol {
		get(symbol).Realized = realized
	}
	for symbol, pos := range res.Final.Positions {
		get(symbol).Unrealized = pos.UnrealizedPnL()
	}

	out := make([]SymbolPnL, 0, len(bySymbol))
	for _, entry := range bySymbol {
		entry.Total = entry.Realized.Add(entry.Unrealized)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func sampleStdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	varianceSum := 0.0
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(values)-1))
}

// downsideDeviation is the population stdev over negative returns only;
// zero when no negative return was observed.
func downsideDeviation(returns []float64) float64 {
	var negatives []float64
	for _, r := range returns {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	if len(negatives) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range negatives {
		mean += v
	}
	mean /= float64(len(negatives))

	varianceSum := 0.0
	for _, v := range negatives {
		diff := v - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(negatives)))
}
