package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"quantbt/internal/analytics"
	"quantbt/internal/sweep"
)

func renderReport(w io.Writer, report *analytics.Report) {
	fmt.Fprintf(w, "\n===== Backtest Report (%s) =====\n\n", report.RunID)

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	table.Append("Initial capital", report.InitialCapital.StringFixed(2))
	table.Append("Final equity", report.FinalEquity.StringFixed(2))
	table.Append("Total return", percent(report.TotalReturn))
	table.Append("Annualized return", percent(report.AnnualizedReturn))
	table.Append("Volatility (ann.)", percent(report.Volatility))
	table.Append("Sharpe ratio", ratio(report.SharpeRatio))
	table.Append("Sortino ratio", ratio(report.SortinoRatio))
	table.Append("Calmar ratio", ratio(report.CalmarRatio))
	table.Append("Max drawdown", percent(report.MaxDrawdown))
	table.Append("VaR 95%", percent(report.VaR95))
	table.Append("CVaR 95%", percent(report.CVaR95))
	table.Append("Win rate", percent(report.WinRate))
	table.Append("Profit factor", ratio(report.ProfitFactor))
	table.Append("Avg win", report.AvgWin.StringFixed(2))
	table.Append("Avg loss", report.AvgLoss.StringFixed(2))
	table.Append("Max consecutive losses", fmt.Sprintf("%d", report.MaxConsecutiveLosses))
	table.Append("Fills (closing)", fmt.Sprintf("%d (%d)", report.TotalFills, report.ClosingFills))
	table.Append("Total costs", report.TotalCosts.StringFixed(2))
	table.Append("Trading periods", fmt.Sprintf("%d", report.TradedPeriods))
	table.Render()

	if len(report.Attribution) > 0 {
		fmt.Fprintln(w, "\n-- P&L attribution by symbol --")
		attr := tablewriter.NewWriter(w)
		attr.Header("Symbol", "Realized", "Unrealized", "Total")
		for _, entry := range report.Attribution {
			attr.Append(
				entry.Symbol,
				entry.Realized.StringFixed(2),
				entry.Unrealized.StringFixed(2),
				entry.Total.StringFixed(2),
			)
		}
		attr.Render()
	}
	fmt.Fprintln(w)
}

func renderSweep(w io.Writer, results []sweep.Result) {
	fmt.Fprintf(w, "\n===== Parameter Sweep (%d combinations) =====\n\n", len(results))

	table := tablewriter.NewWriter(w)
	table.Header("Params", "Total Ret", "Ann. Ret", "Sharpe", "MaxDD", "Fills", "Error")
	for _, res := range results {
		if res.Err != nil {
			table.Append(formatParams(res.Params), "-", "-", "-", "-", "-", res.Err.Error())
			continue
		}
		r := res.Report
		table.Append(
			formatParams(res.Params),
			percent(r.TotalReturn),
			percent(r.AnnualizedReturn),
			ratio(r.SharpeRatio),
			percent(r.MaxDrawdown),
			fmt.Sprintf("%d", r.TotalFills),
			"",
		)
	}
	table.Render()
	fmt.Fprintln(w)
}

func formatParams(p sweep.Params) string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", name, p[name]))
	}
	return strings.Join(parts, " ")
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func ratio(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
