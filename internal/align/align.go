// Package align merges per-symbol bar series onto one canonical timestamp
// axis, applying corporate-action adjustments and masking halted sessions.
// Align is a pure function and is safe to call concurrently on independent
// inputs.
package align

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"quantbt/types"
)

var (
	// ErrDataGap means a required symbol has zero bars in range. Distinct
	// from "present but halted": a halted session still has the symbol in
	// the input, just no bar on that date.
	ErrDataGap = errors.New("symbol has no bars in the requested range")

	// ErrInvalidBar means a bar violates basic sanity (close <= 0,
	// high < low, negative volume). Never silently corrected.
	ErrInvalidBar = errors.New("invalid bar")
)

// Slice is one step of the aligned stream: every symbol that traded at this
// timestamp maps to its bar. Halted or missing symbols are simply absent.
type Slice struct {
	Timestamp time.Time
	Bars      map[string]types.Bar
}

// Align builds the sorted union of all timestamps across all symbols,
// front-adjusts every price series and drops halted (symbol, date) pairs.
func Align(
	bars map[string][]types.Bar,
	adjustments []types.AdjustmentFactor,
	halts []types.HaltRecord,
) ([]Slice, error) {
	if len(bars) == 0 {
		return nil, ErrDataGap
	}

	haltIndex := buildHaltIndex(halts)
	adjBySymbol := make(map[string][]types.AdjustmentFactor)
	for _, adj := range adjustments {
		adjBySymbol[adj.Symbol] = append(adjBySymbol[adj.Symbol], adj)
	}

	adjusted := make(map[string][]types.Bar, len(bars))
	timestamps := make(map[time.Time]struct{})

	symbols := sortedSymbols(bars)
	for _, symbol := range symbols {
		series := bars[symbol]
		if len(series) == 0 {
			return nil, fmt.Errorf("%s: %w", symbol, ErrDataGap)
		}
		for _, bar := range series {
			if err := validateBar(bar); err != nil {
				return nil, err
			}
		}

		series = sortedCopy(series)
		series = applyAdjustments(series, adjBySymbol[symbol])
		adjusted[symbol] = series

		for _, bar := range series {
			timestamps[bar.Timestamp] = struct{}{}
		}
	}

	axis := make([]time.Time, 0, len(timestamps))
	for ts := range timestamps {
		axis = append(axis, ts)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })

	cursor := make(map[string]int, len(adjusted))
	slices := make([]Slice, 0, len(axis))
	for _, ts := range axis {
		step := Slice{Timestamp: ts, Bars: make(map[string]types.Bar)}
		for _, symbol := range symbols {
			series := adjusted[symbol]
			i := cursor[symbol]
			if i >= len(series) || !series[i].Timestamp.Equal(ts) {
				continue
			}
			cursor[symbol] = i + 1
			if haltIndex[haltKey(symbol, ts)] {
				// Bar is absent, not zero-filled. Downstream skips order
				// generation and fills for this symbol this step.
				continue
			}
			step.Bars[symbol] = series[i]
		}
		slices = append(slices, step)
	}

	return slices, nil
}

func validateBar(bar types.Bar) error {
	switch {
	case bar.Close.LessThanOrEqual(decimal.Zero):
		return fmt.Errorf("%s %s close %s: %w",
			bar.Symbol, bar.Timestamp.Format(time.RFC3339), bar.Close, ErrInvalidBar)
	case bar.High.LessThan(bar.Low):
		return fmt.Errorf("%s %s high %s < low %s: %w",
			bar.Symbol, bar.Timestamp.Format(time.RFC3339), bar.High, bar.Low, ErrInvalidBar)
	case bar.Volume.IsNegative():
		return fmt.Errorf("%s %s negative volume %s: %w",
			bar.Symbol, bar.Timestamp.Format(time.RFC3339), bar.Volume, ErrInvalidBar)
	}
	return nil
}

// applyAdjustments walks the series newest to oldest, accumulating the
// product of every factor whose effective date lies after the bar. The most
// recent segment keeps its raw prices (front-adjustment).
func applyAdjustments(series []types.Bar, factors []types.AdjustmentFactor) []types.Bar {
	if len(factors) == 0 {
		return series
	}

	factors = append([]types.AdjustmentFactor(nil), factors...)
	sort.Slice(factors, func(i, j int) bool {
		return factors[i].EffectiveDate.Before(factors[j].EffectiveDate)
	})

	cumulative := decimal.NewFromInt(1)
	fi := len(factors) - 1
	for i := len(series) - 1; i >= 0; i-- {
		for fi >= 0 && series[i].Timestamp.Before(factors[fi].EffectiveDate) {
			cumulative = cumulative.Mul(factors[fi].Factor)
			fi--
		}
		if cumulative.Equal(decimal.NewFromInt(1)) {
			continue
		}
		// Prices scale, volume does not.
		series[i].Open = series[i].Open.Mul(cumulative)
		series[i].High = series[i].High.Mul(cumulative)
		series[i].Low = series[i].Low.Mul(cumulative)
		series[i].Close = series[i].Close.Mul(cumulative)
	}
	return series
}

func buildHaltIndex(halts []types.HaltRecord) map[string]bool {
	index := make(map[string]bool, len(halts))
	for _, h := range halts {
		if h.Halted {
			index[haltKey(h.Symbol, h.Date)] = true
		}
	}
	return index
}

// Halts apply to whole sessions, so the key collapses the timestamp to its
// UTC date.
func haltKey(symbol string, ts time.Time) string {
	return symbol + "|" + ts.UTC().Format("2006-01-02")
}

func sortedSymbols(bars map[string][]types.Bar) []string {
	symbols := make([]string, 0, len(bars))
	for symbol := range bars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func sortedCopy(series []types.Bar) []types.Bar {
	out := append([]types.Bar(nil), series...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
