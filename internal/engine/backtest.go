// Package engine replays an aligned bar stream through a strategy,
// simulates execution frictions and maintains the position ledger. One
// engine instance drives one run; the loop is strictly single-threaded so
// the ledger invariants hold without locking.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"quantbt/internal/align"
	"quantbt/types"
)

// Data is the pre-loaded market data for a run. It is read-only: the engine
// never mutates it, so the same Data may back many concurrent runs.
type Data struct {
	Bars        map[string][]types.Bar
	Adjustments []types.AdjustmentFactor
	Halts       []types.HaltRecord
}

type Engine struct {
	cfg      Config
	data     Data
	strategy Strategy
	status   types.RunStatus
}

func New(cfg Config, data Data, strat Strategy) (*Engine, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is required: %w", ErrInvalidConfiguration)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg.withDefaults(),
		data:     data,
		strategy: strat,
		status:   types.RunInitialized,
	}, nil
}

func (e *Engine) Status() types.RunStatus {
	return e.status
}

// Run executes the backtest. Alignment and validation errors are fatal and
// reported before any trade is simulated; order-level problems mid-loop
// (insufficient cash, oversized sells) are recovered locally and logged.
// Partial results recorded before a failure stay inspectable on the
// returned RunResult.
func (e *Engine) Run() (*types.RunResult, error) {
	runID := uuid.NewString()
	log := e.cfg.Logger.With("run_id", runID)

	e.status = types.RunRunning
	result := &types.RunResult{
		RunID:            runID,
		Status:           types.RunRunning,
		InitialCash:      e.cfg.InitialCash,
		RealizedBySymbol: make(map[string]decimal.Decimal),
	}

	slices, err := align.Align(e.data.Bars, e.data.Adjustments, e.data.Halts)
	if err != nil {
		e.status = types.RunFailed
		result.Status = types.RunFailed
		log.Error("alignment failed", "err", err)
		return result, err
	}
	log.Info("run starting",
		"symbols", len(e.data.Bars),
		"steps", len(slices),
		"interval", e.cfg.Interval,
		"initial_cash", e.cfg.InitialCash,
	)

	pf := newPortfolio(e.cfg.InitialCash)
	queue := newEventQueue()
	history := make(map[string][]types.Bar, len(e.data.Bars))
	lastCloses := make(map[string]decimal.Decimal, len(e.data.Bars))
	lastBuyStep := make(map[string]int)

	var progress *progressbar.ProgressBar
	if e.cfg.ShowProgress {
		progress = initProgressBar(len(slices))
	}

	for step, slice := range slices {
		ts := slice.Timestamp
		symbols := sortedBarSymbols(slice.Bars)

		queue.push(types.EventMarketOpen, ts, "", nil)
		for _, symbol := range symbols {
			queue.push(types.EventBar, ts, symbol, slice.Bars[symbol])
		}

		snap := Snapshot{
			Timestamp: ts,
			History:   history,
			AvgVolume: trailingAvgVolumes(history, e.cfg.AvgVolumeWindow),
			Portfolio: pf.snapshot(ts),
		}
		orders, err := e.strategy.GenerateOrders(snap)
		if err != nil {
			if e.cfg.StrategyFatal {
				e.status = types.RunFailed
				result.Status = types.RunFailed
				e.captureResult(result, pf, ts)
				return result, fmt.Errorf("%w at %s: %w", ErrStrategy, ts, err)
			}
			log.Warn("strategy error, no orders this step", "ts", ts, "err", err)
			result.Warnings++
			orders = nil
		}
		if len(orders) > 0 {
			queue.push(types.EventSignal, ts, "", len(orders))
		}

		for _, order := range orders {
			queue.push(types.EventOrder, ts, order.Symbol, order)
			fill, skip, err := e.execute(order, slice, pf, history, lastBuyStep, step)
			if err != nil {
				e.status = types.RunFailed
				result.Status = types.RunFailed
				e.captureResult(result, pf, ts)
				return result, err
			}
			if skip != "" {
				log.Warn("order skipped", "ts", ts, "symbol", order.Symbol,
					"side", order.Side, "qty", order.Quantity, "reason", skip)
				result.Warnings++
				continue
			}
			queue.push(types.EventFill, ts, fill.Symbol, fill)
			if fill.Side == types.SideTypeBuy {
				lastBuyStep[fill.Symbol] = step
			}
		}

		// Advance the visible world only after all orders for the step are
		// done: the next step's strategy snapshot includes this bar, this
		// step's did not.
		stepCloses := make(map[string]decimal.Decimal, len(symbols))
		for _, symbol := range symbols {
			bar := slice.Bars[symbol]
			history[symbol] = append(history[symbol], bar)
			lastCloses[symbol] = bar.Close
			stepCloses[symbol] = bar.Close
		}
		pf.updateLastPrices(stepCloses)

		result.Equity = append(result.Equity, types.EquityPoint{
			Timestamp: ts,
			Equity:    pf.markToMarket(lastCloses),
		})
		queue.push(types.EventMarketClose, ts, "", nil)

		// Events are transient; drop the processed step.
		queue.drain()

		if progress != nil {
			progress.Add(1)
		}
	}

	e.status = types.RunCompleted
	result.Status = types.RunCompleted
	var endTime = slices[len(slices)-1].Timestamp
	e.captureResult(result, pf, endTime)

	log.Info("run completed",
		"fills", len(result.Fills),
		"warnings", result.Warnings,
		"final_equity", result.Final.Value(),
	)
	return result, nil
}

// execute turns one order into at most one fill against the current step's
// bar. A non-empty skip reason means the order was dropped without failing
// the run.
func (e *Engine) execute(
	order types.Order,
	slice align.Slice,
	pf *portfolio,
	history map[string][]types.Bar,
	lastBuyStep map[string]int,
	step int,
) (types.Fill, string, error) {
	bar, ok := slice.Bars[order.Symbol]
	if !ok {
		return types.Fill{}, "no bar this step (halted or missing)", nil
	}
	if order.Quantity.LessThanOrEqual(decimal.Zero) {
		return types.Fill{}, "non-positive quantity", nil
	}

	qty := order.Quantity
	if order.Side == types.SideTypeSell && !e.cfg.AllowShorting {
		held := pf.positionQty(order.Symbol)
		if held.LessThanOrEqual(decimal.Zero) {
			return types.Fill{}, "no position to sell, shorting disabled", nil
		}
		if qty.GreaterThan(held) {
			// Truncate rather than reject: the spec treats an oversized
			// sell as "liquidate what is there".
			qty = held
		}
	}
	if order.Side == types.SideTypeSell && e.cfg.MinHoldingBars > 0 {
		if bought, ok := lastBuyStep[order.Symbol]; ok && step-bought < e.cfg.MinHoldingBars {
			return types.Fill{}, "within minimum holding period", nil
		}
	}

	sized := order
	sized.Quantity = qty

	slip, err := e.cfg.Slippage.Cost(sized, bar)
	if err != nil {
		return types.Fill{}, "", err
	}
	avgVolume := trailingAvgVolume(history[order.Symbol], bar, e.cfg.AvgVolumeWindow)
	impact := e.cfg.Impact.Cost(sized, bar, avgVolume)

	// Slippage and impact are additive and always work against the trader.
	perShare := slip.Add(impact).Div(qty)
	price := bar.Close.Add(perShare)
	if order.Side == types.SideTypeSell {
		price = bar.Close.Sub(perShare)
	}

	notional := price.Mul(qty)
	commission := e.cfg.commission(notional, order.Side)

	if order.Side == types.SideTypeBuy {
		total := notional.Add(commission)
		if total.GreaterThan(pf.cash) {
			return types.Fill{}, fmt.Sprintf("%v: need %s, have %s",
				errInsufficientCash, total, pf.cash), nil
		}
	}

	fill := types.Fill{
		Symbol:     order.Symbol,
		Timestamp:  slice.Timestamp,
		Side:       order.Side,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Reason:     order.Reason,
	}
	realized, closing, err := pf.applyFill(fill)
	if err != nil {
		return types.Fill{}, "", err
	}
	fill.RealizedPnL = realized
	fill.Closing = closing
	return fill, "", nil
}

// captureResult copies the ledger's terminal state onto the result record,
// both on completion and on mid-run failure.
func (e *Engine) captureResult(result *types.RunResult, pf *portfolio, ts time.Time) {
	result.Fills = pf.fills
	result.Final = pf.snapshot(ts)
	result.Commissions = pf.commissions
	for symbol, realized := range pf.realized {
		result.RealizedBySymbol[symbol] = realized
	}
}

func sortedBarSymbols(bars map[string]types.Bar) []string {
	symbols := make([]string, 0, len(bars))
	for symbol := range bars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// trailingAvgVolume averages volume over the last window bars, including
// the bar being executed against.
func trailingAvgVolume(history []types.Bar, current types.Bar, window int) decimal.Decimal {
	total := current.Volume
	count := 1
	for i := len(history) - 1; i >= 0 && count < window; i-- {
		total = total.Add(history[i].Volume)
		count++
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

func trailingAvgVolumes(history map[string][]types.Bar, window int) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(history))
	for symbol, bars := range history {
		if len(bars) == 0 {
			continue
		}
		n := window
		if n > len(bars) {
			n = len(bars)
		}
		total := decimal.Zero
		for _, bar := range bars[len(bars)-n:] {
			total = total.Add(bar.Volume)
		}
		out[symbol] = total.Div(decimal.NewFromInt(int64(n)))
	}
	return out
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
