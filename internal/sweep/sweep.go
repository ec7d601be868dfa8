// Package sweep drives many independent backtest runs over a parameter
// grid. Each combination gets its own engine, portfolio and fill log; runs
// share only read-only inputs, so results are identical regardless of the
// worker count.
package sweep

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"quantbt/internal/analytics"
	"quantbt/internal/engine"
)

// Params is one point of the grid: parameter name to value.
type Params map[string]float64

// Grid maps parameter names to candidate values. The cross product of all
// entries is swept.
type Grid map[string][]float64

// Factory builds a fresh engine for one parameter combination. It must not
// reuse mutable state between calls.
type Factory func(p Params) (*engine.Engine, error)

// Result pairs one combination with its report. Err is set when that
// combination failed to build or run; other combinations are unaffected.
type Result struct {
	Params Params
	Report *analytics.Report
	Err    error
}

// Combinations expands the grid in deterministic order: parameter names
// sorted, odometer-style iteration over values.
func (g Grid) Combinations() []Params {
	if len(g) == 0 {
		return nil
	}
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	combos := []Params{{}}
	for _, name := range names {
		values := g[name]
		next := make([]Params, 0, len(combos)*len(values))
		for _, base := range combos {
			for _, value := range values {
				p := make(Params, len(base)+1)
				for k, v := range base {
					p[k] = v
				}
				p[name] = value
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}

// Run sweeps the grid with a bounded worker pool. The returned slice is
// ordered by grid position, not completion order. Cancellation is
// cooperative: the context is checked before each combination starts, never
// mid-run.
func Run(ctx context.Context, grid Grid, workers int, factory Factory, acfg analytics.Config) []Result {
	combos := grid.Combinations()
	if len(combos) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	type job struct {
		index  int
		params Params
	}
	jobs := make(chan job)
	results := make([]Result, len(combos))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = runOne(j.params, factory, acfg)
			}
		}()
	}

	queued := 0
	for i, params := range combos {
		if err := ctx.Err(); err != nil {
			// Mark everything not yet queued as cancelled and stop feeding
			// the pool; in-flight runs finish normally.
			for k := i; k < len(combos); k++ {
				results[k] = Result{Params: combos[k], Err: err}
			}
			break
		}
		jobs <- job{index: i, params: params}
		queued++
	}
	close(jobs)
	wg.Wait()

	slog.Debug("sweep finished", "combinations", len(combos), "queued", queued, "workers", workers)
	return results
}

func runOne(params Params, factory Factory, acfg analytics.Config) Result {
	eng, err := factory(params)
	if err != nil {
		return Result{Params: params, Err: err}
	}
	res, err := eng.Run()
	if err != nil {
		return Result{Params: params, Err: err}
	}
	return Result{Params: params, Report: analytics.Analyze(res, acfg)}
}
