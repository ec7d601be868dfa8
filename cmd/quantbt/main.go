package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"quantbt/config"
	"quantbt/internal/analytics"
	"quantbt/internal/engine"
	"quantbt/internal/repository"
	"quantbt/internal/sweep"
	"quantbt/strategies/smacross"
	"quantbt/types"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	runSweep := flag.Bool("sweep", false, "run the configured parameter sweep instead of a single backtest")
	csvPath := flag.String("csv", "", "write the fill log to this CSV file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	noProgress := flag.Bool("no-progress", false, "disable the progress bar")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	interval, ok := types.ParseInterval(cfg.Backtest.Interval)
	if !ok {
		slog.Error("unknown interval", "interval", cfg.Backtest.Interval)
		os.Exit(1)
	}

	db, err := repository.NewDatabase(cfg.Data.DSN)
	if err != nil {
		slog.Error("failed to open datasource", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	data, err := loadData(ctx, &db, cfg, interval)
	if err != nil {
		slog.Error("failed to load market data", "err", err)
		os.Exit(1)
	}

	acfg := analytics.Config{
		RiskFreeRate:   cfg.Backtest.RiskFreeRate,
		PeriodsPerYear: types.PeriodsPerYear[interval],
	}

	if *runSweep {
		results := sweep.Run(ctx, sweep.Grid(cfg.Sweep.Grid), cfg.Sweep.Workers,
			sweepFactory(cfg, data, interval), acfg)
		renderSweep(os.Stdout, results)
		return
	}

	engCfg, err := buildEngineConfig(cfg, interval)
	if err != nil {
		slog.Error("bad engine configuration", "err", err)
		os.Exit(1)
	}
	engCfg.ShowProgress = !*noProgress

	strat, err := smacross.New(cfg.Strategy.FastWindow, cfg.Strategy.SlowWindow,
		decimal.NewFromFloat(cfg.Strategy.PositionPercent))
	if err != nil {
		slog.Error("bad strategy configuration", "err", err)
		os.Exit(1)
	}

	eng, err := engine.New(engCfg, data, strat)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	res, err := eng.Run()
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	report := analytics.Analyze(res, acfg)
	renderReport(os.Stdout, report)

	if *csvPath != "" {
		if err := engine.WriteFillsCSVFile(*csvPath, res.Fills); err != nil {
			slog.Error("failed to write fills csv", "err", err, "path", *csvPath)
			os.Exit(1)
		}
		slog.Info("fill log written", "path", *csvPath, "fills", len(res.Fills))
	}
}

func loadData(ctx context.Context, db *repository.Database, cfg *config.Config, interval types.Interval) (engine.Data, error) {
	start, err := time.Parse("2006-01-02", cfg.Data.Start)
	if err != nil {
		return engine.Data{}, fmt.Errorf("parse start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Data.End)
	if err != nil {
		return engine.Data{}, fmt.Errorf("parse end date: %w", err)
	}

	data := engine.Data{Bars: make(map[string][]types.Bar, len(cfg.Data.Symbols))}
	for _, symbol := range cfg.Data.Symbols {
		asset, err := db.GetAssetBySymbol(ctx, symbol)
		if err != nil {
			return engine.Data{}, err
		}
		bars, err := db.GetBars(ctx, asset, interval, start, end)
		if err != nil {
			return engine.Data{}, err
		}
		adjustments, err := db.GetAdjustments(ctx, asset)
		if err != nil {
			return engine.Data{}, err
		}
		halts, err := db.GetHalts(ctx, asset, start, end)
		if err != nil {
			return engine.Data{}, err
		}

		data.Bars[symbol] = bars
		data.Adjustments = append(data.Adjustments, adjustments...)
		data.Halts = append(data.Halts, halts...)
		slog.Debug("loaded symbol", "symbol", symbol, "bars", len(bars),
			"adjustments", len(adjustments), "halts", len(halts))
	}
	return data, nil
}

func buildEngineConfig(cfg *config.Config, interval types.Interval) (engine.Config, error) {
	out := engine.Config{
		InitialCash:     decimal.NewFromFloat(cfg.Backtest.InitialCash),
		CommissionRate:  decimal.NewFromFloat(cfg.Costs.CommissionRate),
		MinCommission:   decimal.NewFromFloat(cfg.Costs.MinCommission),
		SellTaxRate:     decimal.NewFromFloat(cfg.Costs.SellTaxRate),
		Interval:        interval,
		AllowShorting:   cfg.Backtest.AllowShorting,
		StrategyFatal:   cfg.Backtest.StrategyFatal,
		AvgVolumeWindow: cfg.Backtest.AvgVolumeWindow,
		MinHoldingBars:  cfg.Backtest.MinHoldingBars,
		Logger:          slog.Default(),
	}

	switch cfg.Costs.SlippageModel {
	case "fixed":
		out.Slippage = engine.FixedSlippage{RatePerShare: decimal.NewFromFloat(cfg.Costs.SlippagePerShare)}
	case "volatility":
		out.Slippage = engine.VolatilitySlippage{Factor: decimal.NewFromFloat(cfg.Costs.SlippageFactor)}
	default:
		return engine.Config{}, fmt.Errorf("unknown slippage model %q", cfg.Costs.SlippageModel)
	}

	switch cfg.Costs.ImpactModel {
	case "none":
		out.Impact = engine.NoImpact{}
	case "sqrt":
		out.Impact = engine.SquareRootImpact{Factor: decimal.NewFromFloat(cfg.Costs.ImpactFactor)}
	case "linear":
		out.Impact = engine.LinearImpact{Factor: decimal.NewFromFloat(cfg.Costs.ImpactFactor)}
	default:
		return engine.Config{}, fmt.Errorf("unknown impact model %q", cfg.Costs.ImpactModel)
	}

	return out, nil
}

// sweepFactory maps grid parameter names onto a fresh engine + strategy per
// combination. Recognized names: fast_window, slow_window, position_percent,
// commission_rate, slippage_per_share.
func sweepFactory(cfg *config.Config, data engine.Data, interval types.Interval) sweep.Factory {
	return func(p sweep.Params) (*engine.Engine, error) {
		engCfg, err := buildEngineConfig(cfg, interval)
		if err != nil {
			return nil, err
		}
		if v, ok := p["commission_rate"]; ok {
			engCfg.CommissionRate = decimal.NewFromFloat(v)
		}
		if v, ok := p["slippage_per_share"]; ok {
			engCfg.Slippage = engine.FixedSlippage{RatePerShare: decimal.NewFromFloat(v)}
		}

		fast := cfg.Strategy.FastWindow
		slow := cfg.Strategy.SlowWindow
		pct := cfg.Strategy.PositionPercent
		if v, ok := p["fast_window"]; ok {
			fast = int(v)
		}
		if v, ok := p["slow_window"]; ok {
			slow = int(v)
		}
		if v, ok := p["position_percent"]; ok {
			pct = v
		}
		strat, err := smacross.New(fast, slow, decimal.NewFromFloat(pct))
		if err != nil {
			return nil, err
		}
		return engine.New(engCfg, data, strat)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
