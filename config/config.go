// Package config loads the CLI's YAML run configuration. The library
// packages never read files or environment variables themselves; everything
// flows through explicit structs built here at the edge.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Costs    CostsConfig    `yaml:"costs"`
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Log      LogConfig      `yaml:"log"`
}

type BacktestConfig struct {
	InitialCash     float64 `yaml:"initial_cash"`
	Interval        string  `yaml:"interval"`
	AllowShorting   bool    `yaml:"allow_shorting"`
	StrategyFatal   bool    `yaml:"strategy_error_fatal"`
	AvgVolumeWindow int     `yaml:"avg_volume_window"`
	MinHoldingBars  int     `yaml:"min_holding_bars"`
	RiskFreeRate    float64 `yaml:"risk_free_rate"`
}

type CostsConfig struct {
	CommissionRate float64 `yaml:"commission_rate"`
	MinCommission  float64 `yaml:"min_commission"`
	SellTaxRate    float64 `yaml:"sell_tax_rate"`

	// Slippage: "fixed" with SlippagePerShare, or "volatility" with
	// SlippageFactor.
	SlippageModel    string  `yaml:"slippage_model"`
	SlippagePerShare float64 `yaml:"slippage_per_share"`
	SlippageFactor   float64 `yaml:"slippage_factor"`

	// Impact: "none", "sqrt" or "linear", all using ImpactFactor.
	ImpactModel  string  `yaml:"impact_model"`
	ImpactFactor float64 `yaml:"impact_factor"`
}

type DataConfig struct {
	DSN     string   `yaml:"dsn"`
	Symbols []string `yaml:"symbols"`
	Start   string   `yaml:"start"` // 2006-01-02
	End     string   `yaml:"end"`
}

type StrategyConfig struct {
	FastWindow      int     `yaml:"fast_window"`
	SlowWindow      int     `yaml:"slow_window"`
	PositionPercent float64 `yaml:"position_percent"`
}

type SweepConfig struct {
	Workers int                  `yaml:"workers"`
	Grid    map[string][]float64 `yaml:"grid"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. QUANTBT_DB_URL in
// the environment overrides the configured DSN.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if dsn := os.Getenv("QUANTBT_DB_URL"); dsn != "" {
		cfg.Data.DSN = dsn
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Backtest: BacktestConfig{
			InitialCash: 100_000,
			Interval:    "1d",
		},
		Costs: CostsConfig{
			SlippageModel: "fixed",
			ImpactModel:   "none",
		},
		Strategy: StrategyConfig{
			FastWindow:      20,
			SlowWindow:      50,
			PositionPercent: 0.95,
		},
		Sweep: SweepConfig{Workers: 4},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

func (c *Config) validate() error {
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	if c.Data.Start == "" || c.Data.End == "" {
		return fmt.Errorf("config: data start and end dates are required")
	}
	switch c.Costs.SlippageModel {
	case "fixed", "volatility":
	default:
		return fmt.Errorf("config: unknown slippage model %q", c.Costs.SlippageModel)
	}
	switch c.Costs.ImpactModel {
	case "none", "sqrt", "linear":
	default:
		return fmt.Errorf("config: unknown impact model %q", c.Costs.ImpactModel)
	}
	return nil
}
