package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
backtest:
  initial_cash: 50000
  interval: 1d
data:
  dsn: postgres://localhost:5432/quantbt
  symbols: [AAPL, MSFT]
  start: 2024-01-01
  end: 2024-06-30
costs:
  commission_rate: 0.001
  slippage_model: fixed
  slippage_per_share: 0.02
strategy:
  fast_window: 10
  slow_window: 30
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 50000.0, cfg.Backtest.InitialCash)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Data.Symbols)
	assert.Equal(t, 0.001, cfg.Costs.CommissionRate)
	assert.Equal(t, 10, cfg.Strategy.FastWindow)

	// Unset fields keep their defaults.
	assert.Equal(t, "none", cfg.Costs.ImpactModel)
	assert.Equal(t, 0.95, cfg.Strategy.PositionPercent)
	assert.Equal(t, 4, cfg.Sweep.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverridesDSN(t *testing.T) {
	t.Setenv("QUANTBT_DB_URL", "postgres://override:5432/other")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "postgres://override:5432/other", cfg.Data.DSN)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing symbols", `
data:
  start: 2024-01-01
  end: 2024-06-30
`},
		{"missing dates", `
data:
  symbols: [AAPL]
`},
		{"unknown slippage model", `
data:
  symbols: [AAPL]
  start: 2024-01-01
  end: 2024-06-30
costs:
  slippage_model: quadratic
`},
		{"unknown impact model", `
data:
  symbols: [AAPL]
  start: 2024-01-01
  end: 2024-06-30
costs:
  impact_model: cubic
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
