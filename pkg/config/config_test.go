package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-vanek/fulcrum/pkg/engine"
	"github.com/tomas-vanek/fulcrum/pkg/execution"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const sampleYaml = `
simulation:
  mode: backtest
  start: 2025-06-02T09:00:00Z
  end: 2025-06-02T17:00:00Z
  symbols: [EURUSD, GBPUSD]
  periods: [1m, 5m]
  initial_capital: 50000
  seed: 42
execution:
  latency:
    profile: fast
    jitter: 5ms
  fill:
    rejection_probability: 0.02
  fee:
    maker_pct: 0.0001
    taker_pct: 0.0004
    asset: quote
data:
  source: synthetic
  synthetic:
    start_price: 1.05
    interval: 1s
log:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_sampleFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYaml))
	require.NoError(t, err)

	assert.Equal(t, "backtest", cfg.Simulation.Mode)
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, cfg.Simulation.Symbols)
	assert.Equal(t, []time.Duration{time.Minute, 5 * time.Minute}, cfg.Simulation.Periods)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, "fast", cfg.Execution.Latency.Profile)
	assert.Equal(t, 5*time.Millisecond, cfg.Execution.Latency.Jitter)
	assert.Equal(t, 0.02, cfg.Execution.Fill.RejectionProbability)
	assert.Equal(t, "debug", cfg.Log.Level)

	// defaults survive for everything the file does not name
	assert.Equal(t, 0.15, cfg.Execution.Fill.PartialFillProbability)
	assert.Equal(t, 10, cfg.OrderBook.Levels)
}

func TestLoad_buildsPackageConfigs(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYaml))
	require.NoError(t, err)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.ModeBacktest, ec.Mode)
	assert.True(t, ec.InitialCapital.Eq(fixed.FromInt(50000, 0)))
	assert.Equal(t, int64(42), ec.Seed)

	xc, err := cfg.ExecutionConfig()
	require.NoError(t, err)
	assert.Equal(t, execution.LatencyFast, xc.Latency.Profile)
	assert.True(t, xc.Fee.TakerPct.Eq(fixed.FromFloat64(0.0004)))

	bc, err := cfg.BookConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, bc.Levels)

	sc, err := cfg.SyntheticConfig()
	require.NoError(t, err)
	assert.True(t, sc.StartPrice.Eq(fixed.FromFloat64(1.05)))
	assert.Equal(t, int64(42), sc.Seed)
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("SIM_SEED", "99")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DATA_SOURCE", "synthetic")

	cfg, err := Load(writeConfig(t, sampleYaml))
	require.NoError(t, err)

	assert.Equal(t, int64(99), cfg.Simulation.Seed)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no symbols",
			yaml: `
simulation:
  mode: backtest
  start: 2025-06-02T09:00:00Z
  end: 2025-06-02T17:00:00Z
`,
		},
		{
			name: "unknown source",
			yaml: `
simulation:
  mode: backtest
  start: 2025-06-02T09:00:00Z
  end: 2025-06-02T17:00:00Z
  symbols: [EURUSD]
data:
  source: carrier-pigeon
`,
		},
		{
			name: "duckdb without path",
			yaml: `
simulation:
  mode: backtest
  start: 2025-06-02T09:00:00Z
  end: 2025-06-02T17:00:00Z
  symbols: [EURUSD]
data:
  source: duckdb
`,
		},
		{
			name: "end before start",
			yaml: `
simulation:
  mode: backtest
  start: 2025-06-02T17:00:00Z
  end: 2025-06-02T09:00:00Z
  symbols: [EURUSD]
`,
		},
		{
			name: "bad latency profile",
			yaml: `
simulation:
  mode: backtest
  start: 2025-06-02T09:00:00Z
  end: 2025-06-02T17:00:00Z
  symbols: [EURUSD]
execution:
  latency:
    profile: telepathic
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
