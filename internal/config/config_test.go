package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 4, cfg.App.Workers)
	assert.Equal(t, "data", cfg.Backtest.DataDir)
	assert.Equal(t, 10_000_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.035, cfg.Backtest.RiskFreeRate)
	assert.Equal(t, time.Duration(0), cfg.Backtest.Timeout)
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "WORKERS=8\nSYMBOLS=005930,000660\nRUN_TIMEOUT=30s\nSTRATEGY_FILES=a.yaml,b.yaml\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Cleanup(func() {
		for _, k := range []string{"WORKERS", "SYMBOLS", "RUN_TIMEOUT", "STRATEGY_FILES"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.App.Workers)
	assert.Equal(t, []string{"005930", "000660"}, cfg.Backtest.Symbols)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.Backtest.StrategyFiles)
	assert.Equal(t, 30*time.Second, cfg.Backtest.Timeout)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		var c Config
		c.App.Workers = 4
		c.App.LogFormat = "json"
		c.Backtest.InitialCapital = 1e7
		c.Backtest.RiskFreeRate = 0.035
		return &c
	}
	require.NoError(t, ValidateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"workers", func(c *Config) { c.App.Workers = 0 }},
		{"format", func(c *Config) { c.App.LogFormat = "xml" }},
		{"capital", func(c *Config) { c.Backtest.InitialCapital = 0 }},
		{"risk free as percent", func(c *Config) { c.Backtest.RiskFreeRate = 3.5 }},
		{"timeout", func(c *Config) { c.Backtest.Timeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, ValidateConfig(c))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "DEBUG", "json")
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
	log.Info().Str("symbol", "005930").Msg("테스트")
	assert.Contains(t, buf.String(), `"symbol":"005930"`)

	assert.Equal(t, zerolog.InfoLevel, newLogger(&buf, "nope", "json").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger(&buf, "", "console").GetLevel())
}
