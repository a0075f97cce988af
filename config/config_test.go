package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Pretty())
	assert.True(t, cfg.Output.Color)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 4, cfg.LoadTest.Workers)
	assert.Equal(t, 100*time.Millisecond, cfg.MarketMaker.UpdateInterval)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
  file: /tmp/engine.log
output:
  color: false
loadtest:
  events: 500
  rate: 1000
  mid_price: 250.5
market_maker:
  update_interval: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Pretty())
	assert.Equal(t, "/tmp/engine.log", cfg.Log.File)
	assert.False(t, cfg.Output.Color)
	assert.Equal(t, 500, cfg.LoadTest.Events)
	assert.Equal(t, 1000, cfg.LoadTest.Rate)
	assert.Equal(t, 250.5, cfg.LoadTest.MidPrice)
	assert.Equal(t, 250*time.Millisecond, cfg.MarketMaker.UpdateInterval)

	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.MarketMaker.NumLevels)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
loadtest:
  workers: 2
`)
	t.Setenv("CDA_LOG_LEVEL", "warn")
	t.Setenv("CDA_LOADTEST_WORKERS", "8")
	t.Setenv("CDA_OUTPUT_COLOR", "false")
	t.Setenv("CDA_MARKET_MAKER_UPDATE_INTERVAL", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 8, cfg.LoadTest.Workers)
	assert.False(t, cfg.Output.Color)
	assert.Equal(t, 2*time.Second, cfg.MarketMaker.UpdateInterval)
}

func TestLoad_EnvOverridesEveryKind(t *testing.T) {
	t.Setenv("CDA_LOG_MAX_SIZE_MB", "50")
	t.Setenv("CDA_LOG_MAX_BACKUPS", "7")
	t.Setenv("CDA_LOG_MAX_AGE_DAYS", "14")
	t.Setenv("CDA_TELEMETRY_EXPORT_INTERVAL", "30s")
	t.Setenv("CDA_LOADTEST_SEED", "99")
	t.Setenv("CDA_LOADTEST_MID_PRICE", "250.5")
	t.Setenv("CDA_MARKET_MAKER_BASE_SPREAD_PERCENT", "0.2")
	t.Setenv("CDA_MARKET_MAKER_PRICE_STEP_PERCENT", "0.07")
	t.Setenv("CDA_MARKET_MAKER_ORDER_SIZE", "25")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Log.MaxSizeMB)
	assert.Equal(t, 7, cfg.Log.MaxBackups)
	assert.Equal(t, 14, cfg.Log.MaxAgeDays)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.ExportInterval)
	assert.Equal(t, int64(99), cfg.LoadTest.Seed)
	assert.Equal(t, 250.5, cfg.LoadTest.MidPrice)
	assert.Equal(t, 0.2, cfg.MarketMaker.BaseSpreadPercent)
	assert.Equal(t, 0.07, cfg.MarketMaker.PriceStepPercent)
	assert.Equal(t, int64(25), cfg.MarketMaker.OrderSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "log: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(writeConfig(t, "log:\n  level: chatty\n"))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative rotation", func(c *Config) { c.Log.MaxBackups = -1 }, "rotation"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "telemetry.endpoint"},
		{"negative events", func(c *Config) { c.LoadTest.Events = -1 }, "loadtest.events"},
		{"negative rate", func(c *Config) { c.LoadTest.Rate = -5 }, "loadtest.rate"},
		{"no workers", func(c *Config) { c.LoadTest.Workers = 0 }, "loadtest.workers"},
		{"zero mid price", func(c *Config) { c.LoadTest.MidPrice = 0 }, "loadtest.mid_price"},
		{"negative spread", func(c *Config) { c.LoadTest.Spread = -1 }, "loadtest.spread"},
		{"no levels", func(c *Config) { c.MarketMaker.NumLevels = 0 }, "market_maker.num_levels"},
		{"zero order size", func(c *Config) { c.MarketMaker.OrderSize = 0 }, "market_maker.order_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	// a disabled market maker is not validated
	cfg := Default()
	cfg.MarketMaker.Enabled = false
	cfg.MarketMaker.NumLevels = 0
	assert.NoError(t, cfg.Validate())
}
