package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Engine struct {
		Name string `yaml:"name"`
	} `yaml:"engine"`

	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`

	Output struct {
		Color bool   `yaml:"color"`
		Path  string `yaml:"path"`
	} `yaml:"output"`

	Telemetry struct {
		Enabled        bool          `yaml:"enabled"`
		Endpoint       string        `yaml:"endpoint"`
		ServiceVersion string        `yaml:"service_version"`
		ExportInterval time.Duration `yaml:"export_interval"`
	} `yaml:"telemetry"`

	LoadTest struct {
		Events   int     `yaml:"events"`
		Rate     int     `yaml:"rate"`
		Workers  int     `yaml:"workers"`
		Seed     int64   `yaml:"seed"`
		MidPrice float64 `yaml:"mid_price"`
		Spread   float64 `yaml:"spread"`
	} `yaml:"loadtest"`

	MarketMaker struct {
		Enabled           bool          `yaml:"enabled"`
		NumLevels         int           `yaml:"num_levels"`
		BaseSpreadPercent float64       `yaml:"base_spread_percent"`
		PriceStepPercent  float64       `yaml:"price_step_percent"`
		OrderSize         int64         `yaml:"order_size"`
		UpdateInterval    time.Duration `yaml:"update_interval"`
	} `yaml:"market_maker"`
}

// envPrefix is prepended to every environment override, e.g. CDA_LOG_LEVEL
const envPrefix = "CDA"

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.Engine.Name = "cda"

	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28

	cfg.Output.Color = true

	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.ServiceVersion = "0.1.0"
	cfg.Telemetry.ExportInterval = 15 * time.Second

	cfg.LoadTest.Events = 100000
	cfg.LoadTest.Rate = 0
	cfg.LoadTest.Workers = 4
	cfg.LoadTest.Seed = 1
	cfg.LoadTest.MidPrice = 100
	cfg.LoadTest.Spread = 2

	cfg.MarketMaker.Enabled = true
	cfg.MarketMaker.NumLevels = 3
	cfg.MarketMaker.BaseSpreadPercent = 0.1
	cfg.MarketMaker.PriceStepPercent = 0.05
	cfg.MarketMaker.OrderSize = 10
	cfg.MarketMaker.UpdateInterval = 100 * time.Millisecond
	return cfg
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then CDA_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var (
		binds   []func()
		bindErr error
	)
	bind := func(key string, apply func(key string)) {
		if err := v.BindEnv(key); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("failed to bind %s: %w", key, err)
		}
		binds = append(binds, func() {
			if v.IsSet(key) {
				apply(key)
			}
		})
	}
	str := func(dst *string) func(string) { return func(k string) { *dst = v.GetString(k) } }
	boolean := func(dst *bool) func(string) { return func(k string) { *dst = v.GetBool(k) } }
	integer := func(dst *int) func(string) { return func(k string) { *dst = v.GetInt(k) } }
	int64s := func(dst *int64) func(string) { return func(k string) { *dst = v.GetInt64(k) } }
	float := func(dst *float64) func(string) { return func(k string) { *dst = v.GetFloat64(k) } }
	duration := func(dst *time.Duration) func(string) { return func(k string) { *dst = v.GetDuration(k) } }

	bind("engine.name", str(&cfg.Engine.Name))

	bind("log.level", str(&cfg.Log.Level))
	bind("log.format", str(&cfg.Log.Format))
	bind("log.file", str(&cfg.Log.File))
	bind("log.max_size_mb", integer(&cfg.Log.MaxSizeMB))
	bind("log.max_backups", integer(&cfg.Log.MaxBackups))
	bind("log.max_age_days", integer(&cfg.Log.MaxAgeDays))

	bind("output.color", boolean(&cfg.Output.Color))
	bind("output.path", str(&cfg.Output.Path))

	bind("telemetry.enabled", boolean(&cfg.Telemetry.Enabled))
	bind("telemetry.endpoint", str(&cfg.Telemetry.Endpoint))
	bind("telemetry.service_version", str(&cfg.Telemetry.ServiceVersion))
	bind("telemetry.export_interval", duration(&cfg.Telemetry.ExportInterval))

	bind("loadtest.events", integer(&cfg.LoadTest.Events))
	bind("loadtest.rate", integer(&cfg.LoadTest.Rate))
	bind("loadtest.workers", integer(&cfg.LoadTest.Workers))
	bind("loadtest.seed", int64s(&cfg.LoadTest.Seed))
	bind("loadtest.mid_price", float(&cfg.LoadTest.MidPrice))
	bind("loadtest.spread", float(&cfg.LoadTest.Spread))

	bind("market_maker.enabled", boolean(&cfg.MarketMaker.Enabled))
	bind("market_maker.num_levels", integer(&cfg.MarketMaker.NumLevels))
	bind("market_maker.base_spread_percent", float(&cfg.MarketMaker.BaseSpreadPercent))
	bind("market_maker.price_step_percent", float(&cfg.MarketMaker.PriceStepPercent))
	bind("market_maker.order_size", int64s(&cfg.MarketMaker.OrderSize))
	bind("market_maker.update_interval", duration(&cfg.MarketMaker.UpdateInterval))

	if bindErr != nil {
		return bindErr
	}
	for _, apply := range binds {
		apply()
	}
	return nil
}

// Validate checks the configuration for values the binaries cannot run with
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("log.format must be json or pretty, got %q", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation settings must not be negative")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint must not be empty when telemetry is enabled")
	}
	if c.LoadTest.Events < 0 {
		return fmt.Errorf("loadtest.events must not be negative")
	}
	if c.LoadTest.Rate < 0 {
		return fmt.Errorf("loadtest.rate must not be negative")
	}
	if c.LoadTest.Workers <= 0 {
		return fmt.Errorf("loadtest.workers must be positive")
	}
	if c.LoadTest.MidPrice <= 0 {
		return fmt.Errorf("loadtest.mid_price must be positive")
	}
	if c.LoadTest.Spread < 0 {
		return fmt.Errorf("loadtest.spread must not be negative")
	}
	if c.MarketMaker.Enabled {
		if c.MarketMaker.NumLevels <= 0 {
			return fmt.Errorf("market_maker.num_levels must be positive")
		}
		if c.MarketMaker.OrderSize <= 0 {
			return fmt.Errorf("market_maker.order_size must be positive")
		}
		if c.MarketMaker.UpdateInterval <= 0 {
			return fmt.Errorf("market_maker.update_interval must be positive")
		}
	}
	return nil
}

// Pretty reports whether logs should go through the console writer
func (c *Config) Pretty() bool {
	return c.Log.Format == "pretty"
}
