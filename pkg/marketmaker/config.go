package marketmaker

import (
	"fmt"
	"time"
)

// Config holds the quoting parameters of the market maker
type Config struct {
	// Market making parameters
	NumLevels         int
	BaseSpreadPercent float64
	PriceStepPercent  float64
	OrderSize         int64
	UpdateInterval    time.Duration
	// Price quoted around before the book has traded
	FallbackPrice float64
}

// Validate checks that the market maker can run with cfg
func (cfg *Config) Validate() error {
	if cfg.NumLevels <= 0 {
		return fmt.Errorf("num_levels must be positive")
	}
	if cfg.BaseSpreadPercent <= 0 {
		return fmt.Errorf("base_spread_percent must be positive")
	}
	if cfg.PriceStepPercent <= 0 {
		return fmt.Errorf("price_step_percent must be positive")
	}
	if cfg.OrderSize <= 0 {
		return fmt.Errorf("order_size must be positive")
	}
	if cfg.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be positive")
	}
	if cfg.FallbackPrice <= 0 {
		return fmt.Errorf("fallback_price must be positive")
	}
	return nil
}
