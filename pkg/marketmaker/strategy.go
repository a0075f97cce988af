package marketmaker

import (
	"context"
	"fmt"
	"math"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/rs/zerolog"
)

// LayeredSymmetricQuoting implements a symmetric market making strategy with multiple price levels
type LayeredSymmetricQuoting struct {
	cfg    *Config
	logger zerolog.Logger
}

// NewLayeredSymmetricQuoting creates a new LayeredSymmetricQuoting strategy
func NewLayeredSymmetricQuoting(cfg *Config, logger zerolog.Logger) MarketMakerStrategy {
	return &LayeredSymmetricQuoting{
		cfg:    cfg,
		logger: logger.With().Str("component", "LayeredSymmetricQuoting").Logger(),
	}
}

// CalculateOrders implements MarketMakerStrategy. Quotes alternate bid, ask
// from the innermost level outwards.
func (s *LayeredSymmetricQuoting) CalculateOrders(_ context.Context, currentPrice float64) ([]Quote, error) {
	if currentPrice <= 0 {
		return nil, fmt.Errorf("cannot quote around price %f", currentPrice)
	}

	baseHalfSpread := currentPrice * (s.cfg.BaseSpreadPercent / 2 / 100)
	priceStep := currentPrice * (s.cfg.PriceStepPercent / 100)

	quotes := make([]Quote, 0, s.cfg.NumLevels*2)

	for i := 1; i <= s.cfg.NumLevels; i++ {
		bidPrice := roundCents(currentPrice - baseHalfSpread - float64(i-1)*priceStep)
		askPrice := roundCents(currentPrice + baseHalfSpread + float64(i-1)*priceStep)
		if bidPrice <= 0 {
			break
		}

		quotes = append(quotes,
			Quote{Side: core.Buy, Volume: s.cfg.OrderSize, Price: core.PriceFromFloat(bidPrice)},
			Quote{Side: core.Sell, Volume: s.cfg.OrderSize, Price: core.PriceFromFloat(askPrice)},
		)

		s.logger.Debug().
			Int("level", i).
			Float64("bid_price", bidPrice).
			Float64("ask_price", askPrice).
			Int64("quantity", s.cfg.OrderSize).
			Msg("Calculated order pair")
	}

	return quotes, nil
}

func roundCents(p float64) float64 {
	return math.Round(p*100) / 100
}
