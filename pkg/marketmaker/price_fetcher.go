package marketmaker

import (
	"context"

	"github.com/erain9/cdamatch/pkg/core"
)

// bookPriceFetcher reads the reference price from the engine it quotes into
type bookPriceFetcher struct {
	engine   *core.Engine
	fallback float64
}

// NewBookPriceFetcher creates a PriceFetcher that returns the last trade
// price, else the mid of the best bid and ask, else fallback.
func NewBookPriceFetcher(engine *core.Engine, fallback float64) PriceFetcher {
	return &bookPriceFetcher{engine: engine, fallback: fallback}
}

// FetchPrice implements PriceFetcher
func (f *bookPriceFetcher) FetchPrice(_ context.Context) (float64, error) {
	snap := f.engine.Snapshot()
	switch {
	case snap.HasLastTrade:
		return snap.LastTradePrice.Float64(), nil
	case snap.HasBid && snap.HasAsk:
		return (snap.BestBid.Float64() + snap.BestAsk.Float64()) / 2, nil
	default:
		return f.fallback, nil
	}
}
