package marketmaker

import (
	"context"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/erain9/cdamatch/pkg/feed"
	"github.com/nikolaydubina/fpdecimal"
)

// PriceFetcher defines the interface for fetching the price to quote around
type PriceFetcher interface {
	// FetchPrice returns the current reference price
	FetchPrice(ctx context.Context) (float64, error)
}

// OrderPlacer submits events under the arrival id it assigns.
// *feed.Sequencer implements it.
type OrderPlacer interface {
	Submit(ctx context.Context, build feed.BuildFunc) (*core.Done, error)
}

// Quote is one resting limit order the strategy wants on the book
type Quote struct {
	Side   core.Side
	Volume int64
	Price  fpdecimal.Decimal
}

// MarketMakerStrategy defines the interface for market making strategies
type MarketMakerStrategy interface {
	// CalculateOrders calculates the quotes to be placed based on the current price
	CalculateOrders(ctx context.Context, currentPrice float64) ([]Quote, error)
}
