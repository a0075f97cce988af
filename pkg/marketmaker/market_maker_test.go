package marketmaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/erain9/cdamatch/pkg/feed"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPrice float64

func (p fixedPrice) FetchPrice(context.Context) (float64, error) {
	return float64(p), nil
}

type failingFetcher struct{}

func (failingFetcher) FetchPrice(context.Context) (float64, error) {
	return 0, errors.New("no price")
}

func newTestMaker(t *testing.T, fetcher PriceFetcher) (*MarketMaker, *feed.Sequencer) {
	t.Helper()
	seq := feed.NewSequencer(core.NewEngine())
	cfg := testConfig()
	mm, err := NewMarketMaker(cfg, zerolog.Nop(), seq, fetcher, NewLayeredSymmetricQuoting(cfg, zerolog.Nop()))
	require.NoError(t, err)
	return mm, seq
}

func TestNewMarketMaker_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.OrderSize = 0

	_, err := NewMarketMaker(cfg, zerolog.Nop(), nil, fixedPrice(100), nil)
	assert.ErrorContains(t, err, "order_size")
}

func TestMarketMaker_UpdateOrders(t *testing.T) {
	mm, seq := newTestMaker(t, fixedPrice(100))
	engine := seq.Engine()

	require.NoError(t, mm.UpdateOrders(context.Background()))

	assert.Equal(t, 6, mm.ActiveOrders())
	assert.Equal(t, 3, engine.BuyQueue().Len())
	assert.Equal(t, 3, engine.SellQueue().Len())

	snap := engine.Snapshot()
	assert.Equal(t, "99.95", core.FormatPrice(snap.BestBid))
	assert.Equal(t, "100.05", core.FormatPrice(snap.BestAsk))

	// re-quoting replaces the ladder rather than stacking it
	require.NoError(t, mm.UpdateOrders(context.Background()))
	assert.Equal(t, 6, mm.ActiveOrders())
	assert.Equal(t, 3, engine.BuyQueue().Len())
	assert.Equal(t, 3, engine.SellQueue().Len())
	assert.Equal(t, int64(18), seq.LastID())
}

func TestMarketMaker_FilledQuotesAreForgotten(t *testing.T) {
	mm, seq := newTestMaker(t, fixedPrice(100))
	require.NoError(t, mm.UpdateOrders(context.Background()))

	// take out the whole inner ask
	_, err := seq.Submit(context.Background(), func(id int64) (*core.OrderEvent, error) {
		return core.NewMarketEvent(id, core.Buy, 10)
	})
	require.NoError(t, err)
	require.Equal(t, 2, seq.Engine().SellQueue().Len())

	// the cancel for the filled quote misses and is not an error
	require.NoError(t, mm.UpdateOrders(context.Background()))
	assert.Equal(t, 6, mm.ActiveOrders())
	assert.Equal(t, 3, seq.Engine().SellQueue().Len())
}

func TestMarketMaker_FetchError(t *testing.T) {
	mm, seq := newTestMaker(t, failingFetcher{})

	err := mm.UpdateOrders(context.Background())
	assert.ErrorContains(t, err, "failed to fetch price")
	assert.Equal(t, int64(0), seq.LastID())
}

func TestMarketMaker_StartStop(t *testing.T) {
	mm, seq := newTestMaker(t, fixedPrice(100))

	require.NoError(t, mm.Start(context.Background()))
	assert.Equal(t, 6, mm.ActiveOrders())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, mm.Stop(ctx))

	assert.Equal(t, 0, mm.ActiveOrders())
	assert.Equal(t, 0, seq.Engine().BuyQueue().Len())
	assert.Equal(t, 0, seq.Engine().SellQueue().Len())
}

func TestBookPriceFetcher(t *testing.T) {
	engine := core.NewEngine()
	fetcher := NewBookPriceFetcher(engine, 42)
	ctx := context.Background()

	price, err := fetcher.FetchPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.0, price)

	submit := func(ev *core.OrderEvent, err error) {
		require.NoError(t, err)
		_, err = engine.Submit(ctx, ev)
		require.NoError(t, err)
	}

	submit(core.NewLimitEvent(1, core.Buy, 1, fpdecimal.FromFloat(99.0)))
	submit(core.NewLimitEvent(2, core.Sell, 2, fpdecimal.FromFloat(101.0)))

	price, err = fetcher.FetchPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, price)

	submit(core.NewLimitEvent(3, core.Buy, 1, fpdecimal.FromFloat(101.0)))

	price, err = fetcher.FetchPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 101.0, price)
}
