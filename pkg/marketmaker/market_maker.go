package marketmaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erain9/cdamatch/pkg/core"
	"github.com/rs/zerolog"
)

// MarketMaker keeps a ladder of limit orders on both sides of the book and
// re-quotes it around the reference price on every tick.
type MarketMaker struct {
	cfg          *Config
	logger       zerolog.Logger
	orderPlacer  OrderPlacer
	priceFetcher PriceFetcher
	strategy     MarketMakerStrategy
	activeOrders sync.Map // map[int64]bool - ids of resting quotes
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewMarketMaker creates a new market maker
func NewMarketMaker(cfg *Config, logger zerolog.Logger, orderPlacer OrderPlacer, priceFetcher PriceFetcher, strategy MarketMakerStrategy) (*MarketMaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid market maker configuration: %w", err)
	}

	return &MarketMaker{
		cfg:          cfg,
		logger:       logger.With().Str("component", "MarketMaker").Logger(),
		orderPlacer:  orderPlacer,
		priceFetcher: priceFetcher,
		strategy:     strategy,
		stopCh:       make(chan struct{}),
	}, nil
}

// Start places the first ladder and begins the re-quoting loop
func (m *MarketMaker) Start(ctx context.Context) error {
	m.logger.Info().
		Dur("update_interval", m.cfg.UpdateInterval).
		Int("levels", m.cfg.NumLevels).
		Msg("Starting market maker")

	if err := m.UpdateOrders(ctx); err != nil {
		return fmt.Errorf("failed to place initial quotes: %w", err)
	}

	m.wg.Add(1)
	go m.run(ctx)

	return nil
}

// Stop ends the loop and pulls every resting quote
func (m *MarketMaker) Stop(ctx context.Context) error {
	m.logger.Info().Msg("Stopping market maker")

	m.stopOnce.Do(func() { close(m.stopCh) })

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info().Msg("Market maker stopped successfully")
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for market maker to stop: %w", ctx.Err())
	}

	if err := m.cancelAllOrders(ctx); err != nil {
		return fmt.Errorf("failed to cancel orders during shutdown: %w", err)
	}
	return nil
}

// run is the main market making loop
func (m *MarketMaker) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug().Msg("Context cancelled, stopping market maker loop")
			return
		case <-m.stopCh:
			m.logger.Debug().Msg("Stop signal received, stopping market maker loop")
			return
		case <-ticker.C:
			if err := m.UpdateOrders(ctx); err != nil {
				m.logger.Error().Err(err).Msg("Failed to update orders")
			}
		}
	}
}

// UpdateOrders performs a single re-quote: fetch the price, pull the old
// ladder and place the new one.
func (m *MarketMaker) UpdateOrders(ctx context.Context) error {
	price, err := m.priceFetcher.FetchPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}

	quotes, err := m.strategy.CalculateOrders(ctx, price)
	if err != nil {
		return fmt.Errorf("failed to calculate orders: %w", err)
	}

	if err := m.cancelAllOrders(ctx); err != nil {
		return fmt.Errorf("failed to cancel existing orders: %w", err)
	}

	for _, q := range quotes {
		q := q
		done, err := m.orderPlacer.Submit(ctx, func(id int64) (*core.OrderEvent, error) {
			return core.NewLimitEvent(id, q.Side, q.Volume, q.Price)
		})
		if err != nil {
			m.logger.Error().Err(err).
				Str("side", q.Side.String()).
				Str("price", core.FormatPrice(q.Price)).
				Msg("Failed to place order")
			continue
		}

		// A quote that crossed and filled completely has nothing to pull later
		if done.Stored {
			m.activeOrders.Store(done.Event.ID(), true)
		}

		m.logger.Debug().
			Int64("order_id", done.Event.ID()).
			Str("side", q.Side.String()).
			Str("price", core.FormatPrice(q.Price)).
			Bool("stored", done.Stored).
			Msg("Placed order")
	}

	return nil
}

// ActiveOrders returns the number of quotes believed to be resting
func (m *MarketMaker) ActiveOrders() int {
	n := 0
	m.activeOrders.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// cancelAllOrders cancels all tracked quotes. Quotes already filled by the
// flow come back as not found and are simply forgotten.
func (m *MarketMaker) cancelAllOrders(ctx context.Context) error {
	var lastErr error
	m.activeOrders.Range(func(key, _ interface{}) bool {
		orderID := key.(int64)

		_, err := m.orderPlacer.Submit(ctx, func(id int64) (*core.OrderEvent, error) {
			return core.NewCancelEvent(id, orderID), nil
		})
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			m.logger.Error().Err(err).Int64("order_id", orderID).Msg("Failed to cancel order")
			lastErr = err
			// Continue canceling other orders even if one fails
			return true
		}

		m.activeOrders.Delete(orderID)
		return true
	})

	return lastErr
}
