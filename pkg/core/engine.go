package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/erain9/cdamatch/pkg/logging"
	"github.com/erain9/cdamatch/pkg/messaging"
	"github.com/erain9/cdamatch/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Engine is a single-instrument matching engine. It owns the buy and sell
// limit queues, the buy and sell stop queues, and the trade log.
//
// Submit is serialized by one mutex: an event and the whole stop cascade it
// causes run to completion before the next event is admitted.
type Engine struct {
	mu        sync.Mutex
	buyLimit  *OrderQueue
	sellLimit *OrderQueue
	buyStop   *OrderQueue
	sellStop  *OrderQueue
	trades    *TradeLog
	sender    messaging.TradeSender
	metrics   *otel.EngineMetrics
}

// Option configures an Engine
type Option func(*Engine)

// WithTradeSender hands every executed trade to sender, in execution order
func WithTradeSender(sender messaging.TradeSender) Option {
	return func(e *Engine) {
		e.sender = sender
	}
}

// WithMetrics records engine counters on m instead of the default instruments
func WithMetrics(m *otel.EngineMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine with empty books
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		buyLimit:  NewLimitQueue(Buy),
		sellLimit: NewLimitQueue(Sell),
		buyStop:   NewStopQueue(Buy),
		sellStop:  NewStopQueue(Sell),
		trades:    NewTradeLog(),
		metrics:   otel.DefaultEngineMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit processes one order event, including any stop cascade it triggers.
//
// Invalid events return ErrInvalidOrder or ErrInvalidQuantity before any
// state is touched. A cancel whose target is not live returns ErrNotFound
// together with a non-nil Done; the books are unchanged.
func (e *Engine) Submit(ctx context.Context, ev *OrderEvent) (done *Done, err error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", ErrInvalidOrder)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = logging.WithEvent(ctx, ev.ID())
	logger := logging.FromContext(ctx)

	ctx, span := otel.StartEngineSpan(ctx, otel.SpanSubmitEvent,
		attribute.Int64(otel.AttributeOrderID, ev.ID()),
		attribute.String(otel.AttributeOrderType, string(ev.Type())),
		attribute.String(otel.AttributeOrderSide, ev.Side().String()),
		attribute.Int64(otel.AttributeOrderVolume, ev.Volume()),
		attribute.String(otel.AttributeOrderPrice, FormatPrice(ev.Price())),
	)
	defer span.End()
	if ev.IsCancel() {
		otel.AddAttributes(span, attribute.Int64(otel.AttributeCancelTarget, ev.Target()))
	}

	e.metrics.RecordEvent(ctx, string(ev.Type()))

	if err := validateEvent(ev); err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.metrics.RecordRejected(ctx, string(ev.Type()), "invalid")
		logger.Warn().Err(err).Msg("Rejected order event")
		return nil, err
	}

	logger.Debug().Object("event", ev).Msg("Processing order event")

	done = newDone(ev)
	mark := e.trades.Len()

	switch ev.Type() {
	case TypeLimit:
		e.processLimitOrder(ctx, ev, done)
	case TypeMarket:
		e.processMarketOrder(ctx, ev.ID(), ev.Side(), ev.Volume(), done)
	case TypeStop:
		e.processStopOrder(ctx, ev)
	case TypeCancel:
		err = e.processCancel(ctx, ev, done)
	}

	if e.trades.Len() > mark {
		e.runStopCascade(ctx, done)
	}

	done.Stored = e.isResting(ev)

	otel.AddAttributes(span,
		attribute.Int64(otel.AttributeExecutedVolume, done.Processed),
		attribute.Int64(otel.AttributeRemainingVol, done.Left),
		attribute.Int(otel.AttributeTradeCount, len(done.Trades)),
		attribute.Int(otel.AttributeStopsTriggered, len(done.Activated)),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return done, err
	}
	span.SetStatus(codes.Ok, "event processed")

	logger.Debug().Object("done", done).Msg("Order event processed")
	return done, nil
}

func validateEvent(ev *OrderEvent) error {
	if !ev.Type().Valid() {
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, string(ev.Type()))
	}
	if ev.ID() <= 0 {
		return fmt.Errorf("%w: order id %d is not positive", ErrInvalidOrder, ev.ID())
	}
	if ev.IsCancel() {
		return nil
	}
	if !ev.Side().Valid() {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, int(ev.Side()))
	}
	if ev.Volume() <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, ev.Volume())
	}
	return nil
}

// processLimitOrder matches against the opposite limit queue while the best
// opposite price crosses the limit, then rests whatever is left.
func (e *Engine) processLimitOrder(ctx context.Context, ev *OrderEvent, done *Done) {
	ctx, span := otel.StartEngineSpan(ctx, otel.SpanMatchOrder,
		attribute.Int64(otel.AttributeOrderID, ev.ID()),
		attribute.String(otel.AttributeOrderType, string(ev.Type())),
	)
	defer span.End()

	own, opposite := e.limitQueues(ev.Side())
	price := ev.Price()
	residual := ev.Volume()

	for residual > 0 {
		if opposite.Len() == 0 || !crosses(ev.Side(), price, mustPeekPrice(opposite)) {
			e.rest(ctx, own, price, ev.ID(), residual)
			return
		}

		maker := mustPop(opposite)
		volume := maker.Volume
		if maker.Volume > residual {
			volume = residual
			// Same id and price, so the remainder keeps its time priority
			e.rest(ctx, opposite, maker.Price, maker.ID, maker.Volume-residual)
		}

		e.recordTrade(ctx, Trade{
			Price:      maker.Price,
			Volume:     volume,
			IncomingID: ev.ID(),
			RestingID:  maker.ID,
		}, done)
		residual -= volume
	}
}

// processMarketOrder sweeps the opposite limit queue at its best prices.
// Volume left once the queue is empty is dropped.
func (e *Engine) processMarketOrder(ctx context.Context, id int64, side Side, volume int64, done *Done) {
	ctx, span := otel.StartEngineSpan(ctx, otel.SpanMatchOrder,
		attribute.Int64(otel.AttributeOrderID, id),
		attribute.String(otel.AttributeOrderType, string(TypeMarket)),
	)
	defer span.End()

	logger := logging.FromContext(ctx)
	_, opposite := e.limitQueues(side)

	if opposite.Len() == 0 {
		logger.Warn().
			Int64("order_id", id).
			Str("queue", opposite.Name()).
			Msg("No orders in opposite queue, cannot execute market order")
		e.metrics.RecordRejected(ctx, string(TypeMarket), "no_liquidity")
		return
	}

	residual := volume
	for residual > 0 && opposite.Len() > 0 {
		maker := mustPop(opposite)
		traded := maker.Volume
		if maker.Volume > residual {
			traded = residual
			e.rest(ctx, opposite, maker.Price, maker.ID, maker.Volume-residual)
		}

		e.recordTrade(ctx, Trade{
			Price:      maker.Price,
			Volume:     traded,
			IncomingID: id,
			RestingID:  maker.ID,
		}, done)
		residual -= traded
	}

	if residual > 0 {
		logger.Info().
			Int64("order_id", id).
			Int64("dropped", residual).
			Msg("Market order exhausted the book, residual dropped")
	}
}

func (e *Engine) processStopOrder(ctx context.Context, ev *OrderEvent) {
	e.rest(ctx, e.stopQueue(ev.Side()), ev.Price(), ev.ID(), ev.Volume())
}

// processCancel looks for the target in buy limit, sell limit, buy stop and
// sell stop queues, in that order, and cancels the first hit.
func (e *Engine) processCancel(ctx context.Context, ev *OrderEvent, done *Done) error {
	logger := logging.FromContext(ctx)

	for _, q := range e.queues() {
		err := q.Cancel(ev.Target())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		done.appendCanceled(ev.Target())
		logger.Info().
			Int64("order_id", ev.Target()).
			Str("queue", q.Name()).
			Msg("Cancelled order")
		return nil
	}

	logger.Warn().Int64("order_id", ev.Target()).Msg("Order to cancel not found in any queue")
	e.metrics.RecordRejected(ctx, string(TypeCancel), "not_found")
	return fmt.Errorf("%w: cancel target %d", ErrNotFound, ev.Target())
}

// runStopCascade converts eligible stops to market orders until neither stop
// queue is eligible against the latest trade price. Each market order may
// move the last price, so eligibility is re-read every iteration.
func (e *Engine) runStopCascade(ctx context.Context, done *Done) {
	ctx, span := otel.StartEngineSpan(ctx, otel.SpanStopCascade)
	defer span.End()

	logger := logging.FromContext(ctx)
	triggered := 0

	for {
		last, ok := e.trades.LastPrice()
		if !ok {
			break
		}

		stop, ok := e.nextTriggeredStop(last)
		if !ok {
			break
		}

		triggered++
		done.appendActivated(stop.ID)
		e.metrics.RecordStopTriggered(ctx, stop.Side.String())
		logger.Info().
			Int64("order_id", stop.ID).
			Str("side", stop.Side.String()).
			Str("stop_price", FormatPrice(stop.Price)).
			Str("last_price", FormatPrice(last)).
			Msg("Stop order triggered")

		e.processMarketOrder(ctx, stop.ID, stop.Side, stop.Volume, done)
	}

	otel.AddAttributes(span, attribute.Int(otel.AttributeStopsTriggered, triggered))
}

// nextTriggeredStop removes and returns the next stop to fire at last.
// A buy stop is eligible when its price <= last, a sell stop when its price
// >= last. When both queues are eligible the earlier id wins and the other
// candidate goes back unchanged. Equal best stop prices alone are not a
// conflict.
func (e *Engine) nextTriggeredStop(last fpdecimal.Decimal) (Resting, bool) {
	buyEligible := e.buyStop.Len() > 0 && mustPeekPrice(e.buyStop).LessThanOrEqual(last)
	sellEligible := e.sellStop.Len() > 0 && mustPeekPrice(e.sellStop).GreaterThanOrEqual(last)

	switch {
	case buyEligible && sellEligible:
		buy := selectStopCandidate(e.buyStop)
		sell := selectStopCandidate(e.sellStop)
		if buy.ID < sell.ID {
			e.sellStop.Insert(sell.Price, sell.ID, sell.Volume)
			return buy, true
		}
		e.buyStop.Insert(buy.Price, buy.ID, buy.Volume)
		return sell, true
	case buyEligible:
		return selectStopCandidate(e.buyStop), true
	case sellEligible:
		return selectStopCandidate(e.sellStop), true
	}
	return Resting{}, false
}

// selectStopCandidate pops as many entries as the queue held when called,
// keeps the one with the smallest id and puts the rest back.
//
// The batch is bounded by the count only, not by price, so a stop that is
// not yet eligible can be chosen when it is older than the eligible head.
func selectStopCandidate(q *OrderQueue) Resting {
	n := q.Len()
	popped := make([]Resting, 0, n)
	for i := 0; i < n; i++ {
		popped = append(popped, mustPop(q))
	}

	best := 0
	for i := range popped {
		if popped[i].ID < popped[best].ID {
			best = i
		}
	}

	for i, r := range popped {
		if i != best {
			q.Insert(r.Price, r.ID, r.Volume)
		}
	}
	return popped[best]
}

func (e *Engine) recordTrade(ctx context.Context, t Trade, done *Done) {
	e.trades.Append(t)
	done.appendTrade(t)
	e.metrics.RecordTrade(ctx, t.Volume)

	logger := logging.FromContext(ctx)
	logger.Info().
		Int64("incoming_id", t.IncomingID).
		Int64("resting_id", t.RestingID).
		Int64("volume", t.Volume).
		Str("price", FormatPrice(t.Price)).
		Msg("Trade executed")

	if e.sender == nil {
		return
	}
	if err := e.sender.SendTrade(ctx, toTradeRecord(t)); err != nil {
		logger.Error().Err(err).Msg("Failed to send trade")
	}
}

func (e *Engine) rest(ctx context.Context, q *OrderQueue, price fpdecimal.Decimal, id, volume int64) {
	q.Insert(price, id, volume)

	logger := logging.FromContext(ctx)
	logger.Debug().
		Str("queue", q.Name()).
		Int64("order_id", id).
		Int64("volume", volume).
		Str("price", FormatPrice(price)).
		Msg("Order queued")
}

func (e *Engine) isResting(ev *OrderEvent) bool {
	switch ev.Type() {
	case TypeLimit:
		own, _ := e.limitQueues(ev.Side())
		return own.Contains(ev.ID())
	case TypeStop:
		return e.stopQueue(ev.Side()).Contains(ev.ID())
	}
	return false
}

// limitQueues returns the limit queue of side and the one it matches against
func (e *Engine) limitQueues(side Side) (own, opposite *OrderQueue) {
	if side == Buy {
		return e.buyLimit, e.sellLimit
	}
	return e.sellLimit, e.buyLimit
}

func (e *Engine) stopQueue(side Side) *OrderQueue {
	if side == Buy {
		return e.buyStop
	}
	return e.sellStop
}

// queues returns all queues in cancel search order
func (e *Engine) queues() []*OrderQueue {
	return []*OrderQueue{e.buyLimit, e.sellLimit, e.buyStop, e.sellStop}
}

// crosses reports whether an order on side with limit price can trade
// against an opposite best price of best
func crosses(side Side, limit, best fpdecimal.Decimal) bool {
	if side == Buy {
		return best.LessThanOrEqual(limit)
	}
	return best.GreaterThanOrEqual(limit)
}

// mustPop and mustPeekPrice are only called behind a Len() guard. An empty
// queue here means the books are corrupt.
func mustPop(q *OrderQueue) Resting {
	r, err := q.PopBest()
	if err != nil {
		panic(fmt.Errorf("matching invariant violated: %w", err))
	}
	return r
}

func mustPeekPrice(q *OrderQueue) fpdecimal.Decimal {
	p, err := q.PeekBestPrice()
	if err != nil {
		panic(fmt.Errorf("matching invariant violated: %w", err))
	}
	return p
}

// BuyQueue returns the resting buy limit queue. Not safe to use while Submit runs.
func (e *Engine) BuyQueue() *OrderQueue { return e.buyLimit }

// SellQueue returns the resting sell limit queue. Not safe to use while Submit runs.
func (e *Engine) SellQueue() *OrderQueue { return e.sellLimit }

// BuyStopQueue returns the buy stop queue. Not safe to use while Submit runs.
func (e *Engine) BuyStopQueue() *OrderQueue { return e.buyStop }

// SellStopQueue returns the sell stop queue. Not safe to use while Submit runs.
func (e *Engine) SellStopQueue() *OrderQueue { return e.sellStop }

// Trades returns a copy of the trade log
func (e *Engine) Trades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trades.Trades()
}

// Snapshot summarizes book state
type Snapshot struct {
	BuyOrders      int
	SellOrders     int
	BuyStops       int
	SellStops      int
	Trades         int
	BestBid        fpdecimal.Decimal
	HasBid         bool
	BestAsk        fpdecimal.Decimal
	HasAsk         bool
	LastTradePrice fpdecimal.Decimal
	HasLastTrade   bool
}

// Snapshot returns counts and best prices under the engine lock
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		BuyOrders:  e.buyLimit.Len(),
		SellOrders: e.sellLimit.Len(),
		BuyStops:   e.buyStop.Len(),
		SellStops:  e.sellStop.Len(),
		Trades:     e.trades.Len(),
	}
	if p, err := e.buyLimit.PeekBestPrice(); err == nil {
		s.BestBid, s.HasBid = p, true
	}
	if p, err := e.sellLimit.PeekBestPrice(); err == nil {
		s.BestAsk, s.HasAsk = p, true
	}
	s.LastTradePrice, s.HasLastTrade = e.trades.LastPrice()
	return s
}

// String implements fmt.Stringer interface
func (e *Engine) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	builder := strings.Builder{}
	for _, q := range []*OrderQueue{e.sellLimit, e.buyLimit, e.buyStop, e.sellStop} {
		builder.WriteString(q.String())
		builder.WriteString("\n")
	}
	return builder.String()
}
