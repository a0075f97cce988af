package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	defaultEngineMetrics     *EngineMetrics
	defaultEngineMetricsOnce sync.Once
)

// EngineMetrics holds the counters recorded by the matching engine.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	eventsTotal    metric.Int64Counter
	rejectedTotal  metric.Int64Counter
	tradesTotal    metric.Int64Counter
	volumeTotal    metric.Int64Counter
	stopsTriggered metric.Int64Counter
}

// NewEngineMetrics creates the engine instruments on meter
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	eventsTotal, err := meter.Int64Counter(
		"engine.events.total",
		metric.WithDescription("Total number of order events submitted"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	rejectedTotal, err := meter.Int64Counter(
		"engine.events.rejected.total",
		metric.WithDescription("Total number of order events rejected or not applied"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	tradesTotal, err := meter.Int64Counter(
		"engine.trades.total",
		metric.WithDescription("Total number of trades executed"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return nil, err
	}

	volumeTotal, err := meter.Int64Counter(
		"engine.traded_volume.total",
		metric.WithDescription("Total volume executed"),
		metric.WithUnit("{share}"),
	)
	if err != nil {
		return nil, err
	}

	stopsTriggered, err := meter.Int64Counter(
		"engine.stops.triggered.total",
		metric.WithDescription("Total number of stop orders converted to market orders"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		eventsTotal:    eventsTotal,
		rejectedTotal:  rejectedTotal,
		tradesTotal:    tradesTotal,
		volumeTotal:    volumeTotal,
		stopsTriggered: stopsTriggered,
	}, nil
}

// DefaultEngineMetrics returns engine metrics bound to the configured meter provider
func DefaultEngineMetrics() *EngineMetrics {
	defaultEngineMetricsOnce.Do(func() {
		m, err := NewEngineMetrics(GetMeterProvider().Meter(instrumentationName))
		if err != nil {
			return
		}
		defaultEngineMetrics = m
	})
	return defaultEngineMetrics
}

// RecordEvent counts a submitted event by type
func (m *EngineMetrics) RecordEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("order.type", eventType)))
}

// RecordRejected counts an event that was not applied, labelled with reason
func (m *EngineMetrics) RecordRejected(ctx context.Context, eventType, reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order.type", eventType),
		attribute.String("reason", reason),
	))
}

// RecordTrade counts one execution and its volume
func (m *EngineMetrics) RecordTrade(ctx context.Context, volume int64) {
	if m == nil {
		return
	}
	m.tradesTotal.Add(ctx, 1)
	m.volumeTotal.Add(ctx, volume)
}

// RecordStopTriggered counts a stop converted to a market order
func (m *EngineMetrics) RecordStopTriggered(ctx context.Context, side string) {
	if m == nil {
		return
	}
	m.stopsTriggered.Add(ctx, 1, metric.WithAttributes(attribute.String("order.side", side)))
}
