package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Span names
	SpanSubmitEvent = "submit_event"
	SpanMatchOrder  = "match_order"
	SpanStopCascade = "stop_cascade"

	// Attribute keys
	AttributeOrderID        = "order.id"
	AttributeOrderSide      = "order.side"
	AttributeOrderType      = "order.type"
	AttributeOrderVolume    = "order.volume"
	AttributeOrderPrice     = "order.price"
	AttributeCancelTarget   = "order.cancel_target"
	AttributeExecutedVolume = "order.executed_volume"
	AttributeRemainingVol   = "order.remaining_volume"
	AttributeTradeCount     = "trade.count"
	AttributeStopsTriggered = "stop.triggered_count"
)

// StartEngineSpan starts a new span on the matching engine tracer
func StartEngineSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetMatchingEngineTracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}
