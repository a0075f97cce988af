package otel

import (
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
)

// StartRuntimeMetrics starts Go runtime metrics collection (memory, GC,
// goroutines) on the configured meter provider.
func StartRuntimeMetrics() error {
	return runtime.Start(
		runtime.WithMeterProvider(GetMeterProvider()),
		runtime.WithMinimumReadMemStatsInterval(30*time.Second),
	)
}
