package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// engineMetrics publishes the hot counters to the configured meter
// provider. Instrument creation failures are logged and leave the
// instrument nil; recording tolerates that.
type engineMetrics struct {
	requests  metric.Int64Counter
	cacheHits metric.Int64Counter
	cacheMiss metric.Int64Counter
	latency   metric.Float64Histogram
}

func newEngineMetrics(log *slog.Logger) *engineMetrics {
	meter := otel.Meter("github.com/kotobalabs/kotoba-tts/engine")
	m := &engineMetrics{}

	var err error
	if m.requests, err = meter.Int64Counter("tts.requests",
		metric.WithDescription("Synthesis requests by status")); err != nil {
		log.Warn("failed to create request counter", slog.String("error", err.Error()))
	}
	if m.cacheHits, err = meter.Int64Counter("tts.cache.hits",
		metric.WithDescription("Result cache hits")); err != nil {
		log.Warn("failed to create cache hit counter", slog.String("error", err.Error()))
	}
	if m.cacheMiss, err = meter.Int64Counter("tts.cache.misses",
		metric.WithDescription("Result cache misses")); err != nil {
		log.Warn("failed to create cache miss counter", slog.String("error", err.Error()))
	}
	if m.latency, err = meter.Float64Histogram("tts.request.duration",
		metric.WithDescription("Synthesis latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		log.Warn("failed to create latency histogram", slog.String("error", err.Error()))
	}
	return m
}

func (m *engineMetrics) recordRequest(status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	if m.requests != nil {
		m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
	}
	if m.latency != nil {
		m.latency.Record(ctx, float64(elapsed.Microseconds())/1000.0)
	}
}

func (m *engineMetrics) recordCacheHit() {
	if m != nil && m.cacheHits != nil {
		m.cacheHits.Add(context.Background(), 1)
	}
}

func (m *engineMetrics) recordCacheMiss() {
	if m != nil && m.cacheMiss != nil {
		m.cacheMiss.Add(context.Background(), 1)
	}
}
