// Package telemetry wires OpenTelemetry metrics with a Prometheus exporter.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

const meterName = "tts-gateway"

// Metrics bundles the gateway's instruments. All record methods are safe for
// concurrent use.
type Metrics struct {
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	synthRequests metric.Int64Counter
	synthDuration metric.Float64Histogram
	jobsProcessed   metric.Int64Counter
	fallbacks       metric.Int64Counter
	lockContentions metric.Int64Counter
}

// Setup initializes the meter provider, registers it globally and returns
// the instruments, the /metrics handler and a shutdown function.
func Setup(serviceName string) (*Metrics, http.Handler, func(context.Context) error, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	metrics, err := newMetrics()
	if err != nil {
		return nil, nil, nil, err
	}

	return metrics, promhttp.Handler(), provider.Shutdown, nil
}

// NewForTesting builds instruments against an isolated provider so tests do
// not touch global state.
func NewForTesting() (*Metrics, error) {
	provider := sdkmetric.NewMeterProvider()

	return newMetricsFrom(provider.Meter(meterName))
}

func newMetrics() (*Metrics, error) {
	return newMetricsFrom(otel.Meter(meterName))
}

func newMetricsFrom(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	m.cacheHits, err = meter.Int64Counter("tts_cache_hits_total",
		metric.WithDescription("Audio cache hits"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hit counter: %w", err)
	}

	m.cacheMisses, err = meter.Int64Counter("tts_cache_misses_total",
		metric.WithDescription("Audio cache misses"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache miss counter: %w", err)
	}

	m.synthRequests, err = meter.Int64Counter("tts_synth_requests_total",
		metric.WithDescription("Synthesis backend requests by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis counter: %w", err)
	}

	m.synthDuration, err = meter.Float64Histogram("tts_synth_duration_seconds",
		metric.WithDescription("Synthesis backend request duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis histogram: %w", err)
	}

	m.jobsProcessed, err = meter.Int64Counter("tts_jobs_processed_total",
		metric.WithDescription("Queue jobs processed by queue and outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create job counter: %w", err)
	}

	m.fallbacks, err = meter.Int64Counter("tts_proxy_fallbacks_total",
		metric.WithDescription("Synchronous syntheses performed because a lock holder never delivered"))
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	m.lockContentions, err = meter.Int64Counter("tts_lock_contentions_total",
		metric.WithDescription("Synthesis lock acquisitions lost to another owner"))
	if err != nil {
		return nil, fmt.Errorf("failed to create lock contention counter: %w", err)
	}

	return &m, nil
}

// RecordCacheHit counts a cache hit on the synchronous path.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	m.cacheHits.Add(ctx, 1)
}

// RecordCacheMiss counts a cache miss on the synchronous path.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	m.cacheMisses.Add(ctx, 1)
}

// RecordSynthesis counts a backend request and its duration. Outcome is
// "ok", "retrying", "invalid_audio", "timeout" or "error".
func (m *Metrics) RecordSynthesis(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	m.synthRequests.Add(ctx, 1, attrs)
	m.synthDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordJob counts a processed queue job. Outcome is "stored", "cached",
// "skipped", "retried" or "dropped".
func (m *Metrics) RecordJob(ctx context.Context, queue, outcome string) {
	m.jobsProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.String("outcome", outcome),
	))
}

// RecordFallback counts a synchronous fallback synthesis.
func (m *Metrics) RecordFallback(ctx context.Context) {
	m.fallbacks.Add(ctx, 1)
}

// RecordLockContention counts a lost lock acquisition. Source is "proxy" or
// "worker".
func (m *Metrics) RecordLockContention(ctx context.Context, source string) {
	m.lockContentions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
