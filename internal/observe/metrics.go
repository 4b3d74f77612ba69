// Package observe provides application-wide observability primitives for
// Glyphoxa: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Glyphoxa metrics.
const meterName = "github.com/MrWong99/glyphoxa"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ASRDuration tracks recognizer invocation latency per chunk (§4.4 step 5).
	ASRDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// CensorPatches counts delay-line patches applied, by censor mode
	// (mute/reverse). Use with attribute: attribute.String("mode", ...)
	CensorPatches metric.Int64Counter

	// LeakedFrames counts frames a censor patch could not cover because the
	// read cursor had already played them out (§7 Censor miss).
	LeakedFrames metric.Int64Counter

	// SkippedHits counts profanity hits dropped because the delay line was
	// underrun at patch time (§4.5 step 5, BufferUnderrun suppression).
	SkippedHits metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Instantaneous gauges ---

	// DelayLineFill reports the delay line's current fill level in seconds.
	DelayLineFill metric.Float64Gauge

	// GateState reports the playback gate's current state as its ordinal
	// value (Warming=0, Playing=1, Paused=2).
	GateState metric.Int64Gauge

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// asrDurationBuckets defines histogram bucket boundaries (in seconds) sized
// around a 5-second analysis chunk (§4.4): recognition should complete well
// within the chunk it covers, or the worker falls behind real time.
var asrDurationBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ASRDuration, err = m.Float64Histogram("glyphoxa.asr.duration",
		metric.WithDescription("Latency of recognizer invocations per analysis chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(asrDurationBuckets...),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("glyphoxa.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.CensorPatches, err = m.Int64Counter("glyphoxa.censor.patches",
		metric.WithDescription("Total delay-line patches applied, by censor mode."),
	); err != nil {
		return nil, err
	}
	if met.LeakedFrames, err = m.Int64Counter("glyphoxa.censor.leaked_frames",
		metric.WithDescription("Total frames of a profanity hit already played out before the patch could cover them."),
	); err != nil {
		return nil, err
	}
	if met.SkippedHits, err = m.Int64Counter("glyphoxa.censor.skipped_hits",
		metric.WithDescription("Total profanity hits dropped due to a buffer underrun at patch time."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("glyphoxa.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	if met.DelayLineFill, err = m.Float64Gauge("glyphoxa.delayline.fill_seconds",
		metric.WithDescription("Current fill level of the delay line, in seconds."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.GateState, err = m.Int64Gauge("glyphoxa.gate.state",
		metric.WithDescription("Current playback gate state (0=Warming, 1=Playing, 2=Paused)."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("glyphoxa.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordASRDuration is a convenience method that records an ASR invocation's
// latency.
func (m *Metrics) RecordASRDuration(ctx context.Context, seconds float64) {
	m.ASRDuration.Record(ctx, seconds)
}

// RecordCensorPatch is a convenience method that records a delay-line patch,
// tagged by censor mode ("mute" or "reverse").
func (m *Metrics) RecordCensorPatch(ctx context.Context, mode string) {
	m.CensorPatches.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordLeakedFrames is a convenience method that records frames a censor
// patch could not cover.
func (m *Metrics) RecordLeakedFrames(ctx context.Context, count int64) {
	if count <= 0 {
		return
	}
	m.LeakedFrames.Add(ctx, count)
}

// RecordSkippedHit is a convenience method that records a profanity hit
// dropped due to a buffer underrun at patch time.
func (m *Metrics) RecordSkippedHit(ctx context.Context) {
	m.SkippedHits.Add(ctx, 1)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// ObserveDelayLineFill is a convenience method that records the delay line's
// current fill level.
func (m *Metrics) ObserveDelayLineFill(ctx context.Context, seconds float64) {
	m.DelayLineFill.Record(ctx, seconds)
}

// ObserveGateState is a convenience method that records the playback gate's
// current state as its ordinal value.
func (m *Metrics) ObserveGateState(ctx context.Context, state int64) {
	m.GateState.Record(ctx, state)
}
