// Package observe provides application-wide observability primitives for
// Babelroom: OpenTelemetry metrics, tracing, the category debug sink, and
// HTTP middleware for the metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Babelroom metrics.
const meterName = "github.com/babelroom/babelroom"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// StageDuration tracks per-stage pipeline latency. Use with attribute:
	//   attribute.String("stage", "stt"|"translate"|"tts")
	StageDuration metric.Float64Histogram

	// UtteranceDuration tracks end-to-end latency from segment detach to the
	// last response emitted.
	UtteranceDuration metric.Float64Histogram

	// --- Counters ---

	// CacheRequests counts deduplication cache lookups. Use with attributes:
	//   attribute.String("cache", "stt"|"translation"|"tts"),
	//   attribute.String("outcome", "hit"|"miss"|"coalesced")
	CacheRequests metric.Int64Counter

	// UtterancesProcessed counts segments that produced a transcript.
	UtterancesProcessed metric.Int64Counter

	// UtterancesDropped counts segments discarded before a transcript. Use
	// with attribute:
	//   attribute.String("reason", "silent"|"short"|"empty"|"hallucination"|"filler")
	UtterancesDropped metric.Int64Counter

	// FanoutTasks counts fan-out task completions. Use with attributes:
	//   attribute.String("kind", "translate"|"tts"),
	//   attribute.String("result", "ok"|"error"|"skipped")
	FanoutTasks metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live streaming sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveRooms tracks the number of rooms with at least one session.
	ActiveRooms metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time on the metrics
	// listener. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("babelroom.pipeline.stage.duration",
		metric.WithDescription("Latency of one pipeline stage by stage name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("babelroom.utterance.duration",
		metric.WithDescription("End-to-end latency from segment detach to last emission."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CacheRequests, err = m.Int64Counter("babelroom.cache.requests",
		metric.WithDescription("Deduplication cache lookups by cache and outcome."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesProcessed, err = m.Int64Counter("babelroom.utterances.processed",
		metric.WithDescription("Segments that produced a transcript."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesDropped, err = m.Int64Counter("babelroom.utterances.dropped",
		metric.WithDescription("Segments discarded before a transcript, by reason."),
	); err != nil {
		return nil, err
	}
	if met.FanoutTasks, err = m.Int64Counter("babelroom.fanout.tasks",
		metric.WithDescription("Translation/TTS fan-out task completions by kind and result."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("babelroom.active_sessions",
		metric.WithDescription("Number of live streaming sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveRooms, err = m.Int64UpDownCounter("babelroom.active_rooms",
		metric.WithDescription("Number of rooms with at least one session."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("babelroom.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordStage records one pipeline stage duration.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordCacheRequest records a cache lookup outcome.
func (m *Metrics) RecordCacheRequest(ctx context.Context, cache, outcome string) {
	m.CacheRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("cache", cache),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordDrop records a segment discarded before transcription completed.
func (m *Metrics) RecordDrop(ctx context.Context, reason string) {
	m.UtterancesDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordFanoutTask records one fan-out task completion.
func (m *Metrics) RecordFanoutTask(ctx context.Context, kind, result string) {
	m.FanoutTasks.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("result", result),
		),
	)
}
