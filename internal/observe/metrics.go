// Package observe provides application-wide observability primitives for
// Docviet: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all Docviet metrics.
const meterName = "github.com/nmtri/docviet"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use, the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// GradingDuration tracks end-to-end grading latency, including the model
	// round trip and response parsing.
	GradingDuration metric.Float64Histogram

	// NarrationDuration tracks text-to-speech synthesis latency per channel.
	NarrationDuration metric.Float64Histogram

	// ChatDuration tracks tutor chat completion latency.
	ChatDuration metric.Float64Histogram

	// CreativeDuration tracks reward-illustration generation latency.
	CreativeDuration metric.Float64Histogram

	// --- Counters ---

	// ModelRequests counts outbound model API calls. Use with attributes:
	//   attribute.String("model", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ModelRequests metric.Int64Counter

	// ModelErrors counts model failures. Use with attributes:
	//   attribute.String("model", ...), attribute.String("kind", ...), attribute.String("cause", ...)
	ModelErrors metric.Int64Counter

	// NarrationOutcomes counts narration attempts per channel and outcome.
	// Use with attributes:
	//   attribute.String("channel", ...), attribute.String("outcome", ...)
	NarrationOutcomes metric.Int64Counter

	// ParseFallbacks counts grader responses that could not be parsed as JSON
	// or labeled lines and fell through to the default verdict.
	// Use with attribute: attribute.String("kind", ...)
	ParseFallbacks metric.Int64Counter

	// GradesAwarded counts graded submissions by kind and score band.
	// Use with attributes:
	//   attribute.String("kind", ...), attribute.String("band", ...)
	GradesAwarded metric.Int64Counter

	// --- Gauges ---

	// ActiveNarrations tracks the number of narration requests currently
	// being synthesised.
	ActiveNarrations metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Grading
// and narration both involve a remote model round trip, so the buckets skew
// towards the 0.5s..10s range.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 3.5, 5, 7.5, 10, 20,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.GradingDuration, err = m.Float64Histogram("docviet.grading.duration",
		metric.WithDescription("Latency of a grading request end to end."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NarrationDuration, err = m.Float64Histogram("docviet.narration.duration",
		metric.WithDescription("Latency of narration synthesis by channel."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChatDuration, err = m.Float64Histogram("docviet.chat.duration",
		metric.WithDescription("Latency of tutor chat completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CreativeDuration, err = m.Float64Histogram("docviet.creative.duration",
		metric.WithDescription("Latency of reward illustration generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModelRequests, err = m.Int64Counter("docviet.model.requests",
		metric.WithDescription("Total model API requests by model, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ModelErrors, err = m.Int64Counter("docviet.model.errors",
		metric.WithDescription("Total model errors by model, kind, and cause."),
	); err != nil {
		return nil, err
	}
	if met.NarrationOutcomes, err = m.Int64Counter("docviet.narration.outcomes",
		metric.WithDescription("Narration attempts by channel and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ParseFallbacks, err = m.Int64Counter("docviet.grading.parse_fallbacks",
		metric.WithDescription("Grader responses that fell through to the default verdict."),
	); err != nil {
		return nil, err
	}
	if met.GradesAwarded, err = m.Int64Counter("docviet.grading.grades",
		metric.WithDescription("Graded submissions by kind and score band."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveNarrations, err = m.Int64UpDownCounter("docviet.active_narrations",
		metric.WithDescription("Number of narration requests currently being synthesised."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("docviet.http.request.duration",
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

// RecordModelRequest records a model request counter increment with the
// standard attribute set.
func (m *Metrics) RecordModelRequest(ctx context.Context, model, kind, status string) {
	m.ModelRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordModelError records a model error counter increment. The cause
// attribute distinguishes transport failures from empty or malformed
// responses.
func (m *Metrics) RecordModelError(ctx context.Context, model, kind, cause string) {
	m.ModelErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", kind),
			attribute.String("cause", cause),
		),
	)
}

// RecordNarrationOutcome records a narration attempt for a channel with its
// outcome ("ok", "error", or "skipped").
func (m *Metrics) RecordNarrationOutcome(ctx context.Context, channel, outcome string) {
	m.NarrationOutcomes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordParseFallback records a grader response that fell through to the
// default verdict for the given submission kind.
func (m *Metrics) RecordParseFallback(ctx context.Context, kind string) {
	m.ParseFallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordGrade records an awarded grade, bucketing the score into a coarse
// band so the attribute cardinality stays low.
func (m *Metrics) RecordGrade(ctx context.Context, kind string, score int) {
	m.GradesAwarded.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("band", scoreBand(score)),
		),
	)
}

func scoreBand(score int) string {
	switch {
	case score >= 9:
		return "excellent"
	case score >= 7:
		return "good"
	case score >= 5:
		return "fair"
	default:
		return "needs_work"
	}
}
