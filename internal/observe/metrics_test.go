package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestGradingDurationObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.GradingDuration.Record(ctx, 1.8,
		metric.WithAttributes(attribute.String("kind", "reading")))
	m.GradingDuration.Record(ctx, 2.3,
		metric.WithAttributes(attribute.String("kind", "reading")))

	rm := collect(t, reader)
	met := findMetric(rm, "docviet.grading.duration")
	if met == nil {
		t.Fatal("docviet.grading.duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", met.Data)
	}
	if got := hist.DataPoints[0].Count; got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestRecordModelError_Attributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordModelError(ctx, "gemini-2.0-flash", "reading", "empty_response")

	rm := collect(t, reader)
	met := findMetric(rm, "docviet.model.errors")
	if met == nil {
		t.Fatal("docviet.model.errors not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", met.Data)
	}
	dp := sum.DataPoints[0]
	if dp.Value != 1 {
		t.Errorf("value = %d, want 1", dp.Value)
	}
	cause, _ := dp.Attributes.Value("cause")
	if cause.AsString() != "empty_response" {
		t.Errorf("cause = %q, want %q", cause.AsString(), "empty_response")
	}
}

func TestRecordNarrationOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordNarrationOutcome(ctx, "generative", "error")
	m.RecordNarrationOutcome(ctx, "local", "ok")

	rm := collect(t, reader)
	met := findMetric(rm, "docviet.narration.outcomes")
	if met == nil {
		t.Fatal("docviet.narration.outcomes not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", met.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("data points = %d, want 2", len(sum.DataPoints))
	}
}

func TestScoreBand(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{10, "excellent"},
		{9, "excellent"},
		{8, "good"},
		{7, "good"},
		{6, "fair"},
		{5, "fair"},
		{4, "needs_work"},
		{0, "needs_work"},
	}
	for _, tc := range tests {
		if got := scoreBand(tc.score); got != tc.want {
			t.Errorf("scoreBand(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
