package observe

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder captures the status code the downstream handler writes.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware wraps the API mux with the request-scoped observability docviet
// needs: W3C trace propagation in and out, one server span per request, an
// X-Correlation-ID response header (the trace ID, what support asks parents
// for), the HTTP duration histogram, and a completion log line.
//
// Metric and span route labels come from the matched ServeMux pattern, not
// the raw URL, so "/api/progress/an" and "/api/progress/binh" land in one
// series. Requests that match no route are labelled "unmatched".
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			// The route is only known after the mux matched, so the span
			// starts under a method-only name and is renamed below.
			ctx, span := StartSpan(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			cid := CorrelationID(ctx)
			if cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			r = r.WithContext(ctx)
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			// The mux filled in r.Pattern while routing.
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			act := activity(route)

			span.SetName("HTTP " + route)
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(rec.statusCode),
				attribute.String("docviet.activity", act),
			)

			duration := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, duration.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("route", route),
					attribute.String("activity", act),
				),
			)

			slog.LogAttrs(ctx, slog.LevelInfo, "request completed",
				slog.String("trace_id", cid),
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.String("activity", act),
				slog.Int("status", rec.statusCode),
				slog.Duration("duration", duration),
			)
		})
	}
}

// activity groups routes by the part of the app they serve, the dimension
// dashboards slice on: a slow morning is usually one backend (grading,
// narration, chat) rather than one endpoint.
func activity(route string) string {
	path := route
	if _, p, ok := strings.Cut(route, " "); ok {
		path = p
	}
	switch {
	case strings.HasPrefix(path, "/api/grade/"):
		return "grading"
	case path == "/api/narrate":
		return "narration"
	case path == "/api/chat":
		return "chat"
	case strings.HasPrefix(path, "/api/creative/"):
		return "creative"
	case strings.HasPrefix(path, "/api/exercise/"):
		return "exercise"
	case strings.HasPrefix(path, "/api/progress"):
		return "progress"
	case path == "/healthz" || path == "/readyz" || path == "/metrics":
		return "ops"
	default:
		return "other"
	}
}
