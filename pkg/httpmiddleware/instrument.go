package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument returns a middleware that wraps the handler with OpenTelemetry
// HTTP instrumentation (server spans plus the standard http.server metrics)
// using the application's telemetry providers.
func Instrument(serviceName string, m *app.Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}

// CountRequests returns a middleware recording a per-route request counter.
// Metric errors are ignored; a broken meter must not take down the server.
func CountRequests(m *app.Telemetry) Middleware {
	meter := m.MeterProvider().Meter("httpmiddleware")
	counter, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of handled HTTP requests"),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if err != nil {
				return
			}
			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.Int("http.status_code", rec.status),
			}
			if span := trace.SpanFromContext(r.Context()); span.SpanContext().HasTraceID() {
				attrs = append(attrs, attribute.Bool("traced", true))
			}
			counter.Add(r.Context(), 1, metric.WithAttributes(attrs...))
		})
	}
}
