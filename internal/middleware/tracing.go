package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/CSroseX/blocking-api-server/internal/middleware"

// Tracing starts a server span per request, continuing any W3C trace
// context the caller sent.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		sc := capture(w)
		next.ServeHTTP(sc, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", sc.statusCode))
		if sc.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sc.statusCode))
		}
	})
}
