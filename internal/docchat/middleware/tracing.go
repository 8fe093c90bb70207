package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/docchat/pkg/tracing"
)

// tracerName identifies the HTTP server spans.
const tracerName = "github.com/kart-io/docchat/internal/docchat/middleware"

// Tracing returns a middleware that opens one server span per request.
// Incoming W3C Trace Context headers are honored so spans join the caller's
// trace; the span context flows into the request so downstream stages and
// outbound provider calls attach as children. Probe endpoints passed in
// skipPaths are not traced.
func Tracing(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(
			c.Request.Context(),
			propagation.HeaderCarrier(c.Request.Header),
		)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracing.StartSpanWithKind(ctx, tracerName,
			fmt.Sprintf("%s %s", c.Request.Method, route), trace.SpanKindServer)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(c.Request.Method),
			semconv.HTTPRoute(route),
			semconv.HTTPTarget(c.Request.URL.Path),
			semconv.ServerAddress(c.Request.Host),
		}
		if requestID := GetRequestID(ctx); requestID != "" {
			attrs = append(attrs, attribute.String("http.request_id", requestID))
		}
		span.SetAttributes(attrs...)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
