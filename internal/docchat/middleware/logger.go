package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/pkg/tracing"
)

// Logger returns a middleware that logs one structured line per request.
// Probe endpoints passed in skipPaths are not logged.
func Logger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		}
		if requestID := GetRequestID(c.Request.Context()); requestID != "" {
			fields = append(fields, "request_id", requestID)
		}
		if traceID := tracing.TraceIDFromContext(c.Request.Context()); traceID != "" {
			fields = append(fields, "trace_id", traceID)
		}
		logger.Infow("HTTP Request", fields...)
	}
}
