// Package middleware provides the gin middleware stack for the docchat
// server: request IDs, structured request logging, and panic recovery.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docchat/pkg/id"
)

// HeaderXRequestID is the header name for the request ID.
const HeaderXRequestID = "X-Request-ID"

// requestIDKey is the context key type for the request ID.
type requestIDKey struct{}

// GetRequestID returns the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestID returns a middleware that adds a unique request ID to each
// request. An inbound X-Request-ID header is kept so IDs survive proxies;
// otherwise a fresh ULID is generated. The ID is added to:
//   - Response header (X-Request-ID)
//   - Request context (can be retrieved with GetRequestID)
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = id.New()
		}

		c.Header(HeaderXRequestID, requestID)

		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
