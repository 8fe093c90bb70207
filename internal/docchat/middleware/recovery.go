package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/utils/response"
)

// Recovery returns a middleware that recovers from panics.
// It converts panics to JSON error responses using the error code system.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", fmt.Sprintf("%v", r),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)

				resp := response.Err(errors.ErrPanic).
					WithRequestID(GetRequestID(c.Request.Context()))
				c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
				response.Release(resp)
			}
		}()
		c.Next()
	}
}
