package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vopenia-io/meet/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestLoggerMiddleware tags each request with an id and logs its outcome.
func RequestLoggerMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		if p := Principal(c); p.IsAuthenticated() {
			ctx = logger.WithUserID(ctx, string(p.ID))
		}
		cl.LogRequest(ctx, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}
