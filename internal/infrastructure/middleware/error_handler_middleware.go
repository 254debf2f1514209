package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/pkg/errors"
	"github.com/vopenia-io/meet/pkg/logger"
)

func errorBody(appErr *errors.AppError) gin.H {
	body := gin.H{
		"status":  "error",
		"code":    string(appErr.Code),
		"message": appErr.Message,
	}
	if len(appErr.Context) > 0 {
		body["details"] = appErr.Context
	}
	return body
}

func abortWithError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, errorBody(appErr))
}

// ErrorHandlerMiddleware renders the last error attached to the context.
// Handlers report failures with c.Error and leave the response unwritten.
func ErrorHandlerMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()
		route := []zap.Field{
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		}

		if appErr := errors.GetAppError(err); appErr != nil {
			fields := append(route,
				zap.String("code", string(appErr.Code)),
				zap.Int("status", appErr.HTTPStatus),
			)
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				cl.LogError(ctx, appErr, appErr.Message, fields...)
			} else {
				cl.WithContext(ctx).Warn("request rejected", append(fields, zap.String("message", appErr.Message))...)
			}

			c.JSON(appErr.HTTPStatus, errorBody(appErr))
			return
		}

		cl.LogError(ctx, err, "unhandled error", route...)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"code":    string(errors.ErrCodeInternal),
			"message": "Internal server error",
		})
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				abortWithError(c, errors.NewInternalError("Internal server error"))
			}
		}()

		c.Next()
	}
}
