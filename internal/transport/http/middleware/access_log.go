package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/platform/logger"
)

func AccessLog(log *logger.Logger) gin.HandlerFunc {
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		// deferred so aborted streams are logged too
		defer func() {
			log.Info("request",
				"request_id", c.GetString(RequestIDKey),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", c.Writer.Status(),
				"bytes", c.Writer.Size(),
				"latency_ms", float64(time.Since(start).Microseconds())/1000,
			)
		}()
		c.Next()
	}
}
