package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/internal/platform/logger"
	"docchat/internal/transport/http/response"
)

// Recovery turns panics into a 500 envelope. http.ErrAbortHandler is
// re-panicked so net/http drops the connection and a streamed body ends
// without its terminating chunk.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			log.Error("panic recovered", "request_id", c.GetString(RequestIDKey), "path", c.Request.URL.Path, "panic", rec)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "internal server error")
		}()
		c.Next()
	}
}
