package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docchat/internal/transport/http/response"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = response.RequestIDKey
)

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it
// on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
