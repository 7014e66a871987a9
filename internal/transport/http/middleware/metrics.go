package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts requests by method, route pattern and status. The scrape
// endpoint itself is not counted.
func Metrics(requests *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		defer func() {
			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		}()
		c.Next()
	}
}
