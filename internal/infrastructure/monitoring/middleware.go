package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records request counts, latencies and sizes for every
// HTTP route. Paths are recorded by route template (/prefs/:ns/:key),
// not raw URL, so namespace and key values cannot blow up label
// cardinality.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/stream" {
			// A WebSocket connection lives for minutes; its lifetime
			// is not a request latency.
			return
		}

		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			reqSize,
			respSize,
		)
	}
}
