package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/service"
)

// Metrics records request count and latency per route template. Scrapes of
// the metrics endpoint itself are not recorded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
