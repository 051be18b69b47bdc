package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/service"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/response"
)

// MetricsHandler exposes the Prometheus scrape endpoint and a JSON summary
// of the same counters for quick inspection without a scraper.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary serves an aggregated snapshot: cache hit ratio, request and
// generation timings, lessons placed and violation totals.
func (h *MetricsHandler) Summary(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
