package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthProbe reports whether one dependency is reachable.
type HealthProbe func(ctx context.Context) error

// HealthHandler exposes liveness and readiness endpoints.
type HealthHandler struct {
	probes  map[string]HealthProbe
	timeout time.Duration
}

// NewHealthHandler constructs the handler. Probes run on every readiness call.
func NewHealthHandler(timeout time.Duration, probes map[string]HealthProbe) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{probes: probes, timeout: timeout}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether every backing dependency answers within the probe
// timeout. Any failing probe turns the response into a 503 with per-dependency
// detail.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	healthy := true
	for name, probe := range h.probes {
		if probe == nil {
			continue
		}
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
