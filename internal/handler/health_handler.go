package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readyTimeout = 2 * time.Second

// HealthChecker is implemented by the Postgres and Redis clients
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	service string
	checks  map[string]HealthChecker
}

// NewHealthHandler creates a HealthHandler; checks maps a dependency name to its checker
func NewHealthHandler(service string, checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.service,
	})
}

// Ready checks every dependency
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			deps[name] = "disconnected"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "connected"
	}

	body := gin.H{
		"status":       "ready",
		"service":      h.service,
		"dependencies": deps,
	}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	c.JSON(status, body)
}
