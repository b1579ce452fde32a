package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers load balancer health checks.
type HealthHandler struct{}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Get returns a static healthy response.
func (h *HealthHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
