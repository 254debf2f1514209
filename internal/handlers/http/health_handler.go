package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vopenia-io/meet/internal/infrastructure/monitoring"
)

type HealthHandler struct {
	checker *monitoring.HealthChecker
}

func NewHealthHandler(checker *monitoring.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	status := h.checker.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
