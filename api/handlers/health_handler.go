package handlers

import (
	"net/http"
	"os/exec"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	ytdlpBinary string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(ytdlpBinary string) *HealthHandler {
	return &HealthHandler{ytdlpBinary: ytdlpBinary}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

// Ready handles GET /ready. The service is not ready when the extraction
// tool is not on PATH.
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := exec.LookPath(h.ytdlpBinary); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "extraction tool not found: " + h.ytdlpBinary,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
