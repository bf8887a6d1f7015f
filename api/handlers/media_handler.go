package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/internal/app"
	"github.com/yourusername/media-grab-go/internal/domain"
)

// MediaHandler handles media acquisition HTTP requests
type MediaHandler struct {
	svc    *app.AcquisitionService
	logger *zap.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(svc *app.AcquisitionService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{svc: svc, logger: logger}
}

// AcquireRequest represents a request to acquire a media URL
type AcquireRequest struct {
	URL string `json:"url" binding:"required"`
}

// ClipRequest represents a request to cut a time range
type ClipRequest struct {
	Start     string `json:"start" binding:"required"`
	End       string `json:"end" binding:"required"`
	Container string `json:"container,omitempty"`
}

// AudioRequest represents a request to extract audio
type AudioRequest struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Acquire handles POST /api/v1/media
func (h *MediaHandler) Acquire(c *gin.Context) {
	var req AcquireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, alreadyPresent, err := h.svc.Acquire(c.Request.Context(), req.URL)
	if err != nil {
		h.logger.Error("Acquisition failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(statusForError(err), gin.H{
			"error":   err.Error(),
			"command": domain.FailingCommand(err),
		})
		return
	}

	status := http.StatusCreated
	if alreadyPresent {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"media":           item,
		"already_present": alreadyPresent,
	})
}

// Get handles GET /api/v1/media/:id
func (h *MediaHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// List handles GET /api/v1/media
func (h *MediaHandler) List(c *gin.Context) {
	filters := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}

	items, err := h.svc.List(filters)
	if err != nil {
		h.logger.Error("Failed to list media", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

// Stats handles GET /api/v1/media/stats
func (h *MediaHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Clip handles POST /api/v1/media/:id/clip
func (h *MediaHandler) Clip(c *gin.Context) {
	var req ClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	container := domain.Container(req.Container)
	if container == "" {
		container = domain.ContainerMP4
	}

	path, err := h.svc.Clip(c.Request.Context(), c.Param("id"), req.Start, req.End, container)
	if err != nil {
		h.logger.Error("Clip failed", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file_path": path})
}

// Audio handles POST /api/v1/media/:id/audio
func (h *MediaHandler) Audio(c *gin.Context) {
	var req AudioRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	path, err := h.svc.ExtractAudio(c.Request.Context(), c.Param("id"), req.Start, req.End)
	if err != nil {
		h.logger.Error("Audio extraction failed", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file_path": path})
}

// statusForError maps the pipeline error taxonomy onto HTTP statuses
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnresolvable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDurationExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrExtractionFailed),
		errors.Is(err, domain.ErrArtifactMissing),
		errors.Is(err, domain.ErrTranscodeFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
