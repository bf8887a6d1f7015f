package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/api/handlers"
	"github.com/yourusername/media-grab-go/api/middleware"
	"github.com/yourusername/media-grab-go/internal/app"
)

// SetupRouter sets up the HTTP router
func SetupRouter(svc *app.AcquisitionService, ytdlpBinary string, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(ytdlpBinary)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		mediaHandler := handlers.NewMediaHandler(svc, log)
		media := v1.Group("/media")
		{
			media.POST("", mediaHandler.Acquire)
			media.GET("", mediaHandler.List)
			media.GET("/stats", mediaHandler.Stats)
			media.GET("/:id", mediaHandler.Get)
			media.POST("/:id/clip", mediaHandler.Clip)
			media.POST("/:id/audio", mediaHandler.Audio)
		}
	}

	return router
}
