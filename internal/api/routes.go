package api

import (
	"net/http"

	"github.com/RishiKendai/textscan/internal/logger"
	"github.com/RishiKendai/textscan/internal/metrics"
	"github.com/gin-gonic/gin"
)

func newRouter(service string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger(service))
	router.Use(metrics.Middleware(service))
	router.Use(ErrorHandlerMiddleware())

	router.GET("/health", Health)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Route not found", Code: "NOT_FOUND"})
	})
	return router
}

// Health answers liveness probes.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func SetupStorageRoutes(h *StorageHandler) *gin.Engine {
	router := newRouter("storage")

	files := router.Group("/files")
	{
		files.POST("", h.Upload)
		files.GET("", h.List)
		files.GET("/:id", h.Content)
		files.GET("/:id/metadata", h.Metadata)
		files.DELETE("/:id", h.Delete)
	}

	return router
}

func SetupAnalysisRoutes(h *AnalysisHandler) *gin.Engine {
	router := newRouter("analysis")

	router.POST("/analyze", h.Analyze)
	router.GET("/stats/:id", h.Stats)
	router.POST("/compare", h.Compare)
	router.POST("/compare/text", h.CompareText)
	router.POST("/compare/batch", h.CompareBatch)
	router.GET("/reports/:id", h.Report)
	router.GET("/cloud/:id", h.Cloud)
	router.GET("/cloud/:id/image", h.CloudImage)
	router.DELETE("/cache/:id", h.DeleteCache)

	return router
}

func SetupGatewayRoutes(h *GatewayHandler, limiter *RateLimiter) *gin.Engine {
	router := newRouter("gateway")

	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.Use(RateLimitMiddleware(limiter))
	{
		api.POST("/upload", h.Upload)

		api.POST("/files", h.UploadFile)
		api.GET("/files", h.ListFiles)
		api.GET("/files/:id", h.FileContent)
		api.GET("/files/:id/metadata", h.FileMetadata)
		api.DELETE("/files/:id", h.DeleteFile)

		api.GET("/stats/:id", h.Stats)
		api.POST("/compare", h.Compare)
		api.POST("/compare/text", h.CompareText)
		api.POST("/compare/batch", h.CompareBatch)
		api.GET("/reports/:id", h.Report)
		api.GET("/cloud/:id", h.Cloud)
		api.GET("/cloud/:id/image", h.CloudImage)
	}

	return router
}
