package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers middleware and every endpoint on router.
func (s *Server) SetupRoutes(router *gin.Engine) {
	router.Use(RecoveryMiddleware(s.logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(CORSConfigFromEnv(s.logger)))
	router.Use(LoggingMiddleware(s.logger))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "LLM completion benchmark API",
			"endpoints": gin.H{
				"health":    "/api/health",
				"status":    "/api/status",
				"benchmark": "POST /api/benchmarks",
				"jobs":      "/api/jobs",
				"stream":    "/api/jobs/:jobId/stream",
				"results":   "/api/jobs/:jobId/results?format=csv|jsonl",
				"websocket": "/ws",
			},
		})
	})
	router.GET("/ws", s.hub.ServeWS)

	api := router.Group("/api")
	api.Use(RequestValidationMiddleware())
	{
		api.GET("/health", s.Health)
		api.GET("/status", s.Status)
		api.POST("/benchmarks", s.StartBenchmark)
		api.GET("/jobs", s.ListJobs)
		api.GET("/jobs/:jobId", s.GetJob)
		api.GET("/jobs/:jobId/results", s.ExportResults)
		api.GET("/jobs/:jobId/stream", s.StreamJob)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "The requested endpoint does not exist",
			Code:    http.StatusNotFound,
		})
	})
}
