package router

import (
	"net/http"

	"github.com/bioforge/refinery-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "refinery-api-service",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "refinery-api-service",
		})
	})

	datasetHandler := handler.NewDatasetHandler(deps)
	tokenHandler := handler.NewTokenHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	statsHandler := handler.NewStatsHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		datasets := v1.Group("/datasets")
		{
			// POST /api/v1/datasets - Create a new dataset
			datasets.POST("", datasetHandler.CreateDataset)

			// GET /api/v1/datasets/:dataset_id - Get dataset details
			datasets.GET("/:dataset_id", datasetHandler.GetDataset)

			// PUT /api/v1/datasets/:dataset_id - Patch a dataset, optionally starting it
			datasets.PUT("/:dataset_id", datasetHandler.UpdateDataset)
		}

		tokens := v1.Group("/tokens")
		{
			// POST /api/v1/tokens - Issue a new API token
			tokens.POST("", tokenHandler.CreateToken)

			// GET /api/v1/tokens/:token_id - Get token details
			tokens.GET("/:token_id", tokenHandler.GetToken)

			// POST /api/v1/tokens/:token_id/activate - Set token activation
			tokens.POST("/:token_id/activate", tokenHandler.ActivateToken)
		}

		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		// GET /api/v1/stats - Per-kind job statistics
		v1.GET("/stats", statsHandler.GetStats)
	}

	return r
}
