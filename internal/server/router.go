package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/streamhub/flink-manager/internal/handlers"
	"github.com/streamhub/flink-manager/internal/middleware"
	"github.com/streamhub/flink-manager/internal/platform/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	AllowedOrigins     []string
	HealthcheckHandler *handlers.HealthcheckHandler
	ArtifactHandler    *handlers.ArtifactHandler
	JobSpecHandler     *handlers.JobSpecHandler
	ExecutionHandler   *handlers.ExecutionHandler
	JobConfigHandler   *handlers.JobConfigHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(cfg.Log))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthcheckHandler.Check)

	api := router.Group("/api/v1")

	// Artifacts
	artifacts := api.Group("/artifacts")
	{
		artifacts.POST("/upload", cfg.ArtifactHandler.Upload)
		artifacts.POST("/upload-url", cfg.ArtifactHandler.PresignUpload)
		artifacts.GET("", cfg.ArtifactHandler.List)
		artifacts.GET("/search/:query", cfg.ArtifactHandler.Search)
		artifacts.GET("/name/:artifact_name/versions", cfg.ArtifactHandler.Versions)
		artifacts.GET("/name/:artifact_name/version/:version", cfg.ArtifactHandler.GetByNameVersion)
		artifacts.GET("/:artifact_id", cfg.ArtifactHandler.Get)
		artifacts.GET("/:artifact_id/download", cfg.ArtifactHandler.Download)
		artifacts.DELETE("/:artifact_id", cfg.ArtifactHandler.Delete)
	}

	// Job specs
	jobSpecs := api.Group("/job-specs")
	{
		jobSpecs.POST("", cfg.JobSpecHandler.Create)
		jobSpecs.GET("", cfg.JobSpecHandler.List)
		jobSpecs.GET("/name/:job_spec_name", cfg.JobSpecHandler.GetByName)
		jobSpecs.GET("/:job_spec_id", cfg.JobSpecHandler.Get)
		jobSpecs.PUT("/:job_spec_id", cfg.JobSpecHandler.Update)
		jobSpecs.DELETE("/:job_spec_id", cfg.JobSpecHandler.Delete)
		jobSpecs.POST("/:job_spec_id/executions", cfg.JobSpecHandler.StartExecution)
	}

	// Executions
	executions := api.Group("/executions")
	{
		executions.GET("", cfg.ExecutionHandler.List)
		executions.GET("/:execution_id", cfg.ExecutionHandler.Get)
		executions.POST("/:execution_id/stop", cfg.ExecutionHandler.Stop)
		executions.GET("/:execution_id/history", cfg.ExecutionHandler.History)
	}

	// Jobs (in-place lifecycle)
	jobs := api.Group("/jobs")
	{
		jobs.POST("", cfg.JobConfigHandler.Create)
		jobs.GET("", cfg.JobConfigHandler.List)
		jobs.GET("/name/:job_name", cfg.JobConfigHandler.GetByName)
		jobs.GET("/:job_id", cfg.JobConfigHandler.Get)
		jobs.PUT("/:job_id", cfg.JobConfigHandler.Update)
		jobs.DELETE("/:job_id", cfg.JobConfigHandler.Delete)
		jobs.POST("/:job_id/deploy", cfg.JobConfigHandler.Deploy)
		jobs.POST("/:job_id/stop", cfg.JobConfigHandler.Stop)
		jobs.GET("/:job_id/history", cfg.JobConfigHandler.History)
	}

	return router
}
