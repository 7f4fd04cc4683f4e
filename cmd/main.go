package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/streamhub/flink-manager/internal/db"
	"github.com/streamhub/flink-manager/internal/handlers"
	"github.com/streamhub/flink-manager/internal/platform/flink"
	"github.com/streamhub/flink-manager/internal/platform/gcp"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/server"
	"github.com/streamhub/flink-manager/internal/services"
	"github.com/streamhub/flink-manager/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	flinkAPIURL := utils.GetEnv("FLINK_API_URL", "http://localhost:8081", log)
	allowedOrigins := utils.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000", log)
	signTTL := utils.GetEnvAsInt("SIGNED_URL_TTL", 900, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Object storage
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Fatal("Bucket init failed", "error", err)
	}

	// Flink REST client
	flinkClient := flink.NewRESTClient(flinkAPIURL, log)

	// Repos
	log.Info("Setting up Repos from main...")
	artifactRepo := repos.NewArtifactRepo(thePG, log)
	jobSpecRepo := repos.NewJobSpecRepo(thePG, log)
	executionRepo := repos.NewExecutionRepo(thePG, log)
	executionHistoryRepo := repos.NewExecutionHistoryRepo(thePG, log)
	jobConfigRepo := repos.NewJobConfigRepo(thePG, log)
	deploymentHistoryRepo := repos.NewDeploymentHistoryRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	artifactService := services.NewArtifactService(log, bucketService, artifactRepo)
	jobSpecService := services.NewJobSpecService(thePG, log, jobSpecRepo, artifactRepo, executionRepo)
	executionService := services.NewExecutionService(thePG, log, flinkClient, jobSpecRepo, artifactRepo, executionRepo, executionHistoryRepo, bucketService.ObjectURL)
	jobConfigService := services.NewJobConfigService(thePG, log, flinkClient, jobConfigRepo, artifactRepo, deploymentHistoryRepo, bucketService.ObjectURL)

	// Handlers
	log.Info("Setting up Handlers from main...")
	healthcheckHandler := handlers.NewHealthcheckHandler(log, postgresService.Ping, bucketService, flinkClient)
	artifactHandler := handlers.NewArtifactHandler(log, artifactService, time.Duration(signTTL)*time.Second)
	jobSpecHandler := handlers.NewJobSpecHandler(log, jobSpecService, executionService)
	executionHandler := handlers.NewExecutionHandler(log, executionService)
	jobConfigHandler := handlers.NewJobConfigHandler(log, jobConfigService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:                log,
		AllowedOrigins:     strings.Split(allowedOrigins, ","),
		HealthcheckHandler: healthcheckHandler,
		ArtifactHandler:    artifactHandler,
		JobSpecHandler:     jobSpecHandler,
		ExecutionHandler:   executionHandler,
		JobConfigHandler:   jobConfigHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
