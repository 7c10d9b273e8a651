// @title           Facequery Backend API
// @version         1.0.0
// @description     Backend API for facial expression analysis queries. Authenticated users upload a face photo; a pretrained classification model detects the expression and the result is stored in a per-user history.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"facequery-backend/docs"
	"facequery-backend/internal/auth"
	"facequery-backend/internal/config"
	"facequery-backend/internal/database"
	"facequery-backend/internal/handlers"
	"facequery-backend/internal/inference"
	"facequery-backend/internal/logging"
	"facequery-backend/internal/middleware"
	"facequery-backend/internal/storage"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := logging.New(cfg.LogDir, cfg.Environment == "production")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		if baseURL, err := url.Parse(cfg.BaseURL); err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	// Run migrations
	migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalw("failed to initialize migrator", "error", err)
	}
	if err := migrator.Run(); err != nil {
		migrator.Close()
		logger.Fatalw("migration failed", "error", err)
	}
	migrator.Close()
	logger.Infow("migrations completed")

	dbClient, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("failed to initialize database client", "error", err)
	}
	defer dbClient.Close()

	photoStore, err := storage.NewLocalStore(cfg.MediaRoot)
	if err != nil {
		logger.Fatalw("failed to initialize media storage", "error", err)
	}

	// The classification pipeline is loaded once here and shared read-only
	// for the process lifetime.
	classifier, err := inference.NewClassifier(inference.Config{
		ModelDir:   cfg.ModelDir,
		RuntimeLib: cfg.OnnxRuntimeLib,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalw("failed to load classification model", "error", err, "model_dir", cfg.ModelDir)
	}
	defer classifier.Close()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	authHandler := handlers.NewAuthHandler(dbClient, tokens, logger)
	queriesHandler := handlers.NewQueriesHandler(dbClient, photoStore, classifier, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	router.GET("/", handlers.HomeHandler)
	router.GET("/health", handlers.HealthHandler)
	router.POST("/signup", authHandler.Signup)
	router.POST("/login", authHandler.Login)

	// Query routes, all owner-scoped
	authed := router.Group("/")
	authed.Use(middleware.AuthMiddleware(cfg))
	authed.POST("/query/new", queriesHandler.Create)
	authed.GET("/queries", queriesHandler.List)
	authed.GET("/query/:id", queriesHandler.Detail)
	authed.GET("/query/:id/delete", queriesHandler.DeleteConfirm)
	authed.POST("/query/:id/delete", queriesHandler.Delete)

	logger.Infow("server starting", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatalw("failed to start server", "error", err)
	}
}
