package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/lms-service/internal/config"
	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/handlers"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/storage"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"github.com/SAP-F-2025/lms-service/pkg"
	"github.com/SAP-F-2025/lms-service/pkg/encryption"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logWriter, logCloser := utils.NewLogWriter(utils.LogFileConfig{Path: cfg.LogFile})
	defer logCloser.Close()
	slogLogger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// The key is derived once; without it no file can be read or written
	encrypter, err := encryption.NewEncrypter(cfg.FileEncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize file encryption: %v", err)
	}

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, assessment definitions will not be cached", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	blobs, err := newBlobStore(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize secure file storage: %v", err)
	}

	publisher, err := events.NewPublisher(events.PublisherConfig{
		Brokers:     cfg.Kafka.Brokers,
		TopicPrefix: cfg.Kafka.TopicPrefix,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	appMetrics := metrics.New()

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		Repo:      repoManager.GetRepository(),
		Validator: validator.New(),
		Blobs:     blobs,
		Encrypter: encrypter,
		Publisher: publisher,
		Metrics:   appMetrics,
		Clock:     services.SystemClock(),
	}, slogLogger, services.ServiceManagerConfig{
		QuotaCountsExpired:  cfg.Assessment.QuotaCountsExpired,
		ExpirySweepInterval: cfg.Assessment.ExpirySweepInterval,
		ExpirySweepBatch:    cfg.Assessment.ExpirySweepBatch,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	handlers.SetupMiddleware(router, logger, handlers.MiddlewareConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            appMetrics,
	})

	authMiddleware := handlers.NewCasdoorAuthMiddleware(cfg.Casdoor, logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, authMiddleware, handlers.RouterConfig{
		FileAccessRatePerMinute: cfg.FileAccessRatePerMinute,
		Metrics:                 appMetrics,
	})
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"storage_driver", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher", "error", err)
	}

	// Closes the database and Redis connections
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown repositories", "error", err)
	}

	logger.Info("Server exited")
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return storage.NewLocalStore(cfg.LocalPath)
	}
}
