package main

import (
	"context"
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

	"github.com/SAP-F-2025/mocktest-service/internal/auth"
	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/config"
	"github.com/SAP-F-2025/mocktest-service/internal/engine"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/handlers"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/mocktest-service/internal/scheduler"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/storage"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
	"github.com/SAP-F-2025/mocktest-service/pkg"
)

type eventBus interface {
	events.EventPublisher
	events.EventSubscriber
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

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
			logger.Warn("Redis unavailable, running without cache", "error", err)
			redisClient = nil
		}
	}
	cacheManager := cache.NewCacheManager(redisClient)

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Event bus: kafka when brokers are configured, in-process otherwise
	var bus eventBus
	if len(cfg.Kafka.Brokers) > 0 {
		bus, err = events.NewKafkaBus(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize kafka: %v", err)
		}
		logger.Info("Kafka event bus initialized", "brokers", cfg.Kafka.Brokers)
	} else {
		bus = events.NewGoChannelBus(slogLogger)
		logger.Info("In-process event bus initialized")
	}

	// Identity: local JWTs, plus casdoor tokens when configured
	var provider repositories.IdentityProvider
	if cfg.Casdoor.Enabled() {
		provider = casdoor.NewUserCasdoor(casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		}, cacheManager)
		logger.Info("Casdoor identity provider enabled", "endpoint", cfg.Casdoor.Endpoint)
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	blobs, err := storage.NewFSStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(repoManager, cacheManager, bus, slogLogger, validator.New(), services.ServiceManagerConfig{
		Auth: services.AuthServiceConfig{
			Tokens:        tokens,
			Authenticator: auth.NewAuthenticator(tokens, repo.User(), provider, slogLogger),
			Blobs:         blobs,
			MaxUploadSize: cfg.Storage.MaxUploadSize,
		},
		Session: services.SessionServiceConfig{
			DurationSeconds: cfg.Session.DurationSeconds,
			Selector: engine.SelectorConfig{
				TotalQuestions: cfg.Session.TotalQuestions,
				TotalMarks:     cfg.Session.TotalMarks,
				MaxAttempts:    cfg.Session.MaxAttempts,
			},
			SaveTimeout: cfg.Session.SaveTimeout,
		},
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if cfg.QuestionBankDir != "" {
		seeded, err := serviceManager.QuestionBank().SeedFromDir(context.Background(), cfg.QuestionBankDir)
		if err != nil {
			logger.Warn("Failed to seed question banks", "dir", cfg.QuestionBankDir, "error", err)
		} else {
			logger.Info("Question banks seeded", "dir", cfg.QuestionBankDir, "count", seeded)
		}
	}

	// Event consumers live until shutdown
	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	if err := bus.Subscribe(consumerCtx, events.TypeProgressSaved, serviceManager.Progress().HandleProgressSaved); err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", events.TypeProgressSaved, err)
	}

	// Background jobs
	jobs := scheduler.New(serviceManager.Session(), serviceManager.Progress(), scheduler.Config{
		SweepInterval: cfg.Session.SweepInterval,
		IdleTimeout:   cfg.Session.IdleTimeout,
	}, slogLogger)
	if err := jobs.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORSOrigins)
	handlers.NewHandlerManager(serviceManager, logger).SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	jobs.Stop()

	// Closes live sessions and waits for pending progress saves before the database goes away
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	stopConsumers()
	if err := bus.Close(); err != nil {
		logger.Error("Failed to close event bus", "error", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
