package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cafescout/cafescout/configs"
	"github.com/cafescout/cafescout/internal/application/services"
	"github.com/cafescout/cafescout/internal/core/ports"
	"github.com/cafescout/cafescout/internal/infrastructure/db"
	"github.com/cafescout/cafescout/internal/infrastructure/health"
	"github.com/cafescout/cafescout/internal/infrastructure/httpserver"
	"github.com/cafescout/cafescout/internal/infrastructure/places"
	infraRedis "github.com/cafescout/cafescout/internal/infrastructure/redis"
	"github.com/cafescout/cafescout/internal/infrastructure/repositories"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting cafescout nearby search service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := infraRedis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Redis-backed infrastructure
	rateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient)
	readCache := infraRedis.NewRedisCache(redisClient, "cafescout")

	// Postgres repositories, place reads decorated with cache-aside
	basePlaceRepo := repositories.NewPlaceRepository(database, logger)
	placeRepo := repositories.NewCachingPlaceRepository(basePlaceRepo, readCache, cfg.Cache.PlaceReadTTL)
	cacheEntryRepo := repositories.NewCacheEntryRepository(database, logger)

	// Upstream provider
	provider, err := places.NewClient(&places.Config{
		APIKey:    cfg.Places.APIKey,
		BaseURL:   cfg.Places.BaseURL,
		Timeout:   cfg.Places.Timeout,
		PlaceType: cfg.Places.PlaceType,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize places client:", err)
	}

	// Services
	searchService := services.NewSearchService(placeRepo, cacheEntryRepo, provider, &services.SearchConfig{
		Precision:      cfg.Cache.Precision,
		TTL:            cfg.Cache.TTL,
		MinRadiusM:     cfg.Cache.MinRadiusM,
		MaxRadiusM:     cfg.Cache.MaxRadiusM,
		DefaultRadiusM: cfg.Cache.DefaultRadiusM,
	}, logger)

	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
		DefaultRequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:                   cfg.RateLimit.Window,
	}, logger)

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		BurstPerSecond: cfg.RateLimit.BurstPerSecond,
	}

	deps := httpserver.ServerDeps{
		SearchService:      searchService,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine so shutdown signals can be handled
	go func() {
		if err := server.Start(); err != nil {
			logger.Info("Server stopped:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
