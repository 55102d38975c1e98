package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/services-marketplace/configs"
	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/application/services"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/email"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/health"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver"
	customMiddleware "github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/redis"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting services marketplace API...")

	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	if err := database.Migrate(cfg.Server.MigrationsPath); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Redis is optional at runtime: the guard turns outages into cache misses.
	redisClient, err := redis.Connect(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to create Redis client:", err)
	}
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Warn("Redis not reachable at startup; serving from the database until it recovers")
	} else {
		logger.Info("Connected to Redis successfully")
	}

	guard := redis.DefaultGuardConfig()
	if cfg.Cache.OpTimeout > 0 {
		guard.OpTimeout = cfg.Cache.OpTimeout
	}
	if cfg.Cache.PrefixTimeout > 0 {
		guard.PrefixTimeout = cfg.Cache.PrefixTimeout
	}
	if cfg.Cache.BreakerMinReq > 0 {
		guard.MinRequests = cfg.Cache.BreakerMinReq
	}
	if cfg.Cache.BreakerRatio > 0 {
		guard.FailureThreshold = cfg.Cache.BreakerRatio
	}
	if cfg.Cache.BreakerOpen > 0 {
		guard.Timeout = cfg.Cache.BreakerOpen
	}
	store := redis.NewGuardedCache(redis.NewRedisCache(redisClient, cfg.Redis.KeyPrefix), guard, logger)
	defer store.Close()

	cacheService := caching.NewService(store, logger, caching.Options{Coalesce: cfg.Cache.CoalesceMiss})

	repos := services.Repositories{
		Users:      repositories.NewUserRepository(database, logger),
		Cities:     repositories.NewCityRepository(database, logger),
		Categories: repositories.NewServiceCategoryRepository(database, logger),
		Services:   repositories.NewServiceRepository(database, logger),
		Bookings:   repositories.NewBookingRepository(database, logger),
		Reviews:    repositories.NewReviewRepository(database, logger),
	}
	queries := services.NewCachedQueries(repos, cacheService, services.TTLPolicy{
		User:      cfg.Cache.UserTTL,
		Reference: cfg.Cache.ReferenceTTL,
		Services:  cfg.Cache.ServicesTTL,
		Bookings:  cfg.Cache.BookingsTTL,
		Reviews:   cfg.Cache.ReviewsTTL,
	}, logger)
	hooks := services.NewInvalidationHooks(repos, queries, logger)

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := queries.Warm(warmCtx); err != nil {
		logger.WithError(err).Warn("Cache warm-up incomplete")
	}
	warmCancel()

	policies := map[ports.ActionClass]services.RateLimitPolicy{
		ports.ActionMessaging: {Limit: cfg.RateLimit.MessagingLimit, Window: cfg.RateLimit.MessagingWindow},
		ports.ActionDispute:   {Limit: cfg.RateLimit.DisputeLimit, Window: cfg.RateLimit.DisputeWindow},
	}
	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var rateLimiter ports.RateLimiter
	if cfg.RateLimit.Backend == "redis" {
		rateLimiter = repositories.NewRateLimitRedisRepository(redisClient, cfg.RateLimit.KeyPrefix, policies, logger)
	} else {
		inProcess := services.NewRateLimiterService(&services.RateLimiterConfig{
			Policies:      policies,
			SweepInterval: cfg.RateLimit.SweepInterval,
		}, logger)
		go inProcess.Run(runCtx)
		rateLimiter = inProcess
	}
	logger.WithField("backend", cfg.RateLimit.Backend).Info("Rate limiter ready")

	emailService := email.NewEmailService(&email.EmailConfig{
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		CompanyName:    cfg.Email.CompanyName,
		BaseURL:        cfg.Email.BaseURL,
		QueueSize:      cfg.Email.QueueSize,
	}, logger)

	hcSlice := []ports.HealthChecker{
		health.NewDBHealthChecker(database),
		health.NewRedisHealthChecker(redisClient),
		health.NewBreakerHealthChecker("cache_breaker", store.State),
	}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
	}

	deps := httpserver.ServerDeps{
		Repos:            repos,
		Queries:          queries,
		Hooks:            hooks,
		Messages:         repositories.NewMessageRepository(database, logger),
		Disputes:         repositories.NewDisputeRepository(database, logger),
		Notifier:         emailService,
		RateLimiter:      rateLimiter,
		ResponseCache:    store,
		HTTPCacheEnabled: cfg.HTTPCache.Enabled,
		HTTPCache: customMiddleware.HTTPCacheConfig{
			BasePath:  cfg.HTTPCache.BasePath,
			Resources: cfg.HTTPCache.Resources,
			TTL:       cfg.HTTPCache.TTL,
		},
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
		HealthCheckers: hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	stopBackground()
	if err := emailService.Close(ctx); err != nil {
		logger.WithError(err).Warn("Email queue not fully drained")
	}

	logger.Info("Server exited")
}
