package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/application/services"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	customMiddleware "github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
}

type ServerDeps struct {
	// Repos serves the pre-images write handlers patch before handing the row to Hooks.
	Repos   services.Repositories
	Queries *services.CachedQueries
	Hooks   *services.InvalidationHooks

	Messages ports.MessageRepository
	Disputes ports.DisputeRepository
	Notifier ports.Notifier

	RateLimiter      ports.RateLimiter
	ResponseCache    ports.Cache
	HTTPCacheEnabled bool
	HTTPCache        customMiddleware.HTTPCacheConfig

	JWTSecret string
	JWTIssuer string

	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo             *echo.Echo
	config           *ServerConfig
	logger           *logrus.Logger
	repos            services.Repositories
	queries          *services.CachedQueries
	hooks            *services.InvalidationHooks
	messages         ports.MessageRepository
	disputes         ports.DisputeRepository
	notifier         ports.Notifier
	httpCacheEnabled bool
	middleware       *customMiddleware.MiddlewareCollection
	healthCheckers   []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = newRequestValidator()

	server := &Server{
		echo:             e,
		config:           serverConfig,
		logger:           logger,
		repos:            deps.Repos,
		queries:          deps.Queries,
		hooks:            deps.Hooks,
		messages:         deps.Messages,
		disputes:         deps.Disputes,
		notifier:         deps.Notifier,
		httpCacheEnabled: deps.HTTPCacheEnabled && deps.ResponseCache != nil,
		healthCheckers:   deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiter,
			deps.ResponseCache,
			deps.HTTPCache,
			logger,
			deps.JWTSecret,
			deps.JWTIssuer,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
