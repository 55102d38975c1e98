package httpserver

import (
	"github.com/labstack/echo/v4/middleware"
)

// setupMiddleware installs the global chain. RequestID runs before metrics and
// logging so both see it; the response cache and JWT are per-group.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	cors := middleware.DefaultCORSConfig
	if len(s.config.AllowedOrigins) > 0 {
		cors.AllowOrigins = s.config.AllowedOrigins
	}
	cors.ExposeHeaders = []string{
		"ETag", "X-Cache", "Retry-After",
		"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
	}
	s.echo.Use(middleware.CORSWithConfig(cors))
	s.echo.Use(middleware.RequestID())

	s.echo.Use(s.middleware.Metrics.CollectHTTPMetrics())
	s.echo.Use(s.middleware.Logging.RequestLogging())
}
