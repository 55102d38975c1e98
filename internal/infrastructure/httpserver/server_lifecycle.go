package httpserver

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.config.Host, s.config.Port),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Start blocks serving HTTP, or HTTPS when both TLS files are configured.
// It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logMetricsInitialization()

	srv := s.httpServer()
	fields := logrus.Fields{
		"addr":        srv.Addr,
		"environment": s.config.Environment,
		"http_cache":  s.httpCacheEnabled,
	}
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.logger.WithFields(fields).Info("Starting HTTPS server")
		return s.echo.StartTLS(srv.Addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	s.logger.WithFields(fields).Info("Starting HTTP server")
	if s.config.Environment == "production" {
		s.logger.Warn("TLS certificates not configured; serving plain HTTP")
	}
	return s.echo.StartServer(srv)
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
// Invalidations already started keep running on their own context.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
