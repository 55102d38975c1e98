package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
)

const healthProbeTimeout = 2 * time.Second

type healthResponse struct {
	Status       ports.HealthStatus            `json:"status"`
	Timestamp    string                        `json:"timestamp"`
	Service      string                        `json:"service"`
	Dependencies map[string]ports.HealthStatus `json:"dependencies"`
}

// probeDependencies runs every checker. Any failure degrades the service; the
// cache layer falls back to the database, so nothing here is fatal on its own.
func (s *Server) probeDependencies(ctx context.Context) (ports.HealthStatus, map[string]ports.HealthStatus) {
	deps := make(map[string]ports.HealthStatus, len(s.healthCheckers))
	overall := ports.HealthHealthy
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			deps[hc.Name()] = ports.HealthUnhealthy
			overall = ports.HealthDegraded
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"dependency": hc.Name()}).WithError(err).Warn("health probe failed")
			}
			continue
		}
		deps[hc.Name()] = ports.HealthHealthy
	}
	return overall, deps
}

func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthProbeTimeout)
	defer cancel()

	overall, deps := s.probeDependencies(ctx)
	code := http.StatusOK
	if overall != ports.HealthHealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, healthResponse{
		Status:       overall,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Service:      "services-marketplace",
		Dependencies: deps,
	})
}
