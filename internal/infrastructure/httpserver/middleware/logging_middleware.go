package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// RequestLogging logs each request after it completes, with its cache outcome.
func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if m.logger != nil {
				fields := logrus.Fields{
					"method":      c.Request().Method,
					"path":        c.Path(),
					"status":      statusOf(c, err),
					"duration_ms": time.Since(start).Milliseconds(),
					"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
				}
				if xc := c.Response().Header().Get(HeaderXCache); xc != "" {
					fields["cache"] = xc
				}
				if subject := helpers.SubjectID(c); subject != "" {
					fields["subject_id"] = subject
				}
				m.logger.WithFields(fields).Debug("request completed")
			}
			return err
		}
	}
}
