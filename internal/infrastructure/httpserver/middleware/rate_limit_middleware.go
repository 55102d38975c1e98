package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/application/services"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiter
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, logger: logger}
}

// Handler admits the request against the policy for action. It must run after
// RequireJWT so the subject is known.
func (r *RateLimitMiddleware) Handler(action ports.ActionClass) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := helpers.SubjectID(c)
			if subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			d, rlErr := r.rateLimiter.Check(c.Request().Context(), action, subject)
			if rlErr != nil {
				if r.logger != nil {
					r.logger.WithError(rlErr).WithFields(logrus.Fields{"action": action, "subject_id": subject}).Warn("rate limiter error; allowing request (fail-open)")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				exceeded := &services.RateLimitExceededError{Action: action, RetryAfterSeconds: d.RetryAfterSeconds()}
				h.Set("Retry-After", strconv.Itoa(exceeded.RetryAfterSeconds))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"message":             exceeded.Error(),
					"retry_after_seconds": exceeded.RetryAfterSeconds,
				})
			}
			return next(c)
		}
	}
}
