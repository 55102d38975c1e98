package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/services-marketplace/internal/application/services"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/middleware"
)

type limiterFunc func(ctx context.Context, action ports.ActionClass, subjectID string) (ports.RateLimitDecision, error)

func (f limiterFunc) Check(ctx context.Context, action ports.ActionClass, subjectID string) (ports.RateLimitDecision, error) {
	return f(ctx, action, subjectID)
}

func runLimited(t *testing.T, m *middleware.RateLimitMiddleware, action ports.ActionClass, subject *uuid.UUID) (*httptest.ResponseRecorder, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if subject != nil {
		helpers.SetUserID(c, *subject)
	}
	called := false
	h := m.Handler(action)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusCreated)
	})
	err := h(c)
	return rec, called, err
}

func TestRateLimitMiddleware_MessagingWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := services.NewRateLimiterService(&services.RateLimiterConfig{Clock: func() time.Time { return now }}, nil)
	m := middleware.NewRateLimitMiddleware(limiter, nil)
	subject := uuid.New()

	for i := 0; i < 10; i++ {
		rec, called, err := runLimited(t, m, ports.ActionMessaging, &subject)
		require.NoError(t, err)
		require.True(t, called)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, strconv.Itoa(9-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	now = now.Add(15 * time.Second)
	rec, called, err := runLimited(t, m, ports.ActionMessaging, &subject)
	require.NoError(t, err)
	require.False(t, called)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "45", rec.Header().Get("Retry-After"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 45, body["retry_after_seconds"])
	require.Contains(t, body["message"], "messaging")

	// another subject is unaffected
	other := uuid.New()
	_, called, err = runLimited(t, m, ports.ActionMessaging, &other)
	require.NoError(t, err)
	require.True(t, called)
}

func TestRateLimitMiddleware_RequiresSubject(t *testing.T) {
	limiter := services.NewRateLimiterService(nil, nil)
	m := middleware.NewRateLimitMiddleware(limiter, nil)

	_, called, err := runLimited(t, m, ports.ActionDispute, nil)
	require.False(t, called)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRateLimitMiddleware_LimiterErrorFailsOpen(t *testing.T) {
	m := middleware.NewRateLimitMiddleware(limiterFunc(func(ctx context.Context, action ports.ActionClass, subjectID string) (ports.RateLimitDecision, error) {
		return ports.RateLimitDecision{}, errors.New("backend down")
	}), nil)
	subject := uuid.New()

	rec, called, err := runLimited(t, m, ports.ActionDispute, &subject)
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitMiddleware_RoundsRetryAfterUp(t *testing.T) {
	reset := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := middleware.NewRateLimitMiddleware(limiterFunc(func(ctx context.Context, action ports.ActionClass, subjectID string) (ports.RateLimitDecision, error) {
		return ports.RateLimitDecision{Limit: 3, ResetAt: reset, RetryAfter: 1500 * time.Millisecond}, nil
	}), nil)
	subject := uuid.New()

	rec, _, err := runLimited(t, m, ports.ActionDispute, &subject)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("Retry-After"))
	require.Equal(t, "1772366400", rec.Header().Get("X-RateLimit-Reset"))
}
