package httpserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/application/services"
	"github.com/avatarctic/services-marketplace/internal/core/domain/auth"
	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/avatarctic/services-marketplace/internal/core/domain/catalog"
	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/email"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/middleware"
	tmocks "github.com/avatarctic/services-marketplace/test/mocks"
)

const jwtSecret = "server-test-secret"

type testServer struct {
	srv      *httpserver.Server
	store    *tmocks.Store
	cache    *tmocks.MemoryCache
	notifier *tmocks.NotifierMock
	now      time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ts := &testServer{
		store:    tmocks.NewStore(),
		cache:    tmocks.NewMemoryCache(),
		notifier: &tmocks.NotifierMock{},
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	repos := services.Repositories{
		Users:      ts.store.Users(),
		Cities:     ts.store.Cities(),
		Categories: ts.store.Categories(),
		Services:   ts.store.Services(),
		Bookings:   ts.store.Bookings(),
		Reviews:    ts.store.Reviews(),
	}
	cacheSvc := caching.NewService(ts.cache, logger, caching.Options{Coalesce: true})
	queries := services.NewCachedQueries(repos, cacheSvc, services.DefaultTTLPolicy(), logger)
	limiter := services.NewRateLimiterService(&services.RateLimiterConfig{Clock: func() time.Time { return ts.now }}, logger)

	ts.srv = httpserver.NewServer(&httpserver.ServerConfig{Host: "127.0.0.1", Port: "0"}, logger, httpserver.ServerDeps{
		Repos:            repos,
		Queries:          queries,
		Hooks:            services.NewInvalidationHooks(repos, queries, logger),
		Messages:         ts.store.Messages(),
		Disputes:         ts.store.Disputes(),
		Notifier:         ts.notifier,
		RateLimiter:      limiter,
		ResponseCache:    ts.cache,
		HTTPCacheEnabled: true,
		HTTPCache: middleware.HTTPCacheConfig{
			BasePath:  "/api/v1",
			Resources: []string{"cities", "service-categories", "services", "bookings", "reviews"},
			TTL:       5 * time.Minute,
		},
		JWTSecret: jwtSecret,
	})
	return ts
}

func tokenFor(t *testing.T, id uuid.UUID, role user.UserRole) string {
	t.Helper()
	claims := auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func (ts *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeTotal(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var out struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Total
}

// seedParticipants creates a pro, a client and a service offered by the pro.
func (ts *testServer) seedParticipants(t *testing.T) (pro, client *user.User, svc *catalog.Service) {
	t.Helper()
	ctx := context.Background()
	var err error
	pro, err = ts.store.Users().Create(ctx, &user.User{Email: "pro@example.com", FirstName: "P", LastName: "Ro", Role: user.RolePro, IsActive: true})
	require.NoError(t, err)
	client, err = ts.store.Users().Create(ctx, &user.User{Email: "client@example.com", FirstName: "C", LastName: "Li", Role: user.RoleClient, IsActive: true})
	require.NoError(t, err)
	cat, err := ts.store.Categories().Create(ctx, &catalog.ServiceCategory{Name: "Plumbing", Slug: "plumbing"})
	require.NoError(t, err)
	svc, err = ts.store.Services().Create(ctx, &catalog.Service{CategoryID: cat.ID, ProID: pro.ID, Title: "Fix sink", PriceCents: 5000, IsActive: true})
	require.NoError(t, err)
	return pro, client, svc
}

func TestServer_CitiesCachedUntilWrite(t *testing.T) {
	ts := newTestServer(t)
	admin := tokenFor(t, uuid.New(), user.RoleAdmin)

	rec := ts.do(t, http.MethodPost, "/api/v1/cities", admin, `{"name":"Lisbon","country":"PT"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	first := ts.do(t, http.MethodGet, "/api/v1/cities", "", "")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, middleware.CacheMiss, first.Header().Get(middleware.HeaderXCache))
	require.Equal(t, 1, decodeTotal(t, first))

	second := ts.do(t, http.MethodGet, "/api/v1/cities", "", "")
	require.Equal(t, middleware.CacheHit, second.Header().Get(middleware.HeaderXCache))

	rec = ts.do(t, http.MethodPost, "/api/v1/cities", admin, `{"name":"Porto","country":"PT"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	third := ts.do(t, http.MethodGet, "/api/v1/cities", "", "")
	require.Equal(t, middleware.CacheMiss, third.Header().Get(middleware.HeaderXCache))
	require.Equal(t, 2, decodeTotal(t, third))
}

func TestServer_HeadOnColdCache(t *testing.T) {
	ts := newTestServer(t)

	head := ts.do(t, http.MethodHead, "/api/v1/cities", "", "")
	require.Equal(t, http.StatusOK, head.Code)
	require.Equal(t, middleware.CacheMiss, head.Header().Get(middleware.HeaderXCache))
	require.Empty(t, head.Body.String())
	etag := head.Header().Get(middleware.HeaderETag)
	require.NotEmpty(t, etag)

	get := ts.do(t, http.MethodGet, "/api/v1/cities", "", "")
	require.Equal(t, http.StatusOK, get.Code)
	require.Equal(t, middleware.CacheHit, get.Header().Get(middleware.HeaderXCache))
	require.Equal(t, etag, get.Header().Get(middleware.HeaderETag))
	require.Equal(t, 0, decodeTotal(t, get))
}

func TestServer_WritesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/cities", "", `{"name":"Lisbon","country":"PT"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/bookings", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, ts.cache.Keys())
}

func TestServer_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	admin := tokenFor(t, uuid.New(), user.RoleAdmin)

	rec := ts.do(t, http.MethodPost, "/api/v1/cities", admin, `{"country":"PT"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "name is required")

	rec = ts.do(t, http.MethodPost, "/api/v1/users", admin, `{"email":"nope","first_name":"A","last_name":"B","role":"client"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/services?category_id=xyz", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BookingStatusRefreshesBothParticipants(t *testing.T) {
	ts := newTestServer(t)
	pro, client, svc := ts.seedParticipants(t)
	proTok, clientTok := tokenFor(t, pro.ID, user.RolePro), tokenFor(t, client.ID, user.RoleClient)

	body := `{"pro_id":"` + pro.ID.String() + `","service_id":"` + svc.ID.String() + `","scheduled_at":"2026-03-05T10:00:00Z"}`
	rec := ts.do(t, http.MethodPost, "/api/v1/bookings", clientTok, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, booking.StatusPending, created.Status)

	require.Equal(t, 1, ts.notifier.Count())
	require.Equal(t, "pro@example.com", ts.notifier.Sent[0].To)
	require.Equal(t, email.TemplateBookingCreated, ts.notifier.Sent[0].Template)

	// warm both participants' caches
	for _, tok := range []string{proTok, clientTok} {
		require.Equal(t, middleware.CacheMiss, ts.do(t, http.MethodGet, "/api/v1/bookings?status=confirmed", tok, "").Header().Get(middleware.HeaderXCache))
		require.Equal(t, middleware.CacheHit, ts.do(t, http.MethodGet, "/api/v1/bookings?status=confirmed", tok, "").Header().Get(middleware.HeaderXCache))
	}

	rec = ts.do(t, http.MethodPatch, "/api/v1/bookings/"+created.ID.String()+"/status", proTok, `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, tok := range []string{proTok, clientTok} {
		rec = ts.do(t, http.MethodGet, "/api/v1/bookings?status=confirmed", tok, "")
		require.Equal(t, middleware.CacheMiss, rec.Header().Get(middleware.HeaderXCache))
		require.Equal(t, 1, decodeTotal(t, rec))
	}
}

func TestServer_BookingOfOtherUserForbidden(t *testing.T) {
	ts := newTestServer(t)
	pro, client, svc := ts.seedParticipants(t)
	clientTok := tokenFor(t, client.ID, user.RoleClient)
	stranger := tokenFor(t, uuid.New(), user.RoleClient)

	body := `{"pro_id":"` + pro.ID.String() + `","service_id":"` + svc.ID.String() + `","scheduled_at":"2026-03-05T10:00:00Z"}`
	rec := ts.do(t, http.MethodPost, "/api/v1/bookings", clientTok, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created booking.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = ts.do(t, http.MethodPatch, "/api/v1/bookings/"+created.ID.String()+"/status", stranger, `{"status":"cancelled"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/bookings?user_id="+client.ID.String(), stranger, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_MessagingRateLimit(t *testing.T) {
	ts := newTestServer(t)
	sender := tokenFor(t, uuid.New(), user.RoleClient)
	body := `{"recipient_id":"` + uuid.NewString() + `","body":"hello"}`

	for i := 0; i < 10; i++ {
		rec := ts.do(t, http.MethodPost, "/api/v1/messages", sender, body)
		require.Equal(t, http.StatusCreated, rec.Code, "message %d", i+1)
	}
	ts.now = ts.now.Add(20 * time.Second)
	rec := ts.do(t, http.MethodPost, "/api/v1/messages", sender, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "40", rec.Header().Get("Retry-After"))

	ts.now = ts.now.Add(41 * time.Second)
	rec = ts.do(t, http.MethodPost, "/api/v1/messages", sender, body)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_DisputeRateLimitAndNotification(t *testing.T) {
	ts := newTestServer(t)
	pro, client, svc := ts.seedParticipants(t)
	clientTok := tokenFor(t, client.ID, user.RoleClient)
	b, err := ts.store.Bookings().Create(context.Background(), &booking.Booking{ClientID: client.ID, ProID: pro.ID, ServiceID: svc.ID, ScheduledAt: ts.now})
	require.NoError(t, err)

	body := `{"booking_id":"` + b.ID.String() + `","reason":"no show"}`
	for i := 0; i < 3; i++ {
		rec := ts.do(t, http.MethodPost, "/api/v1/disputes", clientTok, body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/v1/disputes", clientTok, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "86400", rec.Header().Get("Retry-After"))

	require.Equal(t, 3, ts.notifier.Count())
	require.Equal(t, "pro@example.com", ts.notifier.Sent[0].To)
	require.Equal(t, email.TemplateDisputeFiled, ts.notifier.Sent[0].Template)
}

func TestServer_ReviewCreateInvalidatesListing(t *testing.T) {
	ts := newTestServer(t)
	pro, client, svc := ts.seedParticipants(t)
	clientTok := tokenFor(t, client.ID, user.RoleClient)
	b, err := ts.store.Bookings().Create(context.Background(), &booking.Booking{ClientID: client.ID, ProID: pro.ID, ServiceID: svc.ID, ScheduledAt: ts.now})
	require.NoError(t, err)

	target := "/api/v1/reviews?pro_id=" + pro.ID.String()
	require.Equal(t, 0, decodeTotal(t, ts.do(t, http.MethodGet, target, "", "")))
	require.Equal(t, middleware.CacheHit, ts.do(t, http.MethodGet, target, "", "").Header().Get(middleware.HeaderXCache))

	body := `{"booking_id":"` + b.ID.String() + `","service_id":"` + svc.ID.String() + `","pro_id":"` + pro.ID.String() + `","rating":5,"comment":"great"}`
	rec := ts.do(t, http.MethodPost, "/api/v1/reviews", clientTok, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, target, "", "")
	require.Equal(t, middleware.CacheMiss, rec.Header().Get(middleware.HeaderXCache))
	require.Equal(t, 1, decodeTotal(t, rec))
}

func TestServer_UserReadThroughDataCache(t *testing.T) {
	ts := newTestServer(t)
	_, client, _ := ts.seedParticipants(t)
	clientTok := tokenFor(t, client.ID, user.RoleClient)

	rec := ts.do(t, http.MethodGet, "/api/v1/users/"+client.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ts.cache.Has(caching.UserKey(client.ID)))

	rec = ts.do(t, http.MethodPut, "/api/v1/users/"+client.ID.String(), clientTok, `{"bio":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, ts.cache.Has(caching.UserKey(client.ID)))

	rec = ts.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString(), "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"service":"services-marketplace"`)
}
