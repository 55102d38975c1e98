package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/middleware"
	tmocks "github.com/avatarctic/services-marketplace/test/mocks"
)

type cacheHarness struct {
	e     *echo.Echo
	cache *tmocks.MemoryCache
	calls int32
	body  atomic.Value
}

// newCacheHarness serves a small API behind the HTTP cache. A nil store uses
// the harness's MemoryCache.
func newCacheHarness(t *testing.T, store ports.Cache) *cacheHarness {
	t.Helper()
	h := &cacheHarness{e: echo.New(), cache: tmocks.NewMemoryCache()}
	h.body.Store(`{"items":[1,2,3]}`)
	if store == nil {
		store = h.cache
	}

	cfg := middleware.HTTPCacheConfig{BasePath: "/api/v1", Resources: []string{"cities", "bookings"}, TTL: 300 * time.Second}
	mw := middleware.NewHTTPCacheMiddleware(store, cfg, nil)

	api := h.e.Group("/api/v1")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sub := c.Request().Header.Get("X-Test-Subject"); sub != "" {
				helpers.SetUserID(c, uuid.MustParse(sub))
			}
			return next(c)
		}
	})
	api.Use(mw.Handler())
	handler := func(c echo.Context) error {
		atomic.AddInt32(&h.calls, 1)
		return c.JSONBlob(http.StatusOK, []byte(h.body.Load().(string)))
	}
	api.GET("/cities", handler)
	api.HEAD("/cities", handler)
	api.GET("/bookings", handler)
	api.GET("/services", handler)
	api.POST("/cities", handler)
	api.GET("/cities/missing", func(c echo.Context) error {
		atomic.AddInt32(&h.calls, 1)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})
	api.GET("/cities/accepted", func(c echo.Context) error {
		atomic.AddInt32(&h.calls, 1)
		return c.String(http.StatusAccepted, "later")
	})
	return h
}

func (h *cacheHarness) do(method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func TestHTTPCache_MissThenHit(t *testing.T) {
	h := newCacheHarness(t, nil)

	first := h.do(http.MethodGet, "/api/v1/cities?country=PT", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, middleware.CacheMiss, first.Header().Get(middleware.HeaderXCache))
	etag := first.Header().Get(middleware.HeaderETag)
	require.Equal(t, middleware.ETag([]byte(`{"items":[1,2,3]}`)), etag)
	require.True(t, strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`))

	second := h.do(http.MethodGet, "/api/v1/cities?country=PT", nil)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, middleware.CacheHit, second.Header().Get(middleware.HeaderXCache))
	require.Equal(t, etag, second.Header().Get(middleware.HeaderETag))
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	require.EqualValues(t, 1, atomic.LoadInt32(&h.calls))

	keys := h.cache.Keys()
	require.Len(t, keys, 1)
	require.True(t, strings.HasPrefix(keys[0], caching.HTTPResponsePrefix("cities")))
}

func TestHTTPCache_ConditionalRequests(t *testing.T) {
	h := newCacheHarness(t, nil)
	etag := h.do(http.MethodGet, "/api/v1/cities", nil).Header().Get(middleware.HeaderETag)

	for _, inm := range []string{etag, "W/" + etag, `"other", ` + etag, "*"} {
		rec := h.do(http.MethodGet, "/api/v1/cities", map[string]string{middleware.HeaderIfNoneMatch: inm})
		require.Equal(t, http.StatusNotModified, rec.Code, inm)
		require.Empty(t, rec.Body.String())
		require.Equal(t, etag, rec.Header().Get(middleware.HeaderETag))
	}

	stale := h.do(http.MethodGet, "/api/v1/cities", map[string]string{middleware.HeaderIfNoneMatch: `"stale"`})
	require.Equal(t, http.StatusOK, stale.Code)
	require.Equal(t, `{"items":[1,2,3]}`, stale.Body.String())
	require.Equal(t, etag, stale.Header().Get(middleware.HeaderETag))
}

func TestHTTPCache_ConditionalOnMiss(t *testing.T) {
	h := newCacheHarness(t, nil)
	etag := middleware.ETag([]byte(`{"items":[1,2,3]}`))

	rec := h.do(http.MethodGet, "/api/v1/bookings", map[string]string{middleware.HeaderIfNoneMatch: etag})
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Equal(t, middleware.CacheMiss, rec.Header().Get(middleware.HeaderXCache))
	require.Len(t, h.cache.Keys(), 1)
}

func TestHTTPCache_SubjectAndQueryAreFingerprinted(t *testing.T) {
	h := newCacheHarness(t, nil)
	a, b := uuid.NewString(), uuid.NewString()

	h.do(http.MethodGet, "/api/v1/bookings", map[string]string{"X-Test-Subject": a})
	rec := h.do(http.MethodGet, "/api/v1/bookings", map[string]string{"X-Test-Subject": b})
	require.Equal(t, middleware.CacheMiss, rec.Header().Get(middleware.HeaderXCache))

	// parameter order does not matter
	h.do(http.MethodGet, "/api/v1/cities?a=1&b=2", nil)
	rec = h.do(http.MethodGet, "/api/v1/cities?b=2&a=1", nil)
	require.Equal(t, middleware.CacheHit, rec.Header().Get(middleware.HeaderXCache))
	require.EqualValues(t, 3, atomic.LoadInt32(&h.calls))
}

func TestHTTPCache_PassThrough(t *testing.T) {
	h := newCacheHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/v1/cities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get(middleware.HeaderXCache))

	rec = h.do(http.MethodGet, "/api/v1/services", nil)
	require.Empty(t, rec.Header().Get(middleware.HeaderXCache))
	require.Empty(t, rec.Header().Get(middleware.HeaderETag))
	require.Empty(t, h.cache.Keys())
}

func TestHTTPCache_OnlyStoresOK(t *testing.T) {
	h := newCacheHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/v1/cities/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/cities/accepted", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "later", rec.Body.String())
	require.Empty(t, rec.Header().Get(middleware.HeaderETag))

	require.Empty(t, h.cache.Keys())
	h.do(http.MethodGet, "/api/v1/cities/missing", nil)
	require.EqualValues(t, 3, atomic.LoadInt32(&h.calls))
}

func TestHTTPCache_StoreFaultFallsBackToHandler(t *testing.T) {
	failing := tmocks.FailingCache(errors.New("i/o timeout"))
	h := newCacheHarness(t, failing)

	for i := 0; i < 2; i++ {
		rec := h.do(http.MethodGet, "/api/v1/cities", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, `{"items":[1,2,3]}`, rec.Body.String())
		require.Equal(t, middleware.CacheBypass, rec.Header().Get(middleware.HeaderXCache))
	}
	require.EqualValues(t, 2, atomic.LoadInt32(&h.calls))
}

func TestHTTPCache_SetFaultStillServesFreshBody(t *testing.T) {
	store := &tmocks.CacheMock{
		SetFn: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			return errors.New("read-only replica")
		},
	}
	h := newCacheHarness(t, store)
	rec := h.do(http.MethodGet, "/api/v1/cities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"items":[1,2,3]}`, rec.Body.String())
	require.Equal(t, middleware.CacheBypass, rec.Header().Get(middleware.HeaderXCache))
	require.NotEmpty(t, rec.Header().Get(middleware.HeaderETag))
}

func TestHTTPCache_PurgedResourceRecomputes(t *testing.T) {
	h := newCacheHarness(t, nil)
	before := h.do(http.MethodGet, "/api/v1/cities", nil).Header().Get(middleware.HeaderETag)

	h.body.Store(`{"items":[1,2,3,4]}`)
	_, err := h.cache.DeleteByPrefix(context.Background(), caching.HTTPResponsePrefix(caching.ResourceCities))
	require.NoError(t, err)

	rec := h.do(http.MethodGet, "/api/v1/cities", map[string]string{middleware.HeaderIfNoneMatch: before})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, middleware.CacheMiss, rec.Header().Get(middleware.HeaderXCache))
	require.NotEqual(t, before, rec.Header().Get(middleware.HeaderETag))
}

func TestHTTPCache_HeadUsesGetEntry(t *testing.T) {
	h := newCacheHarness(t, nil)
	h.do(http.MethodGet, "/api/v1/cities", nil)

	rec := h.do(http.MethodHead, "/api/v1/cities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, middleware.CacheHit, rec.Header().Get(middleware.HeaderXCache))
	require.Empty(t, rec.Body.String())
	require.EqualValues(t, 1, atomic.LoadInt32(&h.calls))
}

func TestHTTPCache_HeadMissComputesAndStores(t *testing.T) {
	h := newCacheHarness(t, nil)

	rec := h.do(http.MethodHead, "/api/v1/cities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, middleware.CacheMiss, rec.Header().Get(middleware.HeaderXCache))
	require.Equal(t, middleware.ETag([]byte(`{"items":[1,2,3]}`)), rec.Header().Get(middleware.HeaderETag))
	require.Empty(t, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/cities", nil)
	require.Equal(t, middleware.CacheHit, rec.Header().Get(middleware.HeaderXCache))
	require.Equal(t, `{"items":[1,2,3]}`, rec.Body.String())
	require.EqualValues(t, 1, atomic.LoadInt32(&h.calls))
}

func TestFingerprint_Distinct(t *testing.T) {
	base := middleware.Fingerprint("GET", "/api/v1/cities", "a=1", "u1")
	require.Equal(t, base, middleware.Fingerprint("GET", "/api/v1/cities", "a=1", "u1"))
	require.NotEqual(t, base, middleware.Fingerprint("GET", "/api/v1/cities", "a=1", "u2"))
	require.NotEqual(t, base, middleware.Fingerprint("GET", "/api/v1/cities", "a=2", "u1"))
	require.NotEqual(t, base, middleware.Fingerprint("GET", "/api/v1/cities/x", "a=1", "u1"))
	require.NotEqual(t, middleware.Fingerprint("GET", "/a", "b", ""), middleware.Fingerprint("GET", "/a\nb", "", ""))
}
