package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

const (
	HeaderETag        = "ETag"
	HeaderIfNoneMatch = "If-None-Match"
	HeaderXCache      = "X-Cache"

	CacheHit    = "HIT"
	CacheMiss   = "MISS"
	CacheBypass = "BYPASS"
)

// HTTPCacheConfig selects which GET endpoints are cached and for how long.
type HTTPCacheConfig struct {
	// BasePath is the API prefix; a request is cacheable when the first path segment
	// after it names one of Resources.
	BasePath  string
	Resources []string
	TTL       time.Duration
}

// storedResponse is the cached form of a whole response.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// HTTPCacheMiddleware caches whole GET responses keyed by a fingerprint of the
// request, answers conditional requests with 304 and reports X-Cache. A failing
// cache never fails the request.
type HTTPCacheMiddleware struct {
	cache     ports.Cache
	basePath  string
	resources map[string]struct{}
	ttl       time.Duration
	logger    *logrus.Logger
}

func NewHTTPCacheMiddleware(cache ports.Cache, cfg HTTPCacheConfig, logger *logrus.Logger) *HTTPCacheMiddleware {
	if cfg.TTL <= 0 {
		cfg.TTL = 300 * time.Second
	}
	res := make(map[string]struct{}, len(cfg.Resources))
	for _, r := range cfg.Resources {
		res[strings.Trim(r, "/")] = struct{}{}
	}
	return &HTTPCacheMiddleware{
		cache:     cache,
		basePath:  "/" + strings.Trim(cfg.BasePath, "/"),
		resources: res,
		ttl:       cfg.TTL,
		logger:    logger,
	}
}

// ETag returns the strong entity tag of body.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// Fingerprint identifies a read by method, path, canonical query and subject.
func Fingerprint(method, path, canonicalQuery, subject string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write([]byte(canonicalQuery))
	h.Write([]byte{'\n'})
	h.Write([]byte(subject))
	return hex.EncodeToString(h.Sum(nil))
}

// resource returns the allow-listed resource the path belongs to.
func (m *HTTPCacheMiddleware) resource(path string) (string, bool) {
	rest := strings.TrimPrefix(path, m.basePath+"/")
	if rest == path {
		return "", false
	}
	seg := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		seg = rest[:i]
	}
	_, ok := m.resources[seg]
	return seg, ok
}

func (m *HTTPCacheMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			resource, ok := m.resource(req.URL.Path)
			if !ok {
				return next(c)
			}

			// HEAD shares the GET entry
			fp := Fingerprint(http.MethodGet, req.URL.Path, req.URL.Query().Encode(), helpers.SubjectID(c))
			key := caching.HTTPResponseKey(resource, fp)
			ctx := req.Context()

			raw, found, err := m.cache.Get(ctx, key)
			if err != nil {
				caching.RecordLookup(caching.LayerHTTP, caching.ResultError)
				m.warn(err, key, "http cache lookup failed; bypassing")
				c.Response().Header().Set(HeaderXCache, CacheBypass)
				return next(c)
			}
			if found {
				var stored storedResponse
				jerr := json.Unmarshal(raw, &stored)
				if jerr == nil {
					caching.RecordLookup(caching.LayerHTTP, caching.ResultHit)
					return m.replay(c, &stored)
				}
				m.warn(jerr, key, "undecodable http cache entry")
			}
			caching.RecordLookup(caching.LayerHTTP, caching.ResultMiss)
			return m.compute(c, next, key)
		}
	}
}

func (m *HTTPCacheMiddleware) replay(c echo.Context, stored *storedResponse) error {
	etag := ETag(stored.Body)
	h := c.Response().Header()
	h.Set(HeaderETag, etag)
	h.Set(HeaderXCache, CacheHit)
	if ifNoneMatch(c.Request().Header.Get(HeaderIfNoneMatch), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	if c.Request().Method == http.MethodHead {
		h.Set(echo.HeaderContentType, stored.ContentType)
		return c.NoContent(stored.Status)
	}
	return c.Blob(stored.Status, stored.ContentType, stored.Body)
}

// compute runs the handler into a buffer so the ETag can be set before the body
// is written, then stores successful responses. HEAD computes the GET body,
// stores it and sends headers only.
func (m *HTTPCacheMiddleware) compute(c echo.Context, next echo.HandlerFunc, key string) error {
	res := c.Response()
	orig := res.Writer
	capture := &captureWriter{header: orig.Header()}
	res.Writer = capture
	err := next(c)
	res.Writer = orig

	if err != nil {
		// the error handler writes the response; flush anything already produced
		if capture.status != 0 {
			orig.WriteHeader(capture.status)
			_, _ = orig.Write(capture.buf.Bytes())
		}
		return err
	}

	status := capture.status
	if status == 0 {
		status = http.StatusOK
	}
	body := capture.buf.Bytes()
	h := orig.Header()

	outcome := CacheMiss
	if status == http.StatusOK {
		etag := ETag(body)
		h.Set(HeaderETag, etag)
		if serr := m.store(c.Request().Context(), key, status, h.Get(echo.HeaderContentType), body); serr != nil {
			m.warn(serr, key, "http cache store failed")
			outcome = CacheBypass
		}
		h.Set(HeaderXCache, outcome)
		if ifNoneMatch(c.Request().Header.Get(HeaderIfNoneMatch), etag) {
			res.Status = http.StatusNotModified
			orig.WriteHeader(http.StatusNotModified)
			return nil
		}
	} else {
		h.Set(HeaderXCache, outcome)
	}

	res.Status = status
	orig.WriteHeader(status)
	if c.Request().Method == http.MethodHead {
		return nil
	}
	_, werr := orig.Write(body)
	return werr
}

func (m *HTTPCacheMiddleware) store(ctx context.Context, key string, status int, contentType string, body []byte) error {
	raw, err := json.Marshal(storedResponse{Status: status, ContentType: contentType, Body: body})
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, key, raw, m.ttl)
}

func (m *HTTPCacheMiddleware) warn(err error, key, msg string) {
	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn(msg)
	}
}

// ifNoneMatch reports whether header matches etag using weak comparison.
func ifNoneMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

// captureWriter buffers a handler's output. Headers go straight to the real
// response's header map.
type captureWriter struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) Header() http.Header { return w.header }

func (w *captureWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(b)
}
