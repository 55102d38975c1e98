// Package caching implements cache-aside reads and key invalidation over a ports.Cache.
//
// Freshness is best-effort. A read that started before a mutation's invalidation may
// repopulate its key with pre-mutation data right after the delete; that entry lives
// until its TTL expires. Callers asking for stronger freshness must read the data store
// directly.
package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Producer fetches the authoritative value on a cache miss. It must be free of side effects.
type Producer[T any] func(ctx context.Context) (T, error)

// Options tunes Service behavior.
type Options struct {
	// Coalesce makes concurrent misses for the same key share a single Producer call
	// within this process. Without it every concurrent miss runs the producer.
	Coalesce bool
	// LoadTimeout bounds a coalesced producer call, which runs detached from the
	// caller's cancellation. Defaults to DefaultLoadTimeout.
	LoadTimeout time.Duration
}

const DefaultLoadTimeout = 10 * time.Second

// Service is the cache-aside core shared by the query facade and the HTTP interceptor.
type Service struct {
	cache       ports.Cache
	logger      *logrus.Logger
	coalesce    bool
	loadTimeout time.Duration
	group       singleflight.Group
}

func NewService(cache ports.Cache, logger *logrus.Logger, opts Options) *Service {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	return &Service{cache: cache, logger: logger, coalesce: opts.Coalesce, loadTimeout: opts.LoadTimeout}
}

// GetOrSet returns the cached value for key, or runs producer, stores its result with
// ttl and returns it. Cache faults never fail the call; producer errors are returned
// and nothing is cached.
func GetOrSet[T any](ctx context.Context, s *Service, key string, ttl time.Duration, producer Producer[T]) (T, error) {
	if v, ok := lookup[T](ctx, s, key); ok {
		return v, nil
	}
	if s == nil || !s.coalesce {
		return load(ctx, s, key, ttl, producer)
	}

	// The shared load outlives any single caller: one request going away must not
	// fail the others waiting on the same key. Each caller still honors its own ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		// another caller may have populated the key while we waited
		if v, ok := decode[T](s, key, s.getRaw(shared, key)); ok {
			return v, nil
		}
		return load(shared, s, key, ttl, producer)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	if res.Err != nil {
		var zero T
		return zero, res.Err
	}
	v, ok := res.Val.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("caching: unexpected type %T for key %s", res.Val, key)
	}
	return v, nil
}

func lookup[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T
	if s == nil || s.cache == nil {
		return zero, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		RecordLookup(LayerEntity, ResultError)
		s.warn(err, logrus.Fields{"key": key}, "cache get failed; treating as miss")
		return zero, false
	}
	if !ok {
		RecordLookup(LayerEntity, ResultMiss)
		return zero, false
	}
	v, ok := decode[T](s, key, b)
	if !ok {
		RecordLookup(LayerEntity, ResultError)
		return zero, false
	}
	RecordLookup(LayerEntity, ResultHit)
	return v, true
}

func (s *Service) getRaw(ctx context.Context, key string) []byte {
	if s.cache == nil {
		return nil
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	return b
}

func decode[T any](s *Service, key string, b []byte) (T, bool) {
	var v T
	if b == nil {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		s.warn(err, logrus.Fields{"key": key}, "cache entry undecodable; treating as miss")
		var zero T
		return zero, false
	}
	return v, true
}

func load[T any](ctx context.Context, s *Service, key string, ttl time.Duration, producer Producer[T]) (T, error) {
	v, err := producer(ctx)
	if err != nil {
		return v, err
	}
	if s != nil {
		s.setSilently(ctx, key, v, ttl)
	}
	return v, nil
}

// Prime stores value under key ahead of any read.
func (s *Service) Prime(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s == nil || s.cache == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	return s.cache.Set(ctx, key, b, ttl)
}

func (s *Service) setSilently(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := s.Prime(ctx, key, v, ttl); err != nil {
		s.warn(err, logrus.Fields{"key": key, "ttl": ttl.String()}, "cache set failed")
	}
}

// InvalidateExact deletes a single key.
func (s *Service) InvalidateExact(ctx context.Context, key string) error {
	if s == nil || s.cache == nil {
		return nil
	}
	err := s.cache.Delete(ctx, key)
	recordInvalidation("exact", err)
	if err != nil {
		s.warn(err, logrus.Fields{"key": key}, "cache invalidation failed")
		return err
	}
	s.debug(logrus.Fields{"key": key}, "cache key invalidated")
	return nil
}

// InvalidateByPrefix deletes every key starting with prefix.
func (s *Service) InvalidateByPrefix(ctx context.Context, prefix string) error {
	if s == nil || s.cache == nil {
		return nil
	}
	n, err := s.cache.DeleteByPrefix(ctx, prefix)
	recordInvalidation("prefix", err)
	if err != nil {
		s.warn(err, logrus.Fields{"prefix": prefix}, "cache prefix invalidation failed")
		return err
	}
	s.debug(logrus.Fields{"prefix": prefix, "deleted": n}, "cache prefix invalidated")
	return nil
}

// InvalidateOwner deletes key and every key nested under it (key + ":").
func (s *Service) InvalidateOwner(ctx context.Context, key string) error {
	errExact := s.InvalidateExact(ctx, key)
	errNested := s.InvalidateByPrefix(ctx, key+":")
	if errExact != nil {
		return errExact
	}
	return errNested
}

func (s *Service) warn(err error, fields logrus.Fields, msg string) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.WithFields(fields).WithError(err).Warn(msg)
}

func (s *Service) debug(fields logrus.Fields, msg string) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Debug(msg)
}
