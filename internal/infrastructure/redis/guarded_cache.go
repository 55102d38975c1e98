package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// GuardConfig holds the per-call timeout and circuit breaker settings for GuardedCache.
type GuardConfig struct {
	Name      string
	OpTimeout time.Duration
	// PrefixTimeout bounds DeleteByPrefix, which may scan several batches.
	PrefixTimeout    time.Duration
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultGuardConfig returns sub-second call timeouts and a breaker that opens
// after most of a small sample fails.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Name:             "cache",
		OpTimeout:        250 * time.Millisecond,
		PrefixTimeout:    750 * time.Millisecond,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      10,
	}
}

// GuardedCache bounds every call to the inner cache with its own timeout and a
// circuit breaker. All failures come back wrapped in ports.ErrCacheUnavailable.
type GuardedCache struct {
	inner         ports.Cache
	timeout       time.Duration
	prefixTimeout time.Duration
	breaker       *gobreaker.CircuitBreaker
	logger        *logrus.Logger
}

func NewGuardedCache(inner ports.Cache, cfg GuardConfig, logger *logrus.Logger) *GuardedCache {
	def := DefaultGuardConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = def.OpTimeout
	}
	if cfg.PrefixTimeout <= 0 {
		cfg.PrefixTimeout = def.PrefixTimeout
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	g := &GuardedCache{inner: inner, timeout: cfg.OpTimeout, prefixTimeout: cfg.PrefixTimeout, logger: logger}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("cache circuit breaker state changed")
			}
		},
		IsSuccessful: func(err error) bool {
			// the caller giving up says nothing about the store
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return g
}

// State reports the breaker state.
func (g *GuardedCache) State() gobreaker.State {
	return g.breaker.State()
}

type getResult struct {
	value []byte
	ok    bool
}

func (g *GuardedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	res, err := g.breaker.Execute(func() (interface{}, error) {
		b, ok, err := g.inner.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{value: b, ok: ok}, nil
	})
	if err != nil {
		return nil, false, g.fault("get", key, err)
	}
	r := res.(getResult)
	return r.value, r.ok, nil
}

func (g *GuardedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.inner.Set(ctx, key, value, ttl)
	})
	if err != nil {
		return g.fault("set", key, err)
	}
	return nil
}

func (g *GuardedCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.inner.Delete(ctx, key)
	})
	if err != nil {
		return g.fault("delete", key, err)
	}
	return nil
}

func (g *GuardedCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.prefixTimeout)
	defer cancel()
	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.DeleteByPrefix(ctx, prefix)
	})
	if err != nil {
		return 0, g.fault("delete_prefix", prefix, err)
	}
	return res.(int), nil
}

func (g *GuardedCache) Close() error {
	return g.inner.Close()
}

func (g *GuardedCache) fault(op, key string, err error) error {
	if g.logger != nil {
		g.logger.WithFields(logrus.Fields{"op": op, "key": key, "breaker": g.breaker.State().String()}).WithError(err).Debug("cache call failed")
	}
	return fmt.Errorf("%w: %s %s: %w", ports.ErrCacheUnavailable, op, key, err)
}

var _ ports.Cache = (*GuardedCache)(nil)
