package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
)

// CacheMock is a lightweight Fn-field mock for ports.Cache. Unset functions behave
// like an always-empty cache.
type CacheMock struct {
	GetFn            func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn            func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn         func(ctx context.Context, key string) error
	DeleteByPrefixFn func(ctx context.Context, prefix string) (int, error)
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	return nil, false, nil
}
func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, ttl)
	}
	return nil
}
func (m *CacheMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return nil
}
func (m *CacheMock) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if m.DeleteByPrefixFn != nil {
		return m.DeleteByPrefixFn(ctx, prefix)
	}
	return 0, nil
}
func (m *CacheMock) Close() error { return nil }

// FailingCache returns err from every operation.
func FailingCache(err error) *CacheMock {
	return &CacheMock{
		GetFn:            func(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, err },
		SetFn:            func(ctx context.Context, key string, value []byte, ttl time.Duration) error { return err },
		DeleteFn:         func(ctx context.Context, key string) error { return err },
		DeleteByPrefixFn: func(ctx context.Context, prefix string) (int, error) { return 0, err },
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process ports.Cache with per-key expiry driven by Now.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	Now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), Now: time.Now}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.Now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryCache) Close() error { return nil }

// Keys returns the live keys, for assertions.
func (m *MemoryCache) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Has reports whether key is present (ignoring expiry).
func (m *MemoryCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

var _ ports.Cache = (*CacheMock)(nil)
var _ ports.Cache = (*MemoryCache)(nil)
