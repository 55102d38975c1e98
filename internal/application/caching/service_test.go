package caching_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	tmocks "github.com/avatarctic/services-marketplace/test/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
}

func constant(name string, calls *int32) caching.Producer[*profile] {
	return func(ctx context.Context) (*profile, error) {
		atomic.AddInt32(calls, 1)
		return &profile{Name: name}, nil
	}
}

func TestGetOrSet_PopulatesThenServesCachedValue(t *testing.T) {
	cache := tmocks.NewMemoryCache()
	svc := caching.NewService(cache, logrus.New(), caching.Options{})
	ctx := context.Background()
	var calls int32

	v, err := caching.GetOrSet(ctx, svc, "user:1", time.Minute, constant("first", &calls))
	require.NoError(t, err)
	require.Equal(t, "first", v.Name)

	v, err = caching.GetOrSet(ctx, svc, "user:1", time.Minute, constant("second", &calls))
	require.NoError(t, err)
	assert.Equal(t, "first", v.Name)
	assert.EqualValues(t, 1, calls)
}

func TestGetOrSet_RecomputesAfterTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := tmocks.NewMemoryCache()
	cache.Now = func() time.Time { return now }
	svc := caching.NewService(cache, nil, caching.Options{})
	ctx := context.Background()
	var calls int32

	_, err := caching.GetOrSet(ctx, svc, "k", 10*time.Second, constant("first", &calls))
	require.NoError(t, err)

	now = now.Add(11 * time.Second)
	v, err := caching.GetOrSet(ctx, svc, "k", 10*time.Second, constant("second", &calls))
	require.NoError(t, err)
	assert.Equal(t, "second", v.Name)
}

func TestGetOrSet_RecomputesAfterInvalidation(t *testing.T) {
	cache := tmocks.NewMemoryCache()
	svc := caching.NewService(cache, nil, caching.Options{})
	ctx := context.Background()
	var calls int32

	_, _ = caching.GetOrSet(ctx, svc, "bookings:user:u1", time.Minute, constant("first", &calls))
	_, _ = caching.GetOrSet(ctx, svc, "bookings:user:u1:pending", time.Minute, constant("first", &calls))
	_, _ = caching.GetOrSet(ctx, svc, "bookings:user:u10", time.Minute, constant("first", &calls))

	require.NoError(t, svc.InvalidateOwner(ctx, "bookings:user:u1"))
	assert.False(t, cache.Has("bookings:user:u1"))
	assert.False(t, cache.Has("bookings:user:u1:pending"))
	assert.True(t, cache.Has("bookings:user:u10"))

	v, err := caching.GetOrSet(ctx, svc, "bookings:user:u1", time.Minute, constant("second", &calls))
	require.NoError(t, err)
	assert.Equal(t, "second", v.Name)
}

func TestGetOrSet_ProducerErrorIsReturnedAndNotCached(t *testing.T) {
	cache := tmocks.NewMemoryCache()
	svc := caching.NewService(cache, nil, caching.Options{})
	boom := errors.New("db down")

	_, err := caching.GetOrSet(context.Background(), svc, "user:x", time.Minute, func(ctx context.Context) (*profile, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, cache.Has("user:x"))
}

func TestGetOrSet_StoreFaultFallsBackToProducer(t *testing.T) {
	svc := caching.NewService(tmocks.FailingCache(ports.ErrCacheUnavailable), logrus.New(), caching.Options{Coalesce: true})
	var calls int32

	for i := 0; i < 3; i++ {
		v, err := caching.GetOrSet(context.Background(), svc, "user:1", time.Minute, constant("fresh", &calls))
		require.NoError(t, err)
		require.Equal(t, "fresh", v.Name)
	}
	assert.EqualValues(t, 3, calls)
}

func TestGetOrSet_UndecodableEntryIsAMiss(t *testing.T) {
	cache := tmocks.NewMemoryCache()
	require.NoError(t, cache.Set(context.Background(), "user:1", []byte("{not json"), time.Minute))
	svc := caching.NewService(cache, nil, caching.Options{})
	var calls int32

	v, err := caching.GetOrSet(context.Background(), svc, "user:1", time.Minute, constant("fresh", &calls))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v.Name)

	v, err = caching.GetOrSet(context.Background(), svc, "user:1", time.Minute, constant("other", &calls))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v.Name)
}

func TestGetOrSet_CoalescesConcurrentMisses(t *testing.T) {
	cache := tmocks.NewMemoryCache()
	svc := caching.NewService(cache, nil, caching.Options{Coalesce: true})
	var calls int32
	release := make(chan struct{})
	producer := func(ctx context.Context) (*profile, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &profile{Name: "shared"}, nil
	}

	var wg sync.WaitGroup
	started := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			v, err := caching.GetOrSet(context.Background(), svc, "services:all", time.Minute, producer)
			assert.NoError(t, err)
			assert.Equal(t, "shared", v.Name)
		}()
	}
	for i := 0; i < 8; i++ {
		<-started
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.True(t, cache.Has("services:all"))
}

func TestGetOrSet_CancelledLeaderDoesNotFailFollowers(t *testing.T) {
	cache := tmocks.NewMemoryCache()
	svc := caching.NewService(cache, nil, caching.Options{Coalesce: true})
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	producer := func(ctx context.Context) (*profile, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return &profile{Name: "shared"}, nil
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := caching.GetOrSet(leaderCtx, svc, "user:1", time.Minute, producer)
		leaderErr <- err
	}()
	<-entered

	type result struct {
		v   *profile
		err error
	}
	follower := make(chan result, 1)
	go func() {
		v, err := caching.GetOrSet(context.Background(), svc, "user:1", time.Minute, producer)
		follower <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "shared", got.v.Name)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.True(t, cache.Has("user:1"))
}

func TestInvalidate_ReturnsStoreErrors(t *testing.T) {
	boom := errors.New("unreachable")
	svc := caching.NewService(tmocks.FailingCache(boom), nil, caching.Options{})

	assert.ErrorIs(t, svc.InvalidateExact(context.Background(), "user:1"), boom)
	assert.ErrorIs(t, svc.InvalidateByPrefix(context.Background(), "locations:"), boom)
}

func TestNilCacheAlwaysProduces(t *testing.T) {
	svc := caching.NewService(nil, nil, caching.Options{})
	var calls int32
	_, _ = caching.GetOrSet(context.Background(), svc, "k", time.Minute, constant("a", &calls))
	_, _ = caching.GetOrSet(context.Background(), svc, "k", time.Minute, constant("a", &calls))
	assert.EqualValues(t, 2, calls)
	assert.NoError(t, svc.InvalidateExact(context.Background(), "k"))
}
