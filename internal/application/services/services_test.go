package services_test

import (
	"io"

	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/application/services"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	tmocks "github.com/avatarctic/services-marketplace/test/mocks"
	"github.com/sirupsen/logrus"
)

type fixture struct {
	store   *tmocks.Store
	cache   *tmocks.MemoryCache
	queries *services.CachedQueries
	hooks   *services.InvalidationHooks
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func repositoriesOf(s *tmocks.Store) services.Repositories {
	return services.Repositories{
		Users:      s.Users(),
		Cities:     s.Cities(),
		Categories: s.Categories(),
		Services:   s.Services(),
		Bookings:   s.Bookings(),
		Reviews:    s.Reviews(),
	}
}

func newFixture() *fixture {
	return newFixtureWithCache(tmocks.NewMemoryCache())
}

func newFixtureWithCache(c *tmocks.MemoryCache) *fixture {
	return newFixtureOver(c, c)
}

func newFixtureOver(mc *tmocks.MemoryCache, store ports.Cache) *fixture {
	logger := quietLogger()
	s := tmocks.NewStore()
	repos := repositoriesOf(s)
	svc := caching.NewService(store, logger, caching.Options{Coalesce: true})
	q := services.NewCachedQueries(repos, svc, services.DefaultTTLPolicy(), logger)
	return &fixture{
		store:   s,
		cache:   mc,
		queries: q,
		hooks:   services.NewInvalidationHooks(repos, q, logger),
	}
}
