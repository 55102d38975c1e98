package health

import (
	"context"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
	infraDB "github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker pings the cache store. Works for single-node and cluster clients.
type redisHealthChecker struct{ client redis.UniversalClient }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// breakerHealthChecker reports the cache circuit breaker. An open breaker means
// reads are going straight to the database.
type breakerHealthChecker struct {
	name  string
	state func() gobreaker.State
}

func (b *breakerHealthChecker) Name() string { return b.name }
func (b *breakerHealthChecker) Check(ctx context.Context) error {
	if b.state() == gobreaker.StateOpen {
		return gobreaker.ErrOpenState
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.UniversalClient) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewBreakerHealthChecker reports unhealthy while state returns StateOpen.
func NewBreakerHealthChecker(name string, state func() gobreaker.State) ports.HealthChecker {
	return &breakerHealthChecker{name: name, state: state}
}
