package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

const scanBatch = 500

// RedisCache implements ports.Cache using a Redis client.
type RedisCache struct {
	r redis.UniversalClient
	// optional key prefix to namespace entries
	prefix string
}

// NewRedisCache creates a new Redis-backed cache.
func NewRedisCache(r redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{r: r, prefix: prefix}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements Cache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ns := c.namespaced(key)
	val, err := c.r.Get(ctx, ns).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ns := c.namespaced(key)
	if ttl < 0 {
		ttl = 0
	}
	return c.r.Set(ctx, ns, value, ttl).Err()
}

// Delete implements Cache.Delete.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	ns := c.namespaced(key)
	return c.r.Del(ctx, ns).Err()
}

// DeleteByPrefix scans for matching keys and deletes them in batches. On a cluster
// every master is scanned.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	match := escapeGlob(c.namespaced(prefix)) + "*"
	if cluster, ok := c.r.(*redis.ClusterClient); ok {
		var (
			mu    sync.Mutex
			total int
		)
		err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			n, err := scanAndDelete(ctx, node, match)
			mu.Lock()
			total += n
			mu.Unlock()
			return err
		})
		return total, err
	}
	return scanAndDelete(ctx, c.r, match)
}

func scanAndDelete(ctx context.Context, r redis.Cmdable, match string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			// one DEL per key keeps cluster nodes free of CROSSSLOT errors
			pipe := r.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			cmds, err := pipe.Exec(ctx)
			if err != nil {
				return deleted, err
			}
			for _, cmd := range cmds {
				if ic, ok := cmd.(*redis.IntCmd); ok {
					deleted += int(ic.Val())
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.r.Close()
}

var _ ports.Cache = (*RedisCache)(nil)
