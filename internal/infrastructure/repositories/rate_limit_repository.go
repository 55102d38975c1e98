package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/application/services"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
)

// admitScript opens a window on the first action and counts admissions only, so
// rejected attempts neither consume budget nor extend the window.
// Returns {admitted, count, pttl}.
var admitScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('SET', KEYS[1], 0, 'PX', window)
  ttl = window
end
local n = tonumber(redis.call('GET', KEYS[1]))
if n < limit then
  n = redis.call('INCR', KEYS[1])
  return {1, n, ttl}
end
return {0, n, ttl}
`)

// RateLimitRedisRepository is a fixed-window ports.RateLimiter whose counters live
// in Redis so every API instance shares the same windows.
type RateLimitRedisRepository struct {
	r        redis.Cmdable
	prefix   string
	policies map[ports.ActionClass]services.RateLimitPolicy
	now      func() time.Time
	logger   *logrus.Logger
}

func NewRateLimitRedisRepository(r redis.Cmdable, keyPrefix string, policies map[ports.ActionClass]services.RateLimitPolicy, logger *logrus.Logger) *RateLimitRedisRepository {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RateLimitRedisRepository{
		r:        r,
		prefix:   keyPrefix,
		policies: services.ResolveRateLimitPolicies(policies),
		now:      time.Now,
		logger:   logger,
	}
}

func (repo *RateLimitRedisRepository) key(action ports.ActionClass, subjectID string) string {
	return fmt.Sprintf("%s:%s:%s", repo.prefix, action, subjectID)
}

func (repo *RateLimitRedisRepository) Check(ctx context.Context, action ports.ActionClass, subjectID string) (ports.RateLimitDecision, error) {
	policy, ok := repo.policies[action]
	if !ok {
		return ports.RateLimitDecision{}, fmt.Errorf("%w: %q", services.ErrUnknownActionClass, action)
	}

	res, err := admitScript.Run(ctx, repo.r, []string{repo.key(action, subjectID)}, policy.Limit, policy.Window.Milliseconds()).Slice()
	if err != nil {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit check: %w", err)
	}
	if len(res) != 3 {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit check: unexpected reply %v", res)
	}
	admitted, _ := res[0].(int64)
	count, _ := res[1].(int64)
	pttl, _ := res[2].(int64)

	ttl := time.Duration(pttl) * time.Millisecond
	d := ports.RateLimitDecision{
		Allowed: admitted == 1,
		Limit:   policy.Limit,
		ResetAt: repo.now().Add(ttl),
	}
	if d.Allowed {
		d.Remaining = policy.Limit - int(count)
	} else {
		d.RetryAfter = ttl
		if repo.logger != nil {
			repo.logger.WithFields(logrus.Fields{
				"action":      action,
				"subject_id":  subjectID,
				"retry_after": d.RetryAfterSeconds(),
			}).Info("rate limit exceeded")
		}
	}
	services.RecordRateLimitDecision(action, d.Allowed)
	return d, nil
}

var _ ports.RateLimiter = (*RateLimitRedisRepository)(nil)
