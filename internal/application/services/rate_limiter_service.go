package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ErrUnknownActionClass is returned by Check for an action without a policy.
var ErrUnknownActionClass = errors.New("unknown rate limit action class")

// RateLimitExceededError carries the wait before the subject may act again.
type RateLimitExceededError struct {
	Action            ports.ActionClass
	RetryAfterSeconds int
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %ds", e.Action, e.RetryAfterSeconds)
}

// RateLimitPolicy admits Limit actions per Window.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	Policies      map[ports.ActionClass]RateLimitPolicy
	SweepInterval time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultRateLimitPolicies returns messaging at 10 per minute and disputes at 3 per day.
func DefaultRateLimitPolicies() map[ports.ActionClass]RateLimitPolicy {
	return map[ports.ActionClass]RateLimitPolicy{
		ports.ActionMessaging: {Limit: 10, Window: time.Minute},
		ports.ActionDispute:   {Limit: 3, Window: 24 * time.Hour},
	}
}

var rateLimitDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_decisions_total",
		Help: "Rate limiter admission decisions by action and outcome",
	},
	[]string{"action", "outcome"},
)

func init() {
	prometheus.MustRegister(rateLimitDecisionsTotal)
}

type windowKey struct {
	action  ports.ActionClass
	subject string
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiterService is an in-process fixed-window limiter keyed by (action, subject).
// A window opens on the first action and is replaced, not decremented, once it ends,
// so up to twice the limit can pass across a boundary.
type RateLimiterService struct {
	mu       sync.Mutex
	windows  map[windowKey]*rateWindow
	policies map[ports.ActionClass]RateLimitPolicy
	sweep    time.Duration
	now      func() time.Time
	logger   *logrus.Logger
}

// ResolveRateLimitPolicies overlays the complete entries of overrides on the defaults.
func ResolveRateLimitPolicies(overrides map[ports.ActionClass]RateLimitPolicy) map[ports.ActionClass]RateLimitPolicy {
	policies := DefaultRateLimitPolicies()
	for action, p := range overrides {
		if p.Limit > 0 && p.Window > 0 {
			policies[action] = p
		}
	}
	return policies
}

// RecordRateLimitDecision counts one admission decision.
func RecordRateLimitDecision(action ports.ActionClass, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	rateLimitDecisionsTotal.WithLabelValues(string(action), outcome).Inc()
}

func NewRateLimiterService(cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	var overrides map[ports.ActionClass]RateLimitPolicy
	sweep := 5 * time.Minute
	now := time.Now
	if cfg != nil {
		overrides = cfg.Policies
		if cfg.SweepInterval > 0 {
			sweep = cfg.SweepInterval
		}
		if cfg.Clock != nil {
			now = cfg.Clock
		}
	}
	return &RateLimiterService{
		windows:  make(map[windowKey]*rateWindow),
		policies: ResolveRateLimitPolicies(overrides),
		sweep:    sweep,
		now:      now,
		logger:   logger,
	}
}

// Policy returns the policy for action.
func (s *RateLimiterService) Policy(action ports.ActionClass) (RateLimitPolicy, bool) {
	p, ok := s.policies[action]
	return p, ok
}

func (s *RateLimiterService) Check(ctx context.Context, action ports.ActionClass, subjectID string) (ports.RateLimitDecision, error) {
	policy, ok := s.policies[action]
	if !ok {
		return ports.RateLimitDecision{}, fmt.Errorf("%w: %q", ErrUnknownActionClass, action)
	}

	s.mu.Lock()
	now := s.now()
	k := windowKey{action: action, subject: subjectID}
	w, exists := s.windows[k]
	if !exists || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(policy.Window)}
		s.windows[k] = w
	}
	d := ports.RateLimitDecision{Limit: policy.Limit, ResetAt: w.resetAt}
	if w.count < policy.Limit {
		w.count++
		d.Allowed = true
		d.Remaining = policy.Limit - w.count
	} else {
		d.RetryAfter = w.resetAt.Sub(now)
	}
	s.mu.Unlock()

	if !d.Allowed && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"action":      action,
			"subject_id":  subjectID,
			"retry_after": d.RetryAfterSeconds(),
		}).Info("rate limit exceeded")
	}
	RecordRateLimitDecision(action, d.Allowed)
	return d, nil
}

// Sweep drops every window that has ended by now and reports how many it removed.
func (s *RateLimiterService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked windows.
func (s *RateLimiterService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *RateLimiterService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 && s.logger != nil {
				s.logger.WithField("removed", n).Debug("rate limiter sweep")
			}
		}
	}
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)
