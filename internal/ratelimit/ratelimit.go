// Package ratelimit is a fixed-window request limiter stored in redis, so
// every API instance shares the same counters.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bikers:ratelimit:"

// Rule allows at most Max hits per Window. A zero Max disables the rule.
type Rule struct {
	Max    int
	Window time.Duration
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	client *redis.Client
}

// New returns a limiter over client. A nil client allows everything, which
// is how the API runs without redis.
func New(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Allow counts one hit for key under the named rule.
//
// The first hit in a window sets the expiry; the window does not slide.
func (l *Limiter) Allow(ctx context.Context, name, key string, rule Rule) (Result, error) {
	if !l.Enabled() || rule.Max <= 0 || rule.Window <= 0 {
		return Result{Allowed: true, Limit: rule.Max, Remaining: rule.Max}, nil
	}

	k := keyPrefix + name + ":" + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incr rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, rule.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("expire rate limit counter: %w", err)
		}
	}

	res := Result{
		Allowed:   count <= int64(rule.Max),
		Limit:     rule.Max,
		Remaining: max(rule.Max-int(count), 0),
	}
	if res.Allowed {
		return res, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("read rate limit ttl: %w", err)
	}
	if ttl < 0 {
		// Expiry was lost (crash between INCR and EXPIRE). Start a fresh window.
		_ = l.client.Expire(ctx, k, rule.Window).Err()
		ttl = rule.Window
	}
	res.RetryAfter = ttl
	return res, nil
}
