package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// LoginThrottle counts failed logins per key in Redis and locks the key once
// the count reaches maxAttempts within the window.
type LoginThrottle struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
	prefix      string
}

func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	return &LoginThrottle{
		redis:       client,
		maxAttempts: maxAttempts,
		window:      window,
		prefix:      "login",
	}
}

func (t *LoginThrottle) attemptsKey(key string) string {
	return fmt.Sprintf("%s:attempts:%s", t.prefix, strings.ToLower(key))
}

func (t *LoginThrottle) lockKey(key string) string {
	return fmt.Sprintf("%s:lock:%s", t.prefix, strings.ToLower(key))
}

func (t *LoginThrottle) Locked(ctx context.Context, key string) (bool, error) {
	n, err := t.redis.Exists(ctx, t.lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("check login lock: %w", err)
	}
	return n > 0, nil
}

// RegisterFailure records one failed attempt and reports whether the key is now locked.
func (t *LoginThrottle) RegisterFailure(ctx context.Context, key string) (bool, error) {
	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, t.attemptsKey(key))
	pipe.Expire(ctx, t.attemptsKey(key), t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("record failed login: %w", err)
	}

	if incr.Val() < int64(t.maxAttempts) {
		return false, nil
	}

	pipe = t.redis.TxPipeline()
	pipe.Set(ctx, t.lockKey(key), "1", t.window)
	pipe.Del(ctx, t.attemptsKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("lock login: %w", err)
	}

	return true, nil
}

func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	if err := t.redis.Del(ctx, t.attemptsKey(key), t.lockKey(key)).Err(); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}

// Noop never locks. Used when no Redis is configured.
type Noop struct{}

func (Noop) Locked(context.Context, string) (bool, error) { return false, nil }

func (Noop) RegisterFailure(context.Context, string) (bool, error) { return false, nil }

func (Noop) Reset(context.Context, string) error { return nil }
