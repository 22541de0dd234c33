package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "roaster:ratelimit:"
	window           = time.Minute
)

// RedisLimiter is a fixed one-minute window counter shared by every replica
type RedisLimiter struct {
	client    redis.Cmdable
	perMinute int
	prefix    string
	now       func() time.Time
}

// NewRedisLimiter creates a limiter backed by client
func NewRedisLimiter(client redis.Cmdable, perMinute int) *RedisLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RedisLimiter{
		client:    client,
		perMinute: perMinute,
		prefix:    defaultKeyPrefix,
		now:       time.Now,
	}
}

// Connect parses a redis:// URL and verifies the server answers
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Allow increments the counter of the current window for key
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	windowKey, retryAfter := l.windowKey(key, now)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() > int64(l.perMinute) {
		return Decision{RetryAfter: retryAfter}, nil
	}
	return Decision{Allowed: true}, nil
}

// windowKey returns the counter key for now and the time left in its window
func (l *RedisLimiter) windowKey(key string, now time.Time) (string, time.Duration) {
	start := now.Truncate(window)
	return l.prefix + key + ":" + strconv.FormatInt(start.Unix(), 10), start.Add(window).Sub(now)
}
