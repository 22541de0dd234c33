// Package ratelimit throttles scans per client, in memory or through Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter is satisfied by both MemoryLimiter and RedisLimiter
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

const idleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per client inside this process.
// A bucket holds perMinute tokens and refills at perMinute per minute.
type MemoryLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryLimiter creates a limiter allowing perMinute scans per client
func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &MemoryLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		now:     time.Now,
	}
}

// Allow consumes one token for key
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	client, ok := l.clients[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = client
	}
	client.lastSeen = now

	reservation := client.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return Decision{RetryAfter: time.Minute}, nil
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

// sweep drops buckets of clients idle for longer than idleTTL
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	l.lastSweep = now
	for key, client := range l.clients {
		if now.Sub(client.lastSeen) > idleTTL {
			delete(l.clients, key)
		}
	}
}
