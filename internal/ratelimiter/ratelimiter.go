// Package ratelimiter throttles API requests with token buckets.
//
// RateLimiter is a single bucket shared by every caller. ClientLimiter keeps
// one bucket per client key (typically the remote address) and forgets
// clients that stay idle.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlimited is used when a zero rate is configured.
const unlimited = 1_000_000_000

// RateLimiter wraps golang.org/x/time/rate.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained with bursts
// of up to burst requests. A zero rate disables limiting.
//
// Example:
//
//	// Allow 100 req/s sustained, 200 req/s burst
//	limiter := New(100, 200)
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes a token if one is available and reports whether it did.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently available.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps an independent token bucket per client key.
//
// Buckets of clients idle for longer than the idle timeout are dropped by
// Evict; Allow calls Evict itself at most once per idle period.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastEvict time.Time
}

// NewClientLimiter creates a per-client limiter. A zero rate disables
// limiting; a zero idle timeout defaults to ten minutes.
func NewClientLimiter(requestsPerSecond, burst uint, idle time.Duration) *ClientLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = requestsPerSecond
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	return &ClientLimiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   int(burst),
		idle:    idle,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// Allow consumes a token from key's bucket and reports whether one was
// available.
func (c *ClientLimiter) Allow(key string) bool {
	c.mu.Lock()
	now := c.now()

	if now.Sub(c.lastEvict) >= c.idle {
		c.evictLocked(now)
		c.lastEvict = now
	}

	bucket, ok := c.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[key] = bucket
	}
	bucket.lastSeen = now
	c.mu.Unlock()

	return bucket.limiter.AllowN(now, 1)
}

// Evict drops the buckets of clients idle for longer than the idle timeout
// and returns how many were dropped.
func (c *ClientLimiter) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked(c.now())
}

func (c *ClientLimiter) evictLocked(now time.Time) int {
	evicted := 0
	for key, bucket := range c.clients {
		if now.Sub(bucket.lastSeen) > c.idle {
			delete(c.clients, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked clients.
func (c *ClientLimiter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
