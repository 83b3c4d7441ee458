// Package ratelimiter throttles authentication attempts per account.
package ratelimiter

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const evictEvery = 256

// LoginLimiter applies a token bucket per normalized email and evicts idle
// buckets periodically so the map stays bounded.
type LoginLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter returns nil for non-positive arguments; a nil limiter
// allows everything.
func NewLoginLimiter(rps float64, burst int, idleTTL time.Duration) *LoginLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 15 * time.Minute
	}
	return &LoginLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether a login attempt for email may proceed at now.
func (l *LoginLimiter) Allow(email string, now time.Time) bool {
	if l == nil {
		return true
	}
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	l.calls++
	if l.calls%evictEvery == 0 {
		l.evictIdleLocked(now)
	}
	return b.limiter.AllowN(now, 1)
}

func (l *LoginLimiter) evictIdleLocked(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
