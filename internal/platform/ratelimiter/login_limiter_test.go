package ratelimiter

import (
	"testing"
	"time"
)

func TestLoginLimiterBurst(t *testing.T) {
	l := NewLoginLimiter(1, 3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow("alice@example.com", now) {
			t.Fatalf("attempt %d denied within burst", i)
		}
	}
	if l.Allow("alice@example.com", now) {
		t.Fatal("attempt allowed beyond burst")
	}

	// Other accounts have independent buckets.
	if !l.Allow("bob@example.com", now) {
		t.Fatal("unrelated account throttled")
	}
}

func TestLoginLimiterRefills(t *testing.T) {
	l := NewLoginLimiter(1, 1, time.Minute)
	now := time.Now()

	if !l.Allow("alice@example.com", now) {
		t.Fatal("first attempt denied")
	}
	if l.Allow("alice@example.com", now) {
		t.Fatal("second immediate attempt allowed")
	}
	if !l.Allow("alice@example.com", now.Add(2*time.Second)) {
		t.Fatal("attempt denied after refill window")
	}
}

func TestLoginLimiterNormalizesKey(t *testing.T) {
	l := NewLoginLimiter(1, 1, time.Minute)
	now := time.Now()

	if !l.Allow("Alice@Example.com", now) {
		t.Fatal("first attempt denied")
	}
	if l.Allow("  alice@example.com  ", now) {
		t.Fatal("case/whitespace variant got a fresh bucket")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *LoginLimiter
	for i := 0; i < 100; i++ {
		if !l.Allow("alice@example.com", time.Now()) {
			t.Fatal("nil limiter denied an attempt")
		}
	}
	if NewLoginLimiter(0, 5, time.Minute) != nil {
		t.Fatal("zero rps did not disable the limiter")
	}
	if NewLoginLimiter(1, 0, time.Minute) != nil {
		t.Fatal("zero burst did not disable the limiter")
	}
}

func TestLoginLimiterEvictsIdleBuckets(t *testing.T) {
	l := NewLoginLimiter(1, 1, time.Minute)
	start := time.Now()
	l.Allow("idle@example.com", start)

	// Drive enough calls through other keys to trigger an eviction sweep
	// after the idle TTL has passed.
	later := start.Add(2 * time.Minute)
	for i := 0; i < evictEvery+1; i++ {
		l.Allow("busy@example.com", later)
	}

	l.mu.Lock()
	_, ok := l.buckets["idle@example.com"]
	l.mu.Unlock()
	if ok {
		t.Fatal("idle bucket survived the eviction sweep")
	}
}
