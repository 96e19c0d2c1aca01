package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestLimiter creates a Limiter connected to a local Redis instance and
// flushes leftover test keys before returning. Tests that call this helper
// require a running Redis on localhost:6379.
func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	cleanup := func() {
		for _, pattern := range []string{"rl:msg:test_*", "rl:typing:test_*"} {
			iter := client.Scan(ctx, 0, pattern, 100).Iterator()
			for iter.Next(ctx) {
				client.Del(ctx, iter.Val())
			}
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewLimiter(client)
}

func TestAllow_UnderLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:msg:", Limit: 3, Window: 10 * time.Second}

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "test_under", rule)
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !allowed {
			t.Fatalf("event %d should be allowed", i+1)
		}
	}
}

func TestAllow_OverLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:msg:", Limit: 2, Window: 10 * time.Second}

	limiter.Allow(ctx, "test_over", rule)
	limiter.Allow(ctx, "test_over", rule)

	allowed, err := limiter.Allow(ctx, "test_over", rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if allowed {
		t.Error("third event should be rejected with limit=2")
	}
}

func TestAllow_IdentifiersIsolated(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:msg:", Limit: 1, Window: 10 * time.Second}

	limiter.Allow(ctx, "test_iso_a", rule)

	allowed, err := limiter.Allow(ctx, "test_iso_b", rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if !allowed {
		t.Error("a different identifier should not share the counter")
	}
}

func TestAllow_WindowResets(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:msg:", Limit: 1, Window: time.Second}

	limiter.Allow(ctx, "test_reset", rule)
	if allowed, _ := limiter.Allow(ctx, "test_reset", rule); allowed {
		t.Fatal("second event in window should be rejected")
	}

	time.Sleep(1100 * time.Millisecond)

	allowed, err := limiter.Allow(ctx, "test_reset", rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if !allowed {
		t.Error("event after window expiry should be allowed")
	}
}

func TestRemaining(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:msg:", Limit: 5, Window: 10 * time.Second}

	remaining, err := limiter.Remaining(ctx, "test_remaining", rule)
	if err != nil {
		t.Fatalf("Remaining() error: %v", err)
	}
	if remaining != 5 {
		t.Errorf("fresh identifier: expected 5, got %d", remaining)
	}

	limiter.Allow(ctx, "test_remaining", rule)
	limiter.Allow(ctx, "test_remaining", rule)

	remaining, err = limiter.Remaining(ctx, "test_remaining", rule)
	if err != nil {
		t.Fatalf("Remaining() error: %v", err)
	}
	if remaining != 3 {
		t.Errorf("after 2 events: expected 3, got %d", remaining)
	}
}
