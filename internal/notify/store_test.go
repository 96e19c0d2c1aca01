package notify

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestStore creates a Store connected to a local Redis instance and flushes
// all test keys before returning. Tests that call this helper require a
// running Redis on localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	cleanup := func() {
		for _, pattern := range []string{UnreadPrefix + "test_*", LastSeenPrefix + "test_*"} {
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
	return NewStore(client)
}

func TestUnread_Empty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	counts, err := store.Unread(ctx, "test_nobody")
	if err != nil {
		t.Fatalf("Unread() error: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("expected no counters, got %v", counts)
	}
}

func TestIncrAndReadUnread(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.IncrUnread(ctx, "test_alice", "chat-1"); err != nil {
			t.Fatalf("IncrUnread() error: %v", err)
		}
	}
	if err := store.IncrUnread(ctx, "test_alice", "chat-2"); err != nil {
		t.Fatalf("IncrUnread() error: %v", err)
	}

	counts, err := store.Unread(ctx, "test_alice")
	if err != nil {
		t.Fatalf("Unread() error: %v", err)
	}
	if counts["chat-1"] != 3 {
		t.Errorf("chat-1: expected 3, got %d", counts["chat-1"])
	}
	if counts["chat-2"] != 1 {
		t.Errorf("chat-2: expected 1, got %d", counts["chat-2"])
	}
}

func TestClearUnread(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.IncrUnread(ctx, "test_bob", "chat-1")
	store.IncrUnread(ctx, "test_bob", "chat-2")

	if err := store.ClearUnread(ctx, "test_bob", "chat-1"); err != nil {
		t.Fatalf("ClearUnread() error: %v", err)
	}

	counts, err := store.Unread(ctx, "test_bob")
	if err != nil {
		t.Fatalf("Unread() error: %v", err)
	}
	if _, ok := counts["chat-1"]; ok {
		t.Error("chat-1 counter should be gone after clear")
	}
	if counts["chat-2"] != 1 {
		t.Errorf("chat-2: expected 1, got %d", counts["chat-2"])
	}
}

func TestClearUnread_NoCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Clearing a counter that never existed is not an error.
	if err := store.ClearUnread(ctx, "test_nobody", "chat-1"); err != nil {
		t.Fatalf("ClearUnread() error: %v", err)
	}
}

func TestLastSeen_Unknown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts, err := store.LastSeen(ctx, "test_ghost")
	if err != nil {
		t.Fatalf("LastSeen() error: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("expected zero time for unknown user, got %v", ts)
	}
}

func TestSetAndGetLastSeen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := time.Now().Truncate(time.Second)
	if err := store.SetLastSeen(ctx, "test_carol", want); err != nil {
		t.Fatalf("SetLastSeen() error: %v", err)
	}

	got, err := store.LastSeen(ctx, "test_carol")
	if err != nil {
		t.Fatalf("LastSeen() error: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
