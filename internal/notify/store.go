// Package notify maintains per-user unread counters and last-seen
// timestamps in Redis, fed by the relay's NATS event feed. The counters back
// badge counts in the client; they are advisory and reconciled against
// persisted history on read.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// UnreadPrefix is the Redis key prefix for per-user unread hashes
	// (field = chat ID, value = count).
	UnreadPrefix = "unread:"

	// LastSeenPrefix is the Redis key prefix for last-seen timestamps.
	LastSeenPrefix = "lastseen:"

	// UnreadTTL bounds how long an untouched unread hash survives.
	UnreadTTL = 30 * 24 * time.Hour
)

// Store manages unread counters and last-seen records in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a notify store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// IncrUnread bumps the unread counter for one chat of one user, refreshing
// the hash TTL.
func (s *Store) IncrUnread(ctx context.Context, userID, chatID string) error {
	key := UnreadPrefix + userID
	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, key, chatID, 1)
	pipe.Expire(ctx, key, UnreadTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// ClearUnread resets the unread counter for one chat of one user.
func (s *Store) ClearUnread(ctx context.Context, userID, chatID string) error {
	return s.client.HDel(ctx, UnreadPrefix+userID, chatID).Err()
}

// Unread returns the user's unread counts keyed by chat ID.
func (s *Store) Unread(ctx context.Context, userID string) (map[string]int64, error) {
	fields, err := s.client.HGetAll(ctx, UnreadPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("notify: read unread counters: %w", err)
	}

	counts := make(map[string]int64, len(fields))
	for chatID, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue // skip corrupted fields rather than failing the read
		}
		counts[chatID] = n
	}
	return counts, nil
}

// SetLastSeen records when a user was last connected.
func (s *Store) SetLastSeen(ctx context.Context, userID string, ts time.Time) error {
	return s.client.Set(ctx, LastSeenPrefix+userID, ts.Unix(), 0).Err()
}

// LastSeen returns the user's last-seen time, or zero time if unknown.
func (s *Store) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	raw, err := s.client.Get(ctx, LastSeenPrefix+userID).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("notify: read last seen: %w", err)
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("notify: parse last seen: %w", err)
	}
	return time.Unix(sec, 0), nil
}
