package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionPrefix is the Redis key prefix for presence session hashes.
	SessionPrefix = "presence:"

	// SessionTTL bounds how long a presence record can outlive a crashed
	// server instance. Live servers refresh it on heartbeat activity.
	SessionTTL = 1 * time.Hour
)

// Session is the cross-process-visible record of one user's live connection.
// The REST side reads these to show online badges; the relay never does, the
// in-memory Registry stays authoritative for delivery decisions.
type Session struct {
	UserID      string `redis:"user_id"`
	ConnID      string `redis:"conn_id"`
	Server      string `redis:"server"` // which socket server instance holds the connection
	ConnectedAt int64  `redis:"connected_at"`
	LastActive  int64  `redis:"last_active"`
}

// SessionStore mirrors presence registrations into Redis.
type SessionStore struct {
	client     *redis.Client
	serverName string
}

// NewSessionStore creates a presence session store connected to Redis.
func NewSessionStore(redisAddr string, serverName string) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("presence: redis connection failed: %w", err)
	}

	return &SessionStore{client: client, serverName: serverName}, nil
}

// MarkOnline writes the presence record for a freshly registered user,
// overwriting any record from a previous connection.
func (s *SessionStore) MarkOnline(ctx context.Context, userID, connID string) error {
	key := SessionPrefix + userID
	now := time.Now().Unix()

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"user_id":      userID,
		"conn_id":      connID,
		"server":       s.serverName,
		"connected_at": now,
		"last_active":  now,
	})
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// MarkOffline deletes the presence record, but only if it is still owned by
// the given connection. The same reconnect race the Registry guards against
// applies here: a stale disconnect must not erase a fresher session.
func (s *SessionStore) MarkOffline(ctx context.Context, userID, connID string) error {
	key := SessionPrefix + userID

	current, err := s.client.HGet(ctx, key, "conn_id").Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if current != connID {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

// Touch refreshes the TTL and last-active timestamp for a live session.
func (s *SessionStore) Touch(ctx context.Context, userID string) error {
	key := SessionPrefix + userID
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "last_active", time.Now().Unix())
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get retrieves a presence session. Returns nil if the user has no record.
func (s *SessionStore) Get(ctx context.Context, userID string) (*Session, error) {
	key := SessionPrefix + userID
	var session Session
	if err := s.client.HGetAll(ctx, key).Scan(&session); err != nil {
		return nil, err
	}
	if session.UserID == "" {
		return nil, nil // not found
	}
	return &session, nil
}

// Close closes the Redis connection.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for use by other packages.
func (s *SessionStore) Client() *redis.Client {
	return s.client
}
