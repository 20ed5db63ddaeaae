package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionTTL   = 7 * 24 * time.Hour
	presenceTTL  = 5 * time.Minute
	rateLimitTTL = time.Minute
)

// RedisStore handles Redis operations: session tokens, post rate limiting
// and a hot presence cache. All chat data lives in the SQL store; Redis only
// carries state that is cheap to lose.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that needs raw access.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func sessionKey(token string) string {
	return "session:" + token
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("presence:%d", userID)
}

func rateLimitKey(userID int64) string {
	return fmt.Sprintf("ratelimit:post:%d", userID)
}

// PutSession stores a session token for a user.
func (s *RedisStore) PutSession(ctx context.Context, token string, userID int64) error {
	return s.client.Set(ctx, sessionKey(token), userID, sessionTTL).Err()
}

// GetSession resolves a session token to a user id. Returns (0, nil) for an
// unknown or expired token.
func (s *RedisStore) GetSession(ctx context.Context, token string) (int64, error) {
	id, err := s.client.Get(ctx, sessionKey(token)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteSession removes a session token.
func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// MarkActive records recent activity for a user in the presence cache.
func (s *RedisStore) MarkActive(ctx context.Context, userID int64, at time.Time) error {
	return s.client.Set(ctx, presenceKey(userID), at.UnixMilli(), presenceTTL).Err()
}

// IncrPostCount increments a user's posts-per-minute counter and returns the
// new count. The counter expires on its own; callers compare against their
// limit.
func (s *RedisStore) IncrPostCount(ctx context.Context, userID int64) (int64, error) {
	key := rateLimitKey(userID)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		s.client.Expire(ctx, key, rateLimitTTL)
	}
	return n, nil
}
