package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps codes in Redis with a TTL, so every instance of the
// service sees the same entries.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func codeKey(userID uuid.UUID) string {
	return fmt.Sprintf("otp:%s", userID.String())
}

// Set stores the code, overwriting any previous one for the user. Redis
// expiry enforces the TTL.
func (s *RedisStore) Set(ctx context.Context, userID uuid.UUID, code string) error {
	if err := s.client.Set(ctx, codeKey(userID), code, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

// Validate checks the submitted code. On a match the entry is deleted so
// the code is single-use; on a mismatch it is left in place.
func (s *RedisStore) Validate(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	key := codeKey(userID)

	stored, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read verification code: %w", err)
	}

	if stored != code {
		return false, nil
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("failed to consume verification code: %w", err)
	}

	return true, nil
}
