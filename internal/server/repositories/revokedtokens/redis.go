package revokedtokens

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:"

// RedisRepository implements Repository on Redis. Each revoked token becomes
// a key whose TTL equals the token's remaining lifetime, so the store cleans
// itself up without a background task.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository constructs a repository over an existing Redis client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Record(ctx context.Context, token string, accountID int64, expires time.Time) error {
	ttl := time.Until(expires)
	if ttl <= 0 {
		// Already expired, nothing to track.
		return nil
	}

	if err := r.client.Set(ctx, keyPrefix+token, strconv.FormatInt(accountID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}
