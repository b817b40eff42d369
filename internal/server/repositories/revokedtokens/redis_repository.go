package revokedtokens

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each revoked id under its own key with a TTL equal
// to the token's remaining lifetime, so entries vanish on their own.
type RedisRepository struct {
	c *redis.Client
}

func NewRedisRepository(c *redis.Client) *RedisRepository {
	return &RedisRepository{c: c}
}

func revokedKey(tokenID string) string { return "revoked_token:" + tokenID }

func (r *RedisRepository) Create(ctx context.Context, token *models.RevokedToken) (bool, error) {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		// already unusable
		return false, nil
	}

	added, err := r.c.SetNX(ctx, revokedKey(token.TokenID), strconv.FormatInt(token.UserID, 10), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	return added, nil
}

func (r *RedisRepository) Exists(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.c.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op; Redis expires the keys itself.
func (r *RedisRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
