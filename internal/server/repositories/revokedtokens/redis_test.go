package revokedtokens

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisRepository(c), mr
}

func TestRedisRepository_CreateAndExists(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	tok := &models.RevokedToken{TokenID: "jti-1", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}
	added, err := repo.Create(ctx, tok)
	require.NoError(t, err)
	assert.True(t, added)

	// a second revoke of the same id is accepted but adds nothing
	added, err = repo.Create(ctx, tok)
	require.NoError(t, err)
	assert.False(t, added)

	ok, err = repo.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := mr.Get("revoked_token:jti-1")
	require.NoError(t, err)
	assert.Equal(t, "7", v)
	assert.Greater(t, mr.TTL("revoked_token:jti-1"), 59*time.Minute)
}

func TestRedisRepository_EntryExpires(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.RevokedToken{TokenID: "jti", UserID: 1, ExpiresAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	ok, err := repo.Exists(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisRepository_AlreadyExpiredIsSkipped(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	added, err := repo.Create(ctx, &models.RevokedToken{TokenID: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, mr.Exists("revoked_token:old"))

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisRepository_Unavailable(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.Close()

	_, err := repo.Exists(context.Background(), "jti")
	assert.Error(t, err)
}
