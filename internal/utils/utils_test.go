package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCacheRoundTrip(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	var got map[string]int
	found, err := GetCache(ctx, rdb, WalletKey("u1"), &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetCache(ctx, rdb, WalletKey("u1"), map[string]int{"points_balance": 42}, CacheTTL))
	found, err = GetCache(ctx, rdb, WalletKey("u1"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 42, got["points_balance"])

	mr.FastForward(CacheTTL + time.Second)
	found, err = GetCache(ctx, rdb, WalletKey("u1"), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateWallet(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	for _, key := range []string{WalletKey("u1"), TxHistoryKey("u1", 1, 20), TxHistoryKey("u1", 7, 50), TxHistoryKey("u2", 1, 20)} {
		require.NoError(t, SetCache(ctx, rdb, key, "x", CacheTTL))
	}
	require.NoError(t, InvalidateWallet(ctx, rdb, "u1"))

	assert.False(t, mr.Exists(WalletKey("u1")))
	assert.False(t, mr.Exists(TxHistoryKey("u1", 1, 20)))
	assert.False(t, mr.Exists(TxHistoryKey("u1", 7, 50)))
	assert.True(t, mr.Exists(TxHistoryKey("u2", 1, 20)))
}

func TestLock(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	lock, err := AcquireLock(ctx, rdb, "scheduler:daily", time.Minute)
	require.NoError(t, err)

	_, err = AcquireLock(ctx, rdb, "scheduler:daily", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("scheduler:daily"))

	again, err := AcquireLock(ctx, rdb, "scheduler:daily", time.Minute)
	require.NoError(t, err)

	// A stale owner cannot release a lock taken over after expiry
	mr.FastForward(2 * time.Minute)
	_, err = AcquireLock(ctx, rdb, "scheduler:daily", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
	assert.True(t, mr.Exists("scheduler:daily"))
}

func TestJWT(t *testing.T) {
	token, err := GenerateJWT("u1", RoleAdmin, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT("u1", "", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)

	anonymous, err := GenerateJWT("", "", "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(anonymous, "secret")
	assert.Error(t, err)
}
