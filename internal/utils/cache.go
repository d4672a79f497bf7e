package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"fmt"           // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// CacheTTL is how long read models stay cached
const CacheTTL = 60 * time.Second

// WalletKey is the cache key of a user's wallet
func WalletKey(userID string) string {
	return "wallet:user:" + userID
}

// TxHistoryKey is the cache key of one page of a user's transaction history
func TxHistoryKey(userID string, page, pageSize int) string {
	return fmt.Sprintf("txhistory:user:%s:page:%d:size:%d", userID, page, pageSize)
}

// WinnersKey is the cache key of a spin configuration's winners
func WinnersKey(configID uint) string {
	return fmt.Sprintf("spin:%d:winners", configID)
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeleteCachePattern deletes every key matching a glob pattern
func DeleteCachePattern(ctx context.Context, rdb *redis.Client, pattern string) error {
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator() // Walk matching keys in batches
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}

// InvalidateWallet drops the cached wallet and every cached history page of a user
func InvalidateWallet(ctx context.Context, rdb *redis.Client, userID string) error {
	if err := DeleteCache(ctx, rdb, WalletKey(userID)); err != nil {
		return err
	}
	return DeleteCachePattern(ctx, rdb, "txhistory:user:"+userID+":*")
}
