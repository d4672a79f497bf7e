package api

import (
	"context" // Context for Redis operations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging

	"lucky_spin/internal/utils" // Cache helpers
)

// Redis is optional: every helper below is a no-op on a nil client.

func cacheGet(ctx context.Context, rdb *redis.Client, key string, dest any) bool {
	if rdb == nil {
		return false
	}
	found, err := utils.GetCache(ctx, rdb, key, dest) // Try to get from cache
	return err == nil && found
}

func cacheSet(ctx context.Context, rdb *redis.Client, key string, value any) {
	if rdb == nil {
		return
	}
	_ = utils.SetCache(ctx, rdb, key, value, utils.CacheTTL) // Cache for a minute
}

func invalidateWallet(ctx context.Context, rdb *redis.Client, userIDs ...string) {
	if rdb == nil {
		return
	}
	for _, userID := range userIDs {
		if err := utils.InvalidateWallet(ctx, rdb, userID); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Wallet owner
				"error":   err.Error(), // Error message
			}).Warn("Failed to invalidate wallet cache")
		}
	}
}

func invalidateWinners(ctx context.Context, rdb *redis.Client, configID uint) {
	if rdb == nil {
		return
	}
	_ = utils.DeleteCache(ctx, rdb, utils.WinnersKey(configID)) // Invalidate winners cache
}
