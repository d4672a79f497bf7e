package utils

import (
	"context" // Context for Redis operations
	"errors"  // Sentinel errors
	"time"    // Lock TTL

	"github.com/google/uuid"       // Lock owner tokens
	"github.com/redis/go-redis/v9" // Redis client
)

// ErrLockHeld is returned when another owner holds the lock
var ErrLockHeld = errors.New("lock is held by another owner")

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-owner Redis lock taken with SET NX
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// AcquireLock takes key for ttl or fails with ErrLockHeld
func AcquireLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString() // Unique owner token
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err // Redis error
	}
	if !ok {
		return nil, ErrLockHeld // Someone else owns it
	}
	return &Lock{rdb: rdb, key: key, token: token}, nil
}

// Release frees the lock if it is still ours
func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
