package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/pn-backup/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunLock keeps two runs from overlapping. The pool's conditional update stays the
// correctness guarantee; the lock only avoids duplicate work and e-mails.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisRunLock struct {
	rc    *redis.Client
	key   string
	ttl   time.Duration
	token string
}

// NewRedisRunLock locks <prefix>run_lock for at most ttl
func NewRedisRunLock(rc *redis.Client, prefix string, ttl time.Duration) *RedisRunLock {
	return &RedisRunLock{
		rc:    rc,
		key:   redisKey(prefix, utils.RunLockKey),
		ttl:   ttl,
		token: uuid.NewString(),
	}
}

// Acquire takes the lock with SETNX and a TTL; false means another run holds it
func (l *RedisRunLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rc.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Key returns the redis key guarding runs
func (l *RedisRunLock) Key() string {
	return l.key
}

// Release deletes the lock if this process still owns it
func (l *RedisRunLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.rc, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release run lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// redisKey prefixes a key with the configured namespace
func redisKey(prefix, key string) string {
	return prefix + key
}
