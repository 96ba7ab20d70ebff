package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/book-expert/tts-gateway/internal/core"
)

// releaseScript deletes the lock only while the caller still owns it. A
// worker that lost its lock to TTL expiry must not delete a successor's
// lock, so plain DEL is never safe here.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// SynthLock is the Redis-backed single-flight lock. Acquisition is SET NX
// with a TTL and a fresh random owner token; release is an atomic
// compare-and-delete on that token.
type SynthLock struct {
	rdb     *redis.Client
	release *redis.Script
}

// NewSynthLock creates a lock manager over an established Redis client.
func NewSynthLock(rdb *redis.Client) *SynthLock {
	return &SynthLock{
		rdb:     rdb,
		release: redis.NewScript(releaseScript),
	}
}

// TryAcquire attempts to take lockKey for ttl. On success it returns the
// owner token required for release; acquired=false means another worker or
// proxy already holds the lock.
func (l *SynthLock) TryAcquire(
	ctx context.Context,
	lockKey string,
	ttl time.Duration,
) (string, bool, error) {
	token := uuid.NewString()

	acquired, err := l.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("%w: lock acquire %q: %v", core.ErrBackendUnavailable, lockKey, err)
	}

	if !acquired {
		return "", false, nil
	}

	return token, true, nil
}

// Release deletes lockKey if token still matches the stored owner. A
// mismatch (the lock expired and was re-taken) is a silent no-op.
func (l *SynthLock) Release(ctx context.Context, lockKey, token string) error {
	err := l.release.Run(ctx, l.rdb, []string{lockKey}, token).Err()
	if err != nil {
		return fmt.Errorf("%w: lock release %q: %v", core.ErrBackendUnavailable, lockKey, err)
	}

	return nil
}
