package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/book-expert/tts-gateway/internal/core"
)

// AudioCache stores synthesized WAV bytes keyed by fingerprint, with a TTL.
// Entries are immutable for their lifetime; the backend's TTL policy is the
// only eviction.
type AudioCache struct {
	rdb *redis.Client
}

// NewAudioCache creates a cache over an established Redis client.
func NewAudioCache(rdb *redis.Client) *AudioCache {
	return &AudioCache{rdb: rdb}
}

// Get returns the cached audio for key. found=false with a nil error means
// the entry is absent; an ErrBackendUnavailable error means the cache could
// not be consulted and callers must treat the entry as "not cached".
func (c *AudioCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	audio, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("%w: cache get %q: %v", core.ErrBackendUnavailable, key, err)
	}

	return audio, true, nil
}

// Put stores audio under key, replacing any prior value and resetting the
// TTL. A Put that returns nil is visible to subsequent Gets.
func (c *AudioCache) Put(ctx context.Context, key string, audio []byte, ttl time.Duration) error {
	err := c.rdb.Set(ctx, key, audio, ttl).Err()
	if err != nil {
		return fmt.Errorf("%w: cache put %q: %v", core.ErrBackendUnavailable, key, err)
	}

	return nil
}
