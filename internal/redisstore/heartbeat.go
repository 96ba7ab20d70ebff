package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/book-expert/tts-gateway/internal/core"
)

const (
	heartbeatKeyFormat = "tts:worker:heartbeat:%s"
	heartbeatScanMatch = "tts:worker:heartbeat:*"
	heartbeatScanCount = 64
)

// Heartbeat records worker liveness in the KV so the health endpoint can
// report how stale the pool is. Keys expire on their own, so a crashed
// worker disappears after the TTL.
type Heartbeat struct {
	rdb *redis.Client
}

// NewHeartbeat creates a heartbeat recorder over an established Redis client.
func NewHeartbeat(rdb *redis.Client) *Heartbeat {
	return &Heartbeat{rdb: rdb}
}

// Beat refreshes the calling worker's heartbeat key.
func (h *Heartbeat) Beat(ctx context.Context, workerID string, ttl time.Duration) error {
	key := fmt.Sprintf(heartbeatKeyFormat, workerID)

	err := h.rdb.Set(ctx, key, strconv.FormatInt(time.Now().Unix(), 10), ttl).Err()
	if err != nil {
		return fmt.Errorf("%w: heartbeat for worker %q: %v", core.ErrBackendUnavailable, workerID, err)
	}

	return nil
}

// YoungestAge returns the age of the most recent worker heartbeat, and
// ok=false when no live worker key exists.
func (h *Heartbeat) YoungestAge(ctx context.Context) (time.Duration, bool, error) {
	var (
		cursor   uint64
		youngest int64
		found    bool
	)

	for {
		keys, next, err := h.rdb.Scan(ctx, cursor, heartbeatScanMatch, heartbeatScanCount).Result()
		if err != nil {
			return 0, false, fmt.Errorf("%w: heartbeat scan: %v", core.ErrBackendUnavailable, err)
		}

		for _, key := range keys {
			raw, getErr := h.rdb.Get(ctx, key).Result()
			if getErr != nil {
				// The key may have expired between scan and get.
				continue
			}

			stamp, parseErr := strconv.ParseInt(raw, 10, 64)
			if parseErr != nil {
				continue
			}

			if !found || stamp > youngest {
				youngest = stamp
				found = true
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if !found {
		return 0, false, nil
	}

	return time.Since(time.Unix(youngest, 0)), true, nil
}
