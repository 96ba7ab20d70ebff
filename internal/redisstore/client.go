// Package redisstore provides the Redis-backed implementations of the
// gateway's shared state: the audio cache, the single-flight lock, the
// per-book job queues with their active-books set, and worker heartbeats.
//
// Redis is the only mutable state shared between workers and proxies; every
// operation here maps onto one atomic Redis primitive.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/book-expert/tts-gateway/internal/core"
)

// Connect parses a Redis URL and verifies the connection with a ping.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KV url: %w", err)
	}

	client := redis.NewClient(opts)

	pingErr := client.Ping(ctx).Err()
	if pingErr != nil {
		closeErr := client.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close KV client after ping failure: %w", closeErr)
		}

		return nil, fmt.Errorf("%w: KV ping: %v", core.ErrBackendUnavailable, pingErr)
	}

	return client, nil
}
