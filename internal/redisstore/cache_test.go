package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/redisstore"
)

func TestAudioCache_PutThenGet(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	cache := redisstore.NewAudioCache(client)
	ctx := context.Background()

	audio := []byte("RIFF-fake-audio")

	err := cache.Put(ctx, "tts:b1:k:v:1.00:abc", audio, time.Hour)
	require.NoError(t, err)

	got, found, err := cache.Get(ctx, "tts:b1:k:v:1.00:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, audio, got)
}

func TestAudioCache_MissIsNotAnError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	cache := redisstore.NewAudioCache(client)

	got, found, err := cache.Get(context.Background(), "tts:absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestAudioCache_EntryExpires(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	cache := redisstore.NewAudioCache(client)
	ctx := context.Background()

	err := cache.Put(ctx, "tts:short-lived", []byte("audio"), time.Minute)
	require.NoError(t, err)

	server.FastForward(2 * time.Minute)

	_, found, err := cache.Get(ctx, "tts:short-lived")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAudioCache_UnreachableBackend(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	cache := redisstore.NewAudioCache(client)
	ctx := context.Background()

	server.Close()

	_, _, err := cache.Get(ctx, "tts:any")
	require.ErrorIs(t, err, core.ErrBackendUnavailable)

	err = cache.Put(ctx, "tts:any", []byte("audio"), time.Hour)
	require.ErrorIs(t, err, core.ErrBackendUnavailable)
}
