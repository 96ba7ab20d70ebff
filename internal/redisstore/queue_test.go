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

func testJob(bookID string, index int) core.Job {
	return core.Job{
		BookID:        bookID,
		ChapterID:     "ch-1",
		SentenceIndex: index,
		ModelID:       "kokoro",
		VoiceID:       "af_heart",
		Speed:         1.0,
		Text:          "A sentence to read aloud.",
		Attempt:       0,
	}
}

func TestJobQueue_ChapterFIFO(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)
	ctx := context.Background()

	for i := range 3 {
		err := queue.EnqueueChapter(ctx, testJob("b1", i))
		require.NoError(t, err)
	}

	for i := range 3 {
		name, job, err := queue.PopBlocking(ctx, "b1", time.Second)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, core.QueueChapter, name)
		assert.Equal(t, i, job.SentenceIndex)
	}
}

func TestJobQueue_PrefetchPreemptsChapter(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)
	ctx := context.Background()

	err := queue.EnqueueChapter(ctx, testJob("b1", 0))
	require.NoError(t, err)

	err = queue.EnqueuePrefetch(ctx, testJob("b1", 40))
	require.NoError(t, err)

	name, job, err := queue.PopBlocking(ctx, "b1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, core.QueuePrefetch, name)
	assert.Equal(t, 40, job.SentenceIndex)

	name, job, err = queue.PopBlocking(ctx, "b1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, core.QueueChapter, name)
	assert.Equal(t, 0, job.SentenceIndex)
}

func TestJobQueue_PopTimeoutReturnsNoJob(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)

	name, job, err := queue.PopBlocking(context.Background(), "idle-book", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.Empty(t, name)
}

func TestJobQueue_ClearForBookDropsBothQueues(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)
	ctx := context.Background()

	require.NoError(t, queue.EnqueueChapter(ctx, testJob("b1", 0)))
	require.NoError(t, queue.EnqueuePrefetch(ctx, testJob("b1", 40)))

	err := queue.ClearForBook(ctx, "b1")
	require.NoError(t, err)

	prefetchLen, chapterLen, err := queue.Lengths(ctx, "b1")
	require.NoError(t, err)
	assert.Zero(t, prefetchLen)
	assert.Zero(t, chapterLen)
}

func TestJobQueue_ClearForBookLeavesOtherBooksAlone(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)
	ctx := context.Background()

	require.NoError(t, queue.EnqueueChapter(ctx, testJob("b1", 0)))
	require.NoError(t, queue.EnqueueChapter(ctx, testJob("b2", 7)))

	require.NoError(t, queue.ClearForBook(ctx, "b1"))

	_, chapterLen, err := queue.Lengths(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), chapterLen)
}

func TestJobQueue_ActiveBooksTracking(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)
	ctx := context.Background()

	require.NoError(t, queue.EnqueueChapter(ctx, testJob("b1", 0)))
	require.NoError(t, queue.EnqueuePrefetch(ctx, testJob("b2", 3)))

	books, err := queue.ActiveBooks(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b1", "b2"}, books)

	_, job, err := queue.PopBlocking(ctx, "b1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, queue.Untrack(ctx, "b1"))

	books, err = queue.ActiveBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, books)
}

func TestJobQueue_UntrackKeepsBookWithPendingWork(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)
	ctx := context.Background()

	// A job enqueued between a worker's drained-check and its untrack must
	// not strand the book outside the active set.
	require.NoError(t, queue.EnqueueChapter(ctx, testJob("b1", 0)))
	require.NoError(t, queue.Untrack(ctx, "b1"))

	books, err := queue.ActiveBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, books)
}

func TestJobQueue_JobRoundTripKeepsFields(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	queue := redisstore.NewJobQueue(client)
	ctx := context.Background()

	want := core.Job{
		BookID:        "b1",
		ChapterID:     "ch-9",
		SentenceIndex: 12,
		ModelID:       "supertonic",
		VoiceID:       "M1",
		Speed:         1.25,
		Text:          "Round trips must not lose fields.",
		Attempt:       2,
	}

	require.NoError(t, queue.EnqueueChapter(ctx, want))

	_, got, err := queue.PopBlocking(ctx, "b1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}
