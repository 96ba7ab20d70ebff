package bookstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-gateway/internal/bookstore"
	"github.com/book-expert/tts-gateway/internal/core"
)

func newTestStore(t *testing.T) *bookstore.Store {
	t.Helper()

	store, err := bookstore.Open(context.Background(), filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestStore_PutAndGetChapter(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	err := store.PutChapter(ctx, "b1", "ch-1", 1, "It was a dark and stormy night.")
	require.NoError(t, err)

	body, err := store.GetChapter(ctx, "b1", "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "It was a dark and stormy night.", body)
}

func TestStore_PutChapterReplacesBody(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutChapter(ctx, "b1", "ch-1", 1, "First draft."))
	require.NoError(t, store.PutChapter(ctx, "b1", "ch-1", 1, "Second draft."))

	body, err := store.GetChapter(ctx, "b1", "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "Second draft.", body)
}

func TestStore_GetChapterMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.GetChapter(context.Background(), "b1", "absent")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_PutChapterValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	err := store.PutChapter(ctx, "", "ch-1", 1, "body")
	require.ErrorIs(t, err, core.ErrInvalidInput)

	err = store.PutChapter(ctx, "b1", "ch-1", 1, "")
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestStore_NextChapterFollowsPosition(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutChapter(ctx, "b1", "prologue", 0, "Before it all."))
	require.NoError(t, store.PutChapter(ctx, "b1", "ch-1", 1, "The beginning."))
	require.NoError(t, store.PutChapter(ctx, "b1", "ch-2", 2, "The middle."))

	next, ok, err := store.NextChapter(ctx, "b1", "prologue")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ch-1", next)

	next, ok, err = store.NextChapter(ctx, "b1", "ch-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ch-2", next)
}

func TestStore_NextChapterAtEndOfBook(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutChapter(ctx, "b1", "ch-1", 1, "The only chapter."))

	_, ok, err := store.NextChapter(ctx, "b1", "ch-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_NextChapterUnknownChapter(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, ok, err := store.NextChapter(context.Background(), "b1", "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListChaptersInReadingOrder(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutChapter(ctx, "b1", "ch-2", 2, "Second."))
	require.NoError(t, store.PutChapter(ctx, "b1", "ch-1", 1, "First."))
	require.NoError(t, store.PutChapter(ctx, "b2", "other", 1, "Another book."))

	chapters, err := store.ListChapters(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-1", "ch-2"}, chapters)
}
