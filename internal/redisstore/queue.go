package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/book-expert/tts-gateway/internal/core"
)

// Queue key layout. Each book owns two FIFO lists; the active-books set lets
// workers discover books with outstanding work without scanning keys.
const (
	prefetchKeyFormat = "tts:queue:prefetch:%s"
	chapterKeyFormat  = "tts:queue:chapter:%s"
	activeBooksKey    = "tts:books:active"
)

// JobQueue implements core.JobQueue on Redis lists and sets.
type JobQueue struct {
	rdb *redis.Client
}

// NewJobQueue creates a queue manager over an established Redis client.
func NewJobQueue(rdb *redis.Client) *JobQueue {
	return &JobQueue{rdb: rdb}
}

// EnqueueChapter appends job to the tail of the book's chapter queue and
// tracks the book as active.
func (q *JobQueue) EnqueueChapter(ctx context.Context, job core.Job) error {
	return q.enqueue(ctx, chapterKey(job.BookID), job)
}

// EnqueuePrefetch appends job to the tail of the book's prefetch queue and
// tracks the book as active.
func (q *JobQueue) EnqueuePrefetch(ctx context.Context, job core.Job) error {
	return q.enqueue(ctx, prefetchKey(job.BookID), job)
}

// PopBlocking waits up to timeout for a job on either of the book's queues.
// BLPOP checks keys in the order given, so listing the prefetch queue first
// makes prefetch strictly preempt chapter work whenever both are non-empty.
// A nil job with a nil error means the timeout elapsed.
func (q *JobQueue) PopBlocking(
	ctx context.Context,
	bookID string,
	timeout time.Duration,
) (core.QueueName, *core.Job, error) {
	popped, err := q.rdb.BLPop(ctx, timeout, prefetchKey(bookID), chapterKey(bookID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, nil
	}

	if err != nil {
		return "", nil, fmt.Errorf("%w: queue pop for book %q: %v", core.ErrBackendUnavailable, bookID, err)
	}

	// BLPOP returns [key, value].
	name := core.QueueChapter
	if popped[0] == prefetchKey(bookID) {
		name = core.QueuePrefetch
	}

	var job core.Job

	unmarshalErr := json.Unmarshal([]byte(popped[1]), &job)
	if unmarshalErr != nil {
		return "", nil, fmt.Errorf("%w: corrupt job record on %s: %v", core.ErrInternal, popped[0], unmarshalErr)
	}

	return name, &job, nil
}

// ClearForBook purges both queues for a book. Used on chapter change and
// book close; the active-set entry is refreshed by the following enqueues.
func (q *JobQueue) ClearForBook(ctx context.Context, bookID string) error {
	err := q.rdb.Del(ctx, prefetchKey(bookID), chapterKey(bookID)).Err()
	if err != nil {
		return fmt.Errorf("%w: queue clear for book %q: %v", core.ErrBackendUnavailable, bookID, err)
	}

	return nil
}

// ActiveBooks returns the books believed to have outstanding work. The set
// is weakly consistent; workers re-check emptiness before untracking.
func (q *JobQueue) ActiveBooks(ctx context.Context) ([]string, error) {
	books, err := q.rdb.SMembers(ctx, activeBooksKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: active books: %v", core.ErrBackendUnavailable, err)
	}

	return books, nil
}

// Untrack removes a book from the active set once both its queues drained.
// An enqueue can race the removal (its SADD lands before the SRem), so the
// queues are re-checked afterwards and the book re-added if work appeared.
func (q *JobQueue) Untrack(ctx context.Context, bookID string) error {
	err := q.rdb.SRem(ctx, activeBooksKey, bookID).Err()
	if err != nil {
		return fmt.Errorf("%w: untrack book %q: %v", core.ErrBackendUnavailable, bookID, err)
	}

	prefetchLen, chapterLen, err := q.Lengths(ctx, bookID)
	if err != nil {
		return err
	}

	if prefetchLen == 0 && chapterLen == 0 {
		return nil
	}

	trackErr := q.rdb.SAdd(ctx, activeBooksKey, bookID).Err()
	if trackErr != nil {
		return fmt.Errorf("%w: re-track book %q: %v", core.ErrBackendUnavailable, bookID, trackErr)
	}

	return nil
}

// Lengths reports the current depth of both queues for a book.
func (q *JobQueue) Lengths(ctx context.Context, bookID string) (int64, int64, error) {
	prefetchLen, err := q.rdb.LLen(ctx, prefetchKey(bookID)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: prefetch length for book %q: %v", core.ErrBackendUnavailable, bookID, err)
	}

	chapterLen, err := q.rdb.LLen(ctx, chapterKey(bookID)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: chapter length for book %q: %v", core.ErrBackendUnavailable, bookID, err)
	}

	return prefetchLen, chapterLen, nil
}

func (q *JobQueue) enqueue(ctx context.Context, key string, job core.Job) error {
	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: failed to encode job: %v", core.ErrInternal, err)
	}

	pushErr := q.rdb.RPush(ctx, key, record).Err()
	if pushErr != nil {
		return fmt.Errorf("%w: enqueue on %s: %v", core.ErrBackendUnavailable, key, pushErr)
	}

	trackErr := q.rdb.SAdd(ctx, activeBooksKey, job.BookID).Err()
	if trackErr != nil {
		return fmt.Errorf("%w: track book %q: %v", core.ErrBackendUnavailable, job.BookID, trackErr)
	}

	return nil
}

func prefetchKey(bookID string) string {
	return fmt.Sprintf(prefetchKeyFormat, bookID)
}

func chapterKey(bookID string) string {
	return fmt.Sprintf(chapterKeyFormat, bookID)
}
