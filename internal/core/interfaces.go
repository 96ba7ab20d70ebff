// Package core defines the shared types, interfaces and error kinds for the
// TTS gateway. Components depend on these interfaces rather than on each
// other's concrete implementations.
package core

import (
	"context"
	"time"
)

// QueueName identifies which of the two per-book queues a job belongs to.
type QueueName string

const (
	// QueuePrefetch is the high-priority queue holding the next sentences
	// at the reader's current position.
	QueuePrefetch QueueName = "prefetch"

	// QueueChapter is the normal-priority queue holding the whole current
	// (and optionally next) chapter.
	QueueChapter QueueName = "chapter"
)

// CacheStatus tags every proxied audio response for observability.
type CacheStatus string

const (
	// CacheHit means the audio bytes were served from the cache.
	CacheHit CacheStatus = "HIT"

	// CacheMiss means the audio bytes were synthesized for this request.
	CacheMiss CacheStatus = "MISS"
)

// Job is one sentence-synthesis work item. Jobs are encoded as compact JSON
// records on the queues and are never mutated in place; a retry re-enqueues a
// new record with Attempt incremented.
type Job struct {
	BookID        string  `json:"book_id"`
	ChapterID     string  `json:"chapter_id"`
	SentenceIndex int     `json:"sentence_index"`
	ModelID       string  `json:"model"`
	VoiceID       string  `json:"voice"`
	Speed         float64 `json:"speed"`
	Text          string  `json:"text"`
	Attempt       int     `json:"attempt"`
}

// AudioCache is a byte-addressable KV with TTL holding synthesized audio.
// A Get that fails with ErrBackendUnavailable must be treated by callers as
// "not cached", never as "absent".
type AudioCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, audio []byte, ttl time.Duration) error
}

// SynthLock is the short-TTL named lock that deduplicates concurrent
// synthesis of one fingerprint. Release is a no-op when the token no longer
// matches the stored owner.
type SynthLock interface {
	TryAcquire(ctx context.Context, lockKey string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, lockKey string, token string) error
}

// JobQueue is the per-book pair of FIFO queues plus the active-books set.
type JobQueue interface {
	EnqueueChapter(ctx context.Context, job Job) error
	EnqueuePrefetch(ctx context.Context, job Job) error
	// PopBlocking waits up to timeout for a job on either of the book's
	// queues, strictly preferring prefetch. A nil job with a nil error
	// means the timeout elapsed with both queues empty.
	PopBlocking(ctx context.Context, bookID string, timeout time.Duration) (QueueName, *Job, error)
	ClearForBook(ctx context.Context, bookID string) error
	ActiveBooks(ctx context.Context) ([]string, error)
	Untrack(ctx context.Context, bookID string) error
	Lengths(ctx context.Context, bookID string) (prefetch int64, chapter int64, err error)
}

// Synthesizer converts one sentence into WAV bytes via the external backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, modelID, voiceID string, speed float64, text string) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// ChapterStore is the consumed book-store contract: stable chapter IDs,
// plain text bodies.
type ChapterStore interface {
	GetChapter(ctx context.Context, bookID, chapterID string) (string, error)
	// NextChapter returns the chapter following chapterID in reading
	// order, or ok=false when chapterID is the last one.
	NextChapter(ctx context.Context, bookID, chapterID string) (next string, ok bool, err error)
}

// Segmenter is the consumed sentence-segmentation contract: deterministic
// for identical input, filters out non-pronounceable fragments.
type Segmenter interface {
	Segment(text string) []string
}
