// Package worker implements the synthesis worker pool that drains the
// per-book queues into the audio cache.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/cenkalti/backoff/v5"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/fingerprint"
	"github.com/book-expert/tts-gateway/internal/telemetry"
)

const (
	heartbeatTTL = 30 * time.Second

	// Workers get this long to finish their current job on shutdown.
	shutdownGrace = 5 * time.Second

	// Pause after a KV error before retrying the loop, so an outage does
	// not spin the worker hot.
	errorPause = time.Second
)

// ErrShutdownTimeout is returned when workers do not stop within the grace
// period.
var ErrShutdownTimeout = errors.New("worker pool did not stop within the shutdown grace period")

// Heartbeater records worker liveness.
type Heartbeater interface {
	Beat(ctx context.Context, workerID string, ttl time.Duration) error
}

// Options configures a worker pool.
type Options struct {
	PoolSize    int
	RetryBudget int
	CacheTTL    time.Duration
	LockTTL     time.Duration
	PopTimeout  time.Duration
}

// Pool runs a fixed set of workers against the shared queues.
type Pool struct {
	workers   []*worker
	log       *logger.Logger
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
}

type worker struct {
	id        string
	queue     core.JobQueue
	cache     core.AudioCache
	lock      core.SynthLock
	synth     core.Synthesizer
	heartbeat Heartbeater
	metrics   *telemetry.Metrics
	log       *logger.Logger
	opts      Options

	// nextBook round-robins over the active-books snapshot; it is only
	// touched by the owning worker goroutine.
	nextBook int
}

// NewPool creates a worker pool. Start must be called before jobs are
// processed.
func NewPool(
	queue core.JobQueue,
	cache core.AudioCache,
	lock core.SynthLock,
	synth core.Synthesizer,
	heartbeat Heartbeater,
	metrics *telemetry.Metrics,
	log *logger.Logger,
	opts Options,
) *Pool {
	pool := &Pool{
		workers: make([]*worker, 0, opts.PoolSize),
		log:     log,
		cancel:  nil,
	}

	for i := range opts.PoolSize {
		pool.workers = append(pool.workers, &worker{
			id:        fmt.Sprintf("worker-%d", i),
			queue:     queue,
			cache:     cache,
			lock:      lock,
			synth:     synth,
			heartbeat: heartbeat,
			metrics:   metrics,
			log:       log,
			opts:      opts,
			nextBook:  i,
		})
	}

	return pool
}

// Start launches every worker goroutine. The pool stops when Stop is called
// or the parent context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for _, w := range p.workers {
		p.waitGroup.Add(1)

		go func(w *worker) {
			defer p.waitGroup.Done()

			w.run(runCtx)
		}(w)
	}

	p.log.Info("worker pool started: size=%d", len(p.workers))
}

// Stop signals all workers and waits up to the shutdown grace period for
// in-flight jobs to finish.
func (p *Pool) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})

	go func() {
		p.waitGroup.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool stopped")

		return nil
	case <-time.After(shutdownGrace):
		return ErrShutdownTimeout
	}
}

func (w *worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		beatErr := w.heartbeat.Beat(ctx, w.id, heartbeatTTL)
		if beatErr != nil && ctx.Err() == nil {
			w.log.Warn("%s: heartbeat failed: %v", w.id, beatErr)
		}

		books, err := w.queue.ActiveBooks(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("%s: failed to list active books: %v", w.id, err)
			}

			w.pause(ctx, errorPause)

			continue
		}

		if len(books) == 0 {
			w.pause(ctx, w.opts.PopTimeout)

			continue
		}

		// Snapshot order is stable so the round-robin cursor is fair
		// across iterations.
		sort.Strings(books)

		book := books[w.nextBook%len(books)]
		w.nextBook++

		name, job, err := w.queue.PopBlocking(ctx, book, w.opts.PopTimeout)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("%s: pop failed for book %s: %v", w.id, book, err)
			}

			w.pause(ctx, errorPause)

			continue
		}

		if job == nil {
			w.untrackIfDrained(ctx, book)

			continue
		}

		w.process(ctx, name, job)
	}
}

// untrackIfDrained removes a book from the active set only after re-checking
// both queues, since the set is weakly consistent with queue state.
func (w *worker) untrackIfDrained(ctx context.Context, book string) {
	prefetchLen, chapterLen, err := w.queue.Lengths(ctx, book)
	if err != nil || prefetchLen > 0 || chapterLen > 0 {
		return
	}

	untrackErr := w.queue.Untrack(ctx, book)
	if untrackErr != nil && ctx.Err() == nil {
		w.log.Warn("%s: failed to untrack drained book %s: %v", w.id, book, untrackErr)
	}
}

func (w *worker) process(ctx context.Context, name core.QueueName, job *core.Job) {
	key, err := fingerprint.Key(job.BookID, job.ModelID, job.VoiceID, job.Speed, job.Text)
	if err != nil {
		w.log.Error("%s: dropping malformed job on %s queue: %v", w.id, name, err)
		w.metrics.RecordJob(ctx, string(name), "dropped")

		return
	}

	_, cached, err := w.cache.Get(ctx, key)
	if err != nil {
		w.retryOrDrop(ctx, name, job, key, err)

		return
	}

	if cached {
		w.metrics.RecordJob(ctx, string(name), "cached")

		return
	}

	token, acquired, err := w.lock.TryAcquire(ctx, fingerprint.LockKey(key), w.opts.LockTTL)
	if err != nil {
		w.retryOrDrop(ctx, name, job, key, err)

		return
	}

	if !acquired {
		// Another worker or a proxy call owns this fingerprint.
		w.metrics.RecordLockContention(ctx, "worker")
		w.metrics.RecordJob(ctx, string(name), "skipped")

		return
	}

	start := time.Now()

	audio, synthErr := w.synth.Synthesize(ctx, job.ModelID, job.VoiceID, job.Speed, job.Text)

	elapsed := time.Since(start)

	if synthErr != nil {
		w.metrics.RecordSynthesis(ctx, synthOutcome(synthErr), elapsed)
		w.releaseLock(ctx, key, token)
		w.handleSynthFailure(ctx, name, job, key, synthErr)

		return
	}

	w.metrics.RecordSynthesis(ctx, "ok", elapsed)

	putErr := w.cache.Put(ctx, key, audio, w.opts.CacheTTL)

	w.releaseLock(ctx, key, token)

	if putErr != nil {
		w.retryOrDrop(ctx, name, job, key, putErr)

		return
	}

	w.metrics.RecordJob(ctx, string(name), "stored")
	w.log.Info("%s: stored %s queue=%s elapsed=%s", w.id, fingerprint.Abbrev(key), name, elapsed)
}

func (w *worker) releaseLock(ctx context.Context, key, token string) {
	releaseErr := w.lock.Release(ctx, fingerprint.LockKey(key), token)
	if releaseErr != nil && ctx.Err() == nil {
		w.log.Warn("%s: failed to release lock for %s: %v", w.id, fingerprint.Abbrev(key), releaseErr)
	}
}

// handleSynthFailure drops invalid audio outright and routes everything
// retryable through the backoff path.
func (w *worker) handleSynthFailure(
	ctx context.Context,
	name core.QueueName,
	job *core.Job,
	key string,
	synthErr error,
) {
	if errors.Is(synthErr, core.ErrInvalidAudio) {
		w.log.Error("%s: dropping %s, backend produced invalid audio: %v",
			w.id, fingerprint.Abbrev(key), synthErr)
		w.metrics.RecordJob(ctx, string(name), "dropped")

		return
	}

	w.retryOrDrop(ctx, name, job, key, synthErr)
}

// retryOrDrop re-enqueues a failed job at the tail of its originating queue
// until the attempt budget is spent.
func (w *worker) retryOrDrop(
	ctx context.Context,
	name core.QueueName,
	job *core.Job,
	key string,
	cause error,
) {
	nextAttempt := job.Attempt + 1
	if nextAttempt >= w.opts.RetryBudget {
		w.log.Error("%s: dropping %s after %d attempts: %v",
			w.id, fingerprint.Abbrev(key), nextAttempt, cause)
		w.metrics.RecordJob(ctx, string(name), "dropped")

		return
	}

	w.pause(ctx, retryDelay(nextAttempt))

	if ctx.Err() != nil {
		return
	}

	retry := *job
	retry.Attempt = nextAttempt

	var enqueueErr error

	if name == core.QueuePrefetch {
		enqueueErr = w.queue.EnqueuePrefetch(ctx, retry)
	} else {
		enqueueErr = w.queue.EnqueueChapter(ctx, retry)
	}

	if enqueueErr != nil {
		w.log.Error("%s: failed to re-enqueue %s: %v", w.id, fingerprint.Abbrev(key), enqueueErr)
		w.metrics.RecordJob(ctx, string(name), "dropped")

		return
	}

	w.log.Warn("%s: retrying %s attempt=%d queue=%s: %v",
		w.id, fingerprint.Abbrev(key), nextAttempt, name, cause)
	w.metrics.RecordJob(ctx, string(name), "retried")
}

func (w *worker) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// retryDelay walks the exponential schedule to the given attempt.
func retryDelay(attempt int) time.Duration {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = 500 * time.Millisecond
	schedule.RandomizationFactor = 0

	delay := schedule.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = schedule.NextBackOff()
	}

	return delay
}

func synthOutcome(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAudio):
		return "invalid_audio"
	case errors.Is(err, core.ErrTimeout):
		return "timeout"
	case errors.Is(err, core.ErrBackendRestarting):
		return "retrying"
	default:
		return "error"
	}
}
