// Package proxy implements the synchronous sentence-serving path: cache hit
// when possible, single-flight synthesis otherwise.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/fingerprint"
	"github.com/book-expert/tts-gateway/internal/telemetry"
)

// pollInterval is how often a request waiting on another synthesizer's lock
// re-checks the cache.
const pollInterval = 100 * time.Millisecond

// Request identifies one sentence to serve.
type Request struct {
	BookID  string
	ModelID string
	VoiceID string
	Speed   float64
	Text    string
}

// Proxy serves sentence audio synchronously. Safe for concurrent use.
type Proxy struct {
	cache    core.AudioCache
	lock     core.SynthLock
	synth    core.Synthesizer
	metrics  *telemetry.Metrics
	log      *logger.Logger
	cacheTTL time.Duration
	lockTTL  time.Duration
}

// New creates a proxy.
func New(
	cache core.AudioCache,
	lock core.SynthLock,
	synth core.Synthesizer,
	metrics *telemetry.Metrics,
	log *logger.Logger,
	cacheTTL, lockTTL time.Duration,
) *Proxy {
	return &Proxy{
		cache:    cache,
		lock:     lock,
		synth:    synth,
		metrics:  metrics,
		log:      log,
		cacheTTL: cacheTTL,
		lockTTL:  lockTTL,
	}
}

// ServeSentence returns WAV bytes for one sentence and whether they came
// from the cache.
//
// On a miss with the lock free, the proxy synthesizes under the lock and
// stores the result. When another owner holds the lock it polls the cache up
// to the lock TTL, then falls back to a direct synthesis that deliberately
// skips the store, so the lock holder's eventual put is never clobbered.
func (p *Proxy) ServeSentence(ctx context.Context, req Request) ([]byte, core.CacheStatus, error) {
	validateErr := validate(req)
	if validateErr != nil {
		return nil, core.CacheMiss, validateErr
	}

	speed := core.ClampSpeed(req.Speed)

	key, err := fingerprint.Key(req.BookID, req.ModelID, req.VoiceID, speed, req.Text)
	if err != nil {
		return nil, core.CacheMiss, err
	}

	audio, found := p.lookup(ctx, key)
	if found {
		p.metrics.RecordCacheHit(ctx)

		return audio, core.CacheHit, nil
	}

	p.metrics.RecordCacheMiss(ctx)

	token, acquired, err := p.lock.TryAcquire(ctx, fingerprint.LockKey(key), p.lockTTL)
	if err != nil {
		// KV trouble: still try to give the caller audio, without
		// touching shared state.
		return p.directSynthesis(ctx, req, speed, key)
	}

	if acquired {
		return p.synthesizeAndStore(ctx, req, speed, key, token)
	}

	p.metrics.RecordLockContention(ctx, "proxy")

	return p.awaitLockHolder(ctx, req, speed, key)
}

// lookup treats cache errors as misses; the proxy can always fall back to
// synthesis.
func (p *Proxy) lookup(ctx context.Context, key string) ([]byte, bool) {
	audio, found, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.Warn("cache lookup failed for %s: %v", fingerprint.Abbrev(key), err)

		return nil, false
	}

	return audio, found
}

// synthesizeAndStore runs the single-flight path under an owned lock. The
// synthesis and store are detached from the caller's cancellation: a client
// that disconnects mid-synthesis still populates the cache for the next
// request.
func (p *Proxy) synthesizeAndStore(
	ctx context.Context,
	req Request,
	speed float64,
	key, token string,
) ([]byte, core.CacheStatus, error) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.lockTTL)
	defer cancel()

	defer func() {
		releaseErr := p.lock.Release(detached, fingerprint.LockKey(key), token)
		if releaseErr != nil {
			p.log.Warn("failed to release lock for %s: %v", fingerprint.Abbrev(key), releaseErr)
		}
	}()

	start := time.Now()

	audio, err := p.synth.Synthesize(detached, req.ModelID, req.VoiceID, speed, req.Text)

	elapsed := time.Since(start)

	if err != nil {
		p.metrics.RecordSynthesis(ctx, synthOutcome(err), elapsed)

		return nil, core.CacheMiss, err
	}

	p.metrics.RecordSynthesis(ctx, "ok", elapsed)

	putErr := p.cache.Put(detached, key, audio, p.cacheTTL)
	if putErr != nil {
		// The caller still gets audio; only the cache write is lost.
		p.log.Warn("failed to store %s: %v", fingerprint.Abbrev(key), putErr)
	}

	p.log.Info("synthesized %s elapsed=%s", fingerprint.Abbrev(key), elapsed)

	return audio, core.CacheMiss, nil
}

// awaitLockHolder polls the cache while another owner synthesizes the same
// fingerprint, then gives up and synthesizes directly.
func (p *Proxy) awaitLockHolder(
	ctx context.Context,
	req Request,
	speed float64,
	key string,
) ([]byte, core.CacheStatus, error) {
	deadline := time.Now().Add(p.lockTTL)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, core.CacheMiss, fmt.Errorf("%w: request abandoned while waiting for lock holder: %v",
				core.ErrTimeout, ctx.Err())
		case <-ticker.C:
		}

		audio, found := p.lookup(ctx, key)
		if found {
			return audio, core.CacheHit, nil
		}
	}

	p.log.Warn("lock holder for %s never delivered, synthesizing directly", fingerprint.Abbrev(key))
	p.metrics.RecordFallback(ctx)

	return p.directSynthesis(ctx, req, speed, key)
}

// directSynthesis bypasses the lock and never stores, trading dedup for a
// guaranteed answer.
func (p *Proxy) directSynthesis(
	ctx context.Context,
	req Request,
	speed float64,
	key string,
) ([]byte, core.CacheStatus, error) {
	start := time.Now()

	audio, err := p.synth.Synthesize(ctx, req.ModelID, req.VoiceID, speed, req.Text)

	elapsed := time.Since(start)

	if err != nil {
		p.metrics.RecordSynthesis(ctx, synthOutcome(err), elapsed)

		return nil, core.CacheMiss, err
	}

	p.metrics.RecordSynthesis(ctx, "ok", elapsed)
	p.log.Info("direct synthesis for %s elapsed=%s", fingerprint.Abbrev(key), elapsed)

	return audio, core.CacheMiss, nil
}

func validate(req Request) error {
	if req.BookID == "" {
		return fmt.Errorf("%w: book_id is required", core.ErrInvalidInput)
	}

	if req.ModelID == "" || req.VoiceID == "" {
		return fmt.Errorf("%w: model and voice are required", core.ErrInvalidInput)
	}

	if req.Text == "" {
		return fmt.Errorf("%w: text is required", core.ErrInvalidInput)
	}

	return nil
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
