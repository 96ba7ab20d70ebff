// Package enqueue implements the chapter-open and page-open events that fill
// the per-book synthesis queues.
package enqueue

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-gateway/internal/core"
)

// VoicePolicy decides which models and voices requests may use. It is
// satisfied by the runtime configuration.
type VoicePolicy interface {
	AllowsModel(modelID string) bool
	AllowsVoice(modelID, voiceID string) bool
}

// Service translates reader events into queue jobs.
type Service struct {
	queue              core.JobQueue
	books              core.ChapterStore
	segmenter          core.Segmenter
	policy             VoicePolicy
	log                *logger.Logger
	prefetchWindow     int
	includeNextChapter bool
}

// ChapterOpen is the chapter-open event: the reader navigated to a chapter.
type ChapterOpen struct {
	BookID    string
	ChapterID string
	ModelID   string
	VoiceID   string
	Speed     float64
}

// PageOpen is the page-open event: the reader's position moved within a
// chapter and the next sentences should be buffered at high priority.
type PageOpen struct {
	BookID     string
	ChapterID  string
	StartIndex int
	ModelID    string
	VoiceID    string
	Speed      float64
}

// New creates the enqueue service.
func New(
	queue core.JobQueue,
	books core.ChapterStore,
	segmenter core.Segmenter,
	policy VoicePolicy,
	log *logger.Logger,
	prefetchWindow int,
	includeNextChapter bool,
) *Service {
	return &Service{
		queue:              queue,
		books:              books,
		segmenter:          segmenter,
		policy:             policy,
		log:                log,
		prefetchWindow:     prefetchWindow,
		includeNextChapter: includeNextChapter,
	}
}

// OpenChapter purges the book's queues and refills the chapter queue with
// the full chapter, plus the following chapter when configured. It returns
// the number of queued jobs. Validation failures leave the queues untouched.
func (s *Service) OpenChapter(ctx context.Context, event ChapterOpen) (int, error) {
	validateErr := s.validate(event.BookID, event.ChapterID, event.ModelID, event.VoiceID)
	if validateErr != nil {
		return 0, validateErr
	}

	speed := core.ClampSpeed(event.Speed)

	// Resolve all chapter text before mutating any queue, so a missing
	// chapter cannot leave the book half-purged.
	sentences, err := s.chapterSentences(ctx, event.BookID, event.ChapterID)
	if err != nil {
		return 0, err
	}

	nextChapterID, nextSentences, err := s.nextChapterSentences(ctx, event.BookID, event.ChapterID)
	if err != nil {
		return 0, err
	}

	clearErr := s.queue.ClearForBook(ctx, event.BookID)
	if clearErr != nil {
		return 0, clearErr
	}

	queued, err := s.enqueueChapter(ctx, event, event.ChapterID, speed, sentences, 0)
	if err != nil {
		return queued, err
	}

	if len(nextSentences) > 0 {
		nextQueued, nextErr := s.enqueueChapter(ctx, event, nextChapterID, speed, nextSentences, 0)

		queued += nextQueued
		if nextErr != nil {
			return queued, nextErr
		}
	}

	s.log.Info("chapter-open: book=%s chapter=%s queued=%d", event.BookID, event.ChapterID, queued)

	return queued, nil
}

// OpenPage queues the prefetch window starting at the reader's position. It
// never purges; stale prefetch jobs are cheap because the cache deduplicates
// their results.
func (s *Service) OpenPage(ctx context.Context, event PageOpen) (int, error) {
	validateErr := s.validate(event.BookID, event.ChapterID, event.ModelID, event.VoiceID)
	if validateErr != nil {
		return 0, validateErr
	}

	if event.StartIndex < 0 {
		return 0, fmt.Errorf("%w: start index cannot be negative", core.ErrInvalidInput)
	}

	speed := core.ClampSpeed(event.Speed)

	sentences, err := s.chapterSentences(ctx, event.BookID, event.ChapterID)
	if err != nil {
		return 0, err
	}

	if event.StartIndex >= len(sentences) {
		return 0, nil
	}

	end := event.StartIndex + s.prefetchWindow
	if end > len(sentences) {
		end = len(sentences)
	}

	queued := 0

	for index := event.StartIndex; index < end; index++ {
		job := core.Job{
			BookID:        event.BookID,
			ChapterID:     event.ChapterID,
			SentenceIndex: index,
			ModelID:       event.ModelID,
			VoiceID:       event.VoiceID,
			Speed:         speed,
			Text:          sentences[index],
			Attempt:       0,
		}

		enqueueErr := s.queue.EnqueuePrefetch(ctx, job)
		if enqueueErr != nil {
			return queued, enqueueErr
		}

		queued++
	}

	s.log.Info("page-open: book=%s chapter=%s start=%d queued=%d",
		event.BookID, event.ChapterID, event.StartIndex, queued)

	return queued, nil
}

func (s *Service) validate(bookID, chapterID, modelID, voiceID string) error {
	if bookID == "" || chapterID == "" {
		return fmt.Errorf("%w: book and chapter identifiers are required", core.ErrInvalidInput)
	}

	if !s.policy.AllowsModel(modelID) {
		return fmt.Errorf("%w: model %q is not allowed", core.ErrInvalidInput, modelID)
	}

	if !s.policy.AllowsVoice(modelID, voiceID) {
		return fmt.Errorf("%w: voice %q is not allowed for model %q", core.ErrInvalidInput, voiceID, modelID)
	}

	return nil
}

func (s *Service) chapterSentences(ctx context.Context, bookID, chapterID string) ([]string, error) {
	text, err := s.books.GetChapter(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}

	return s.segmenter.Segment(text), nil
}

// nextChapterSentences resolves the chapter after chapterID when next-chapter
// buffering is enabled. A missing successor is not an error.
func (s *Service) nextChapterSentences(
	ctx context.Context,
	bookID, chapterID string,
) (string, []string, error) {
	if !s.includeNextChapter {
		return "", nil, nil
	}

	nextID, ok, err := s.books.NextChapter(ctx, bookID, chapterID)
	if err != nil || !ok {
		return "", nil, err
	}

	sentences, err := s.chapterSentences(ctx, bookID, nextID)
	if err != nil {
		return "", nil, err
	}

	return nextID, sentences, nil
}

func (s *Service) enqueueChapter(
	ctx context.Context,
	event ChapterOpen,
	chapterID string,
	speed float64,
	sentences []string,
	firstIndex int,
) (int, error) {
	queued := 0

	for offset, sentence := range sentences {
		job := core.Job{
			BookID:        event.BookID,
			ChapterID:     chapterID,
			SentenceIndex: firstIndex + offset,
			ModelID:       event.ModelID,
			VoiceID:       event.VoiceID,
			Speed:         speed,
			Text:          sentence,
			Attempt:       0,
		}

		enqueueErr := s.queue.EnqueueChapter(ctx, job)
		if enqueueErr != nil {
			return queued, enqueueErr
		}

		queued++
	}

	return queued, nil
}
