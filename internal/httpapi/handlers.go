package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/enqueue"
	"github.com/book-expert/tts-gateway/internal/proxy"
)

// CacheStatusHeader tags every speech response with HIT or MISS.
const CacheStatusHeader = "x-tts-cache"

type speechRequest struct {
	BookID string  `json:"book_id"`
	Model  string  `json:"model"`
	Voice  string  `json:"voice"`
	Speed  float64 `json:"speed"`
	Text   string  `json:"text"`
}

type chapterOpenRequest struct {
	BookID    string  `json:"book_id"`
	ChapterID string  `json:"chapter_id"`
	Model     string  `json:"model"`
	Voice     string  `json:"voice"`
	Speed     float64 `json:"speed"`
}

type pageOpenRequest struct {
	BookID     string  `json:"book_id"`
	ChapterID  string  `json:"chapter_id"`
	StartIndex int     `json:"start_index"`
	Model      string  `json:"model"`
	Voice      string  `json:"voice"`
	Speed      float64 `json:"speed"`
}

type putChapterRequest struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

func decodeJSON(r *http.Request, target any) error {
	err := json.NewDecoder(r.Body).Decode(target)
	if err != nil {
		return fmt.Errorf("%w: malformed request body: %v", core.ErrInvalidInput, err)
	}

	return nil
}

func (r *Router) handleSpeech(w http.ResponseWriter, req *http.Request) {
	// Every speech response carries the cache indicator, error responses
	// included; a served sentence overwrites it below.
	w.Header().Set(CacheStatusHeader, string(core.CacheMiss))

	var body speechRequest

	decodeErr := decodeJSON(req, &body)
	if decodeErr != nil {
		r.writeError(w, decodeErr)

		return
	}

	policyErr := r.checkPolicy(body.Model, body.Voice)
	if policyErr != nil {
		r.writeError(w, policyErr)

		return
	}

	audio, status, err := r.proxy.ServeSentence(req.Context(), proxy.Request{
		BookID:  body.BookID,
		ModelID: body.Model,
		VoiceID: body.Voice,
		Speed:   body.Speed,
		Text:    body.Text,
	})
	if err != nil {
		r.writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set(CacheStatusHeader, string(status))
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(audio)
}

func (r *Router) handleChapterOpen(w http.ResponseWriter, req *http.Request) {
	var body chapterOpenRequest

	decodeErr := decodeJSON(req, &body)
	if decodeErr != nil {
		r.writeError(w, decodeErr)

		return
	}

	queued, err := r.enqueue.OpenChapter(req.Context(), enqueue.ChapterOpen{
		BookID:    body.BookID,
		ChapterID: body.ChapterID,
		ModelID:   body.Model,
		VoiceID:   body.Voice,
		Speed:     body.Speed,
	})
	if err != nil {
		r.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"queued": queued})
}

func (r *Router) handlePageOpen(w http.ResponseWriter, req *http.Request) {
	var body pageOpenRequest

	decodeErr := decodeJSON(req, &body)
	if decodeErr != nil {
		r.writeError(w, decodeErr)

		return
	}

	queued, err := r.enqueue.OpenPage(req.Context(), enqueue.PageOpen{
		BookID:     body.BookID,
		ChapterID:  body.ChapterID,
		StartIndex: body.StartIndex,
		ModelID:    body.Model,
		VoiceID:    body.Voice,
		Speed:      body.Speed,
	})
	if err != nil {
		r.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"queued": queued})
}

func (r *Router) handlePutChapter(w http.ResponseWriter, req *http.Request) {
	bookID := req.PathValue("book")
	chapterID := req.PathValue("chapter")

	var body putChapterRequest

	decodeErr := decodeJSON(req, &body)
	if decodeErr != nil {
		r.writeError(w, decodeErr)

		return
	}

	err := r.books.PutChapter(req.Context(), bookID, chapterID, body.Position, body.Text)
	if err != nil {
		r.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"book_id":    bookID,
		"chapter_id": chapterID,
	})
}

func (r *Router) checkPolicy(modelID, voiceID string) error {
	if !r.cfg.AllowsModel(modelID) {
		return fmt.Errorf("%w: model %q is not allowed", core.ErrInvalidInput, modelID)
	}

	if !r.cfg.AllowsVoice(modelID, voiceID) {
		return fmt.Errorf("%w: voice %q is not allowed for model %q", core.ErrInvalidInput, voiceID, modelID)
	}

	return nil
}
