// Package httpapi exposes the gateway's inbound HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-gateway/internal/bookstore"
	"github.com/book-expert/tts-gateway/internal/config"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/enqueue"
	"github.com/book-expert/tts-gateway/internal/proxy"
)

// heartbeatReader reports the age of the freshest worker heartbeat.
type heartbeatReader interface {
	YoungestAge(ctx context.Context) (time.Duration, bool, error)
}

// Router wires the HTTP handlers to the gateway services.
type Router struct {
	cfg       *config.Config
	proxy     *proxy.Proxy
	enqueue   *enqueue.Service
	books     *bookstore.Store
	queue     core.JobQueue
	synth     core.Synthesizer
	heartbeat heartbeatReader
	metrics   http.Handler
	log       *logger.Logger
	mux       *http.ServeMux
}

// New builds the gateway router.
func New(
	cfg *config.Config,
	proxySvc *proxy.Proxy,
	enqueueSvc *enqueue.Service,
	books *bookstore.Store,
	queue core.JobQueue,
	synth core.Synthesizer,
	heartbeat heartbeatReader,
	metricsHandler http.Handler,
	log *logger.Logger,
) http.Handler {
	r := &Router{
		cfg:       cfg,
		proxy:     proxySvc,
		enqueue:   enqueueSvc,
		books:     books,
		queue:     queue,
		synth:     synth,
		heartbeat: heartbeat,
		metrics:   metricsHandler,
		log:       log,
		mux:       http.NewServeMux(),
	}

	r.routes()

	return r.mux
}

func (r *Router) routes() {
	r.mux.HandleFunc("POST /tts/speech", r.handleSpeech)
	r.mux.HandleFunc("POST /tts/queue/chapter", r.handleChapterOpen)
	r.mux.HandleFunc("POST /tts/queue/prefetch", r.handlePageOpen)
	r.mux.HandleFunc("PUT /tts/books/{book}/chapters/{chapter}", r.handlePutChapter)
	r.mux.HandleFunc("GET /tts/voices", r.handleVoices)
	r.mux.HandleFunc("GET /tts/languages", r.handleLanguages)
	r.mux.HandleFunc("GET /health", r.handleHealth)

	if r.metrics != nil {
		r.mux.Handle("GET /metrics", r.metrics)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(payload)
}

func (r *Router) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)

	if status >= http.StatusInternalServerError {
		r.log.Error("request failed: %v", err)
	}

	writeJSON(w, status, map[string]string{"error": errorKind(err)})
}

// errorStatus maps the cross-component error kinds onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBackendUnavailable), errors.Is(err, core.ErrInvalidAudio):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrBackendRestarting):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, core.ErrInvalidAudio):
		return "invalid_audio"
	case errors.Is(err, core.ErrBackendRestarting):
		return "backend_restarting"
	case errors.Is(err, core.ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
