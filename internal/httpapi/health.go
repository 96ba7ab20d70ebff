package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/book-expert/tts-gateway/internal/core"
)

type workerHealth struct {
	HeartbeatAgeSeconds float64 `json:"heartbeat_age_seconds"`
	Alive               bool    `json:"alive"`
}

type queueHealth struct {
	ActiveBooks int   `json:"active_books"`
	QueuedJobs  int64 `json:"queued_jobs"`
}

type healthResponse struct {
	Status  string       `json:"status"`
	KV      string       `json:"kv"`
	Backend string       `json:"backend"`
	Worker  workerHealth `json:"worker"`
	Queues  queueHealth  `json:"queues"`
}

// handleHealth aggregates KV reachability, backend reachability, worker
// heartbeat age and queue depth. The endpoint itself always answers 200 with
// a degraded status rather than failing.
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(),
		time.Duration(r.cfg.Backend.HealthTimeoutSeconds)*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:  "ok",
		KV:      "ok",
		Backend: "ok",
		Worker:  workerHealth{HeartbeatAgeSeconds: 0, Alive: false},
		Queues:  queueHealth{ActiveBooks: 0, QueuedJobs: 0},
	}

	r.checkQueues(ctx, &resp)
	r.checkBackend(ctx, &resp)
	r.checkWorkers(ctx, &resp)

	if resp.KV != "ok" || resp.Backend == "unreachable" {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) checkQueues(ctx context.Context, resp *healthResponse) {
	books, err := r.queue.ActiveBooks(ctx)
	if err != nil {
		resp.KV = "unreachable"

		return
	}

	resp.Queues.ActiveBooks = len(books)

	for _, book := range books {
		prefetchLen, chapterLen, lenErr := r.queue.Lengths(ctx, book)
		if lenErr != nil {
			resp.KV = "unreachable"

			return
		}

		resp.Queues.QueuedJobs += prefetchLen + chapterLen
	}
}

func (r *Router) checkBackend(ctx context.Context, resp *healthResponse) {
	err := r.synth.HealthCheck(ctx)

	switch {
	case err == nil:
	case errors.Is(err, core.ErrBackendRestarting):
		resp.Backend = "restarting"
	default:
		resp.Backend = "unreachable"
	}
}

func (r *Router) checkWorkers(ctx context.Context, resp *healthResponse) {
	age, alive, err := r.heartbeat.YoungestAge(ctx)
	if err != nil {
		resp.KV = "unreachable"

		return
	}

	resp.Worker.Alive = alive
	if alive {
		resp.Worker.HeartbeatAgeSeconds = age.Seconds()
	}
}
