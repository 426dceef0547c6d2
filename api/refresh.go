package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"hnrag/pipeline"
)

const refreshWindow = 30 * time.Second

// Trigger starts a pipeline run, coalescing with any in-flight one.
// *worker.Poller satisfies it.
type Trigger interface {
	Trigger(ctx context.Context) (*pipeline.Summary, error)
}

type RefreshHandler struct {
	trigger Trigger

	mu      sync.Mutex
	lastRun time.Time
}

func NewRefreshHandler(trigger Trigger) *RefreshHandler {
	return &RefreshHandler{trigger: trigger}
}

// Refresh handles POST /api/refresh: rate-limited, returns 202 immediately
// and runs the pipeline in the background.
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	now := time.Now()
	if !h.lastRun.IsZero() && now.Sub(h.lastRun) < refreshWindow {
		h.mu.Unlock()
		writeError(w, http.StatusTooManyRequests, "rate limited, retry after 30s")
		return
	}
	h.lastRun = now
	h.mu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	// Background work uses a detached context (not tied to the request).
	go h.trigger.Trigger(context.Background())
}
