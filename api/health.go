package api

import (
	"context"
	"net/http"

	"hnrag/store"
)

// Counter reports corpus sizes. *store.Corpus satisfies it.
type Counter interface {
	Counts(ctx context.Context) (store.Counts, error)
}

type HealthHandler struct {
	corpus Counter
}

func NewHealthHandler(corpus Counter) *HealthHandler {
	return &HealthHandler{corpus: corpus}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	counts, err := h.corpus.Counts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"corpus": counts,
	})
}
