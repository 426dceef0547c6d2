package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"hnrag/rag"
)

// Asker answers questions against the indexed corpus. *rag.Engine satisfies it.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

type AskHandler struct {
	engine Asker
}

func NewAskHandler(engine Asker) *AskHandler {
	return &AskHandler{engine: engine}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.engine.Ask(r.Context(), question)
	if err != nil {
		slog.Error("ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
