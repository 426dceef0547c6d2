package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hnrag/pipeline"
	"hnrag/rag"
	"hnrag/store"
)

type fakeAsker struct {
	answer *rag.Answer
	err    error
	asked  string
}

func (f *fakeAsker) Ask(ctx context.Context, question string) (*rag.Answer, error) {
	f.asked = question
	return f.answer, f.err
}

func TestAskHandler(t *testing.T) {
	asker := &fakeAsker{answer: &rag.Answer{
		Text:    "Dropbox launched in 2007.",
		Sources: []store.ScoredChunk{{ID: 1, ItemID: "8863", ItemType: "story", Score: 0.9}},
	}}
	h := NewAskHandler(asker)

	req := httptest.NewRequest("POST", "/api/ask", strings.NewReader(`{"question": " When did Dropbox launch? "}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "When did Dropbox launch?", asker.asked)

	var answer rag.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	require.Equal(t, "Dropbox launched in 2007.", answer.Text)
	require.Len(t, answer.Sources, 1)
}

func TestAskHandlerEmptyQuestion(t *testing.T) {
	h := NewAskHandler(&fakeAsker{})

	req := httptest.NewRequest("POST", "/api/ask", strings.NewReader(`{"question": "  "}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, 400, rec.Code)
	require.Contains(t, rec.Body.String(), "question is required")
}

func TestAskHandlerBadBody(t *testing.T) {
	h := NewAskHandler(&fakeAsker{})

	req := httptest.NewRequest("POST", "/api/ask", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, 400, rec.Code)
}

func TestAskHandlerEngineError(t *testing.T) {
	h := NewAskHandler(&fakeAsker{err: errors.New("api down")})

	req := httptest.NewRequest("POST", "/api/ask", strings.NewReader(`{"question": "q"}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, 500, rec.Code)
}

type fakeCounter struct {
	counts store.Counts
	err    error
}

func (f *fakeCounter) Counts(ctx context.Context) (store.Counts, error) {
	return f.counts, f.err
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(&fakeCounter{counts: store.Counts{Stories: 3, Comments: 9, Users: 4, Chunks: 40}})

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)

	var body struct {
		Status string       `json:"status"`
		Corpus store.Counts `json:"corpus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, int64(3), body.Corpus.Stories)
	require.Equal(t, int64(40), body.Corpus.Chunks)
}

func TestHealthHandlerDatabaseError(t *testing.T) {
	h := NewHealthHandler(&fakeCounter{err: errors.New("closed")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, 500, rec.Code)
}

type fakeTrigger struct {
	called chan struct{}
}

func (f *fakeTrigger) Trigger(ctx context.Context) (*pipeline.Summary, error) {
	select {
	case f.called <- struct{}{}:
	default:
	}
	return &pipeline.Summary{RunID: "run-1"}, nil
}

func TestRefreshHandlerAcceptsThenRateLimits(t *testing.T) {
	trigger := &fakeTrigger{called: make(chan struct{}, 1)}
	h := NewRefreshHandler(trigger)

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest("POST", "/api/refresh", nil))
	require.Equal(t, 202, rec.Code)

	select {
	case <-trigger.called:
	case <-time.After(time.Second):
		t.Fatal("trigger was never called")
	}

	rec = httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest("POST", "/api/refresh", nil))
	require.Equal(t, 429, rec.Code)
	require.Contains(t, rec.Body.String(), "rate limited")
}
