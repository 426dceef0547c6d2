package worker

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hnrag/pipeline"
	"hnrag/sse"
)

type fakeRunner struct {
	runs    int64
	summary *pipeline.Summary
	err     error
	block   chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context) (*pipeline.Summary, error) {
	atomic.AddInt64(&f.runs, 1)
	if f.block != nil {
		<-f.block
	}
	return f.summary, f.err
}

func TestTriggerPublishesCorpusUpdated(t *testing.T) {
	broker := sse.NewBroker(10)
	runner := &fakeRunner{summary: &pipeline.Summary{RunID: "run-1", Stories: 2, Chunks: 12}}
	p := NewPoller(runner, broker, time.Hour)

	summary, err := p.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, "run-1", summary.RunID)

	rec := pollEvents(t, broker)
	require.Contains(t, rec, "corpus_updated")
	require.Contains(t, rec, `"run_id":"run-1"`)
}

func TestTriggerSkipsPublishWhenUpToDate(t *testing.T) {
	broker := sse.NewBroker(10)
	runner := &fakeRunner{summary: &pipeline.Summary{UpToDate: true}}
	p := NewPoller(runner, broker, time.Hour)

	summary, err := p.Trigger(context.Background())
	require.NoError(t, err)
	require.True(t, summary.UpToDate)
	require.Empty(t, pollEvents(t, broker))
}

func TestTriggerPropagatesRunError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("crawl down")}
	p := NewPoller(runner, nil, time.Hour)

	_, err := p.Trigger(context.Background())
	require.Error(t, err)
}

func TestConcurrentTriggersCoalesce(t *testing.T) {
	runner := &fakeRunner{
		summary: &pipeline.Summary{RunID: "run-1"},
		block:   make(chan struct{}),
	}
	p := NewPoller(runner, nil, time.Hour)

	results := make(chan error, 2)
	go func() {
		_, err := p.Trigger(context.Background())
		results <- err
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&runner.runs) == 1
	}, time.Second, time.Millisecond)

	// The second trigger arrives while the first run is still in flight.
	go func() {
		_, err := p.Trigger(context.Background())
		results <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(runner.block)

	require.NoError(t, <-results)
	require.NoError(t, <-results)
	require.Equal(t, int64(1), atomic.LoadInt64(&runner.runs))
}

func TestCoalescedTriggersPublishOnce(t *testing.T) {
	broker := sse.NewBroker(10)
	runner := &fakeRunner{
		summary: &pipeline.Summary{RunID: "run-1", Stories: 1, Chunks: 3},
		block:   make(chan struct{}),
	}
	p := NewPoller(runner, broker, time.Hour)

	results := make(chan error, 2)
	go func() {
		_, err := p.Trigger(context.Background())
		results <- err
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&runner.runs) == 1
	}, time.Second, time.Millisecond)

	go func() {
		_, err := p.Trigger(context.Background())
		results <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(runner.block)

	require.NoError(t, <-results)
	require.NoError(t, <-results)
	require.Equal(t, int64(1), atomic.LoadInt64(&runner.runs))

	// The shared run still announces the corpus change, exactly once.
	events := pollEvents(t, broker)
	require.Equal(t, 1, strings.Count(events, "event: corpus_updated"))
	require.Contains(t, events, `"run_id":"run-1"`)
}

// pollEvents reads the broker's replay buffer through its SSE endpoint, using
// an already-cancelled request so the handler returns after the replay.
func pollEvents(t *testing.T, broker *sse.Broker) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "0")
	rec := httptest.NewRecorder()
	broker.ServeHTTP(rec, req)

	body := rec.Body.String()
	return strings.ReplaceAll(body, ": connected\n\n", "")
}
