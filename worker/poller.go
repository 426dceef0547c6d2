package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"hnrag/pipeline"
	"hnrag/sse"
)

// Runner executes one pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
}

// Poller re-runs the ingest pipeline on an interval and publishes a
// corpus_updated event after each run that changed the corpus. Concurrent
// triggers (ticker vs. the refresh endpoint) coalesce into a single run.
type Poller struct {
	runner   Runner
	broker   *sse.Broker
	interval time.Duration
	sf       singleflight.Group
}

func NewPoller(runner Runner, broker *sse.Broker, interval time.Duration) *Poller {
	return &Poller{runner: runner, broker: broker, interval: interval}
}

// Start begins the polling loop. It runs until the context is cancelled.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		p.run(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("poller: shutting down")
				return
			case <-ticker.C:
				p.run(ctx)
			}
		}
	}()
}

// Trigger runs the pipeline now, sharing the run with any in-flight one.
func (p *Poller) Trigger(ctx context.Context) (*pipeline.Summary, error) {
	return p.run(ctx)
}

func (p *Poller) run(ctx context.Context) (*pipeline.Summary, error) {
	// Publishing happens inside the singleflight closure so a run that changed
	// the corpus emits exactly one event, no matter how many callers shared it.
	v, err, _ := p.sf.Do("pipeline", func() (interface{}, error) {
		start := time.Now()
		summary, err := p.runner.Run(ctx)
		if err != nil {
			slog.Error("poller: pipeline run failed", "error", err)
			return nil, err
		}
		slog.Info("poller: pipeline run complete", "elapsed", time.Since(start), "up_to_date", summary.UpToDate)

		if !summary.UpToDate && p.broker != nil {
			data, _ := json.Marshal(map[string]interface{}{
				"run_id":    summary.RunID,
				"stories":   summary.Stories,
				"comments":  summary.Comments,
				"users":     summary.Users,
				"chunks":    summary.Chunks,
				"timestamp": time.Now().Unix(),
			})
			p.broker.Publish("corpus_updated", string(data))
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pipeline.Summary), nil
}
