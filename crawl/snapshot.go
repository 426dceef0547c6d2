package crawl

import (
	"fmt"
	"time"

	"hnrag/hn"
)

// Metadata describes one crawl run: the configuration it ran under and what
// it produced.
type Metadata struct {
	RunID              string    `json:"run_id"`
	Categories         []string  `json:"categories"`
	StoriesPerCategory int       `json:"stories_per_category"`
	MaxCommentDepth    int       `json:"max_comment_depth"`
	MaxTopComments     int       `json:"max_top_comments"`
	MaxChildComments   int       `json:"max_child_comments"`
	BatchSize          int       `json:"batch_size"`
	StoryCount         int       `json:"story_count"`
	CommentCount       int       `json:"comment_count"`
	UserCount          int       `json:"user_count"`
	FetchedAt          time.Time `json:"fetched_at"`
}

// NewMetadata builds run metadata from a config; counts are filled in by the
// snapshot writer.
func NewMetadata(cfg Config, runID string) Metadata {
	return Metadata{
		RunID:              runID,
		Categories:         cfg.Categories,
		StoriesPerCategory: cfg.StoriesPerCategory,
		MaxCommentDepth:    cfg.MaxCommentDepth,
		MaxTopComments:     cfg.MaxTopComments,
		MaxChildComments:   cfg.MaxChildComments,
		BatchSize:          cfg.BatchSize,
		FetchedAt:          time.Now().UTC(),
	}
}

// Snapshot is the durable record of one crawl: the full result plus run
// metadata. Each write fully replaces the prior snapshot; incrementality
// comes from the ledger preventing re-fetch, not from merging snapshots.
type Snapshot struct {
	Stories  []*hn.Item `json:"stories"`
	Comments []*hn.Item `json:"comments"`
	Users    []*hn.User `json:"users"`
	Metadata Metadata   `json:"metadata"`
}

// SnapshotWriter persists crawl results and commits their ids to the ledger.
type SnapshotWriter struct {
	path   string
	ledger *Ledger
}

func NewSnapshotWriter(path string, ledger *Ledger) *SnapshotWriter {
	return &SnapshotWriter{path: path, ledger: ledger}
}

// Write persists the result and metadata, then merges the result's ids into
// the ledger. The ledger is touched only after the snapshot write succeeds:
// a snapshot without ledger entries just costs a wasteful re-fetch next run,
// while ledger entries without a snapshot would silently drop items.
func (w *SnapshotWriter) Write(res *Result, meta Metadata) error {
	meta.StoryCount = len(res.Stories)
	meta.CommentCount = len(res.Comments)
	meta.UserCount = len(res.Users)

	snap := Snapshot{
		Stories:  res.Stories,
		Comments: res.Comments,
		Users:    res.Users,
		Metadata: meta,
	}
	if err := writeJSONAtomic(w.path, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	ids := w.ledger.Load()
	for id := range res.IDs() {
		ids[id] = struct{}{}
	}
	return w.ledger.Save(ids)
}
