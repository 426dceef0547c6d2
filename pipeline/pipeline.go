package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"hnrag/crawl"
	"hnrag/docs"
	"hnrag/hn"
	"hnrag/rag"
	"hnrag/readability"
	"hnrag/store"
)

// Options wires a pipeline together.
type Options struct {
	Source    crawl.Source
	Crawl     crawl.Config
	Ledger    *crawl.Ledger
	Snapshots *crawl.SnapshotWriter
	Corpus    *store.Corpus
	Chunks    *store.ChunkStore
	Embedder  rag.Embedder
	Splitter  docs.Splitter

	// FetchArticles enables reader-mode extraction of story links as extra
	// corpus documents.
	FetchArticles bool
}

// Pipeline runs one end-to-end ingest: crawl, snapshot, store the corpus,
// format documents, chunk, embed, and index.
type Pipeline struct {
	opts Options
}

func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Summary reports what one run produced.
type Summary struct {
	RunID    string `json:"run_id,omitempty"`
	Stories  int    `json:"stories"`
	Comments int    `json:"comments"`
	Users    int    `json:"users"`
	Articles int    `json:"articles"`
	Chunks   int    `json:"chunks"`
	UpToDate bool   `json:"up_to_date"`
}

// Run executes the pipeline once. When the crawl is cancelled mid-run the
// partial result is still snapshotted and committed to the ledger; only the
// indexing stages are skipped.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	ledgerIDs := p.opts.Ledger.Load()
	slog.Info("pipeline: starting", "ledger_ids", len(ledgerIDs))

	res, crawlErr := crawl.New(p.opts.Source, p.opts.Crawl).Run(ctx, ledgerIDs)
	if res == nil {
		return nil, crawlErr
	}
	if res.AllFailed() {
		return nil, fmt.Errorf("all %d fetches failed, skipping persist", res.Attempted)
	}
	if res.Empty() {
		if crawlErr != nil {
			return nil, crawlErr
		}
		slog.Info("pipeline: no new items, corpus up to date")
		return &Summary{UpToDate: true}, nil
	}

	runID := uuid.NewString()
	summary := &Summary{
		RunID:    runID,
		Stories:  len(res.Stories),
		Comments: len(res.Comments),
		Users:    len(res.Users),
	}

	if err := p.opts.Snapshots.Write(res, crawl.NewMetadata(p.opts.Crawl, runID)); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}
	if crawlErr != nil {
		slog.Warn("pipeline: crawl interrupted, snapshot written but indexing skipped", "error", crawlErr)
		return summary, crawlErr
	}

	if err := p.opts.Corpus.UpsertResult(ctx, runID, res.Stories, res.Comments, res.Users); err != nil {
		return nil, fmt.Errorf("store corpus: %w", err)
	}

	documents, articles := p.buildDocuments(ctx, res)
	summary.Articles = articles

	chunks := p.opts.Splitter.SplitAll(documents)
	if len(chunks) == 0 {
		return summary, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.opts.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if err := p.opts.Chunks.Insert(ctx, runID, chunks, vectors); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	summary.Chunks = len(chunks)

	slog.Info("pipeline: run complete",
		"run_id", runID,
		"stories", summary.Stories,
		"comments", summary.Comments,
		"users", summary.Users,
		"articles", summary.Articles,
		"chunks", summary.Chunks,
	)
	return summary, nil
}

// buildDocuments formats every item in the result, plus reader-mode article
// documents for story links when enabled.
func (p *Pipeline) buildDocuments(ctx context.Context, res *crawl.Result) ([]docs.Document, int) {
	var documents []docs.Document
	appendDoc := func(d docs.Document) {
		if d.Text != "" {
			documents = append(documents, d)
		}
	}

	for _, s := range res.Stories {
		appendDoc(docs.FormatStory(s))
	}
	for _, c := range res.Comments {
		appendDoc(docs.FormatComment(c))
	}
	for _, u := range res.Users {
		appendDoc(docs.FormatUser(u))
	}

	articles := 0
	if p.opts.FetchArticles {
		var linked []*hn.Item
		for _, s := range res.Stories {
			if s.URL != "" {
				linked = append(linked, s)
			}
		}
		// Article fetches go through the same bounded batching as the
		// crawl; extraction failures just mean fewer documents.
		extracted, _ := hn.FetchBatch(ctx, linked, p.opts.Crawl.BatchSize, func(ctx context.Context, s *hn.Item) (*docs.Document, error) {
			a, err := readability.Extract(ctx, s.URL)
			if err != nil {
				return nil, err
			}
			d := docs.FormatArticle(s, a.Title, a.Byline, a.Text)
			if d.Text == "" {
				return nil, nil
			}
			return &d, nil
		})
		for _, d := range extracted {
			appendDoc(*d)
			articles++
		}
	}

	return documents, articles
}
