package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"hnrag/hn"
)

// Source is the read-only view of the Hacker News API the crawler needs.
// *hn.Client satisfies it.
type Source interface {
	ListCategoryIDs(ctx context.Context, category string) ([]int, error)
	GetItem(ctx context.Context, id int) (*hn.Item, error)
	GetUser(ctx context.Context, username string) (*hn.User, error)
}

// Result is the flat, enriched output of one crawl. Items are not mutated
// after the crawl completes.
type Result struct {
	Stories  []*hn.Item
	Comments []*hn.Item
	Users    []*hn.User

	// Attempted counts item and user fetches issued; Failed counts those
	// that failed at the transport level.
	Attempted int
	Failed    int
}

// Empty reports whether the crawl produced no items at all.
func (r *Result) Empty() bool {
	return len(r.Stories) == 0 && len(r.Comments) == 0 && len(r.Users) == 0
}

// AllFailed reports whether every fetch issued by the crawl failed. A run in
// this state must not be persisted: an empty snapshot would be misleading.
func (r *Result) AllFailed() bool {
	return r.Attempted > 0 && r.Failed == r.Attempted
}

// IDs returns the ledger keys of every item present in the result. Ids that
// were attempted but yielded nothing stay out, so a later run retries them.
func (r *Result) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Stories)+len(r.Comments)+len(r.Users))
	for _, s := range r.Stories {
		ids[ItemKey(s.ID)] = struct{}{}
	}
	for _, c := range r.Comments {
		ids[ItemKey(c.ID)] = struct{}{}
	}
	for _, u := range r.Users {
		ids[u.ID] = struct{}{}
	}
	return ids
}

// Crawler expands category story listings and their comment trees
// breadth-first per depth level, collecting stories, comments, and the
// profiles of every author encountered.
type Crawler struct {
	src Source
	cfg Config
}

func New(src Source, cfg Config) *Crawler {
	return &Crawler{src: src, cfg: cfg}
}

// crawlState carries the in-run bookkeeping through the traversal: the seen
// sets that suppress duplicate work and the accumulating result. A single
// crawl is the only writer.
type crawlState struct {
	ledger    map[string]struct{}
	seenItems map[int]struct{}
	seenUsers map[string]struct{}
	res       *Result
}

// Run executes one crawl against the given ledger. Categories are processed
// sequentially in configured order; a category that fails to list falls back
// to empty with a warning. The accumulated result is returned even when the
// context is cancelled mid-crawl, so partial progress stays usable.
func (c *Crawler) Run(ctx context.Context, ledger map[string]struct{}) (*Result, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("crawl config: %w", err)
	}
	if ledger == nil {
		ledger = map[string]struct{}{}
	}

	st := &crawlState{
		ledger:    ledger,
		seenItems: make(map[int]struct{}),
		seenUsers: make(map[string]struct{}),
		res:       &Result{},
	}

	for _, category := range c.cfg.Categories {
		if err := ctx.Err(); err != nil {
			return st.res, err
		}

		rootIDs, err := c.src.ListCategoryIDs(ctx, category)
		if err != nil {
			slog.Warn("crawl: category listing failed", "category", category, "error", err)
			continue
		}
		if len(rootIDs) > c.cfg.StoriesPerCategory {
			rootIDs = rootIDs[:c.cfg.StoriesPerCategory]
		}

		fresh := st.freshItemIDs(rootIDs)
		if len(fresh) == 0 {
			slog.Info("crawl: category up to date", "category", category, "listed", len(rootIDs))
			continue
		}

		c.crawlCategory(ctx, st, category, fresh)
	}

	slog.Info("crawl complete",
		"stories", len(st.res.Stories),
		"comments", len(st.res.Comments),
		"users", len(st.res.Users),
		"attempted", st.res.Attempted,
		"failed", st.res.Failed,
	)
	return st.res, ctx.Err()
}

func (c *Crawler) crawlCategory(ctx context.Context, st *crawlState, category string, rootIDs []int) {
	items := st.fetchItems(ctx, c.src, rootIDs, c.cfg.BatchSize)

	var stories []*hn.Item
	for _, it := range items {
		// Listings can surface jobs and dead entries; only stories expand.
		if it.Type != "story" {
			continue
		}
		it.Category = category
		stories = append(stories, it)
	}
	st.res.Stories = append(st.res.Stories, stories...)

	slog.Info("crawl: stories fetched", "category", category, "requested", len(rootIDs), "kept", len(stories))

	st.fetchAuthors(ctx, c.src, authorsOf(stories), fmt.Sprintf("author_of_%s_story", category), c.cfg.BatchSize)

	var frontier []int
	for _, s := range stories {
		frontier = append(frontier, truncate(s.Kids, c.cfg.MaxTopComments)...)
	}
	c.expandComments(ctx, st, frontier, 0, category)
}

// expandComments fetches one depth level of the comment tree and recurses
// into the next. All same-depth children across the level's comments are
// merged into a single frontier so the batch engine amortizes its
// concurrency bound across the whole level.
func (c *Crawler) expandComments(ctx context.Context, st *crawlState, ids []int, depth int, category string) {
	if depth >= c.cfg.MaxCommentDepth || len(ids) == 0 || ctx.Err() != nil {
		return
	}

	fresh := st.freshItemIDs(ids)
	if len(fresh) == 0 {
		return
	}

	items := st.fetchItems(ctx, c.src, fresh, c.cfg.BatchSize)

	var comments []*hn.Item
	for _, it := range items {
		// Dead or deleted items often come back typeless; drop them the
		// same way as a null fetch.
		if it.Type != "comment" {
			continue
		}
		it.Category = category
		it.Context = fmt.Sprintf("comment_on_%s_story", category)
		it.Depth = depth
		comments = append(comments, it)
	}
	st.res.Comments = append(st.res.Comments, comments...)

	// Authors are enriched at the comment's own depth, independent of
	// whether the comment's children get expanded below.
	st.fetchAuthors(ctx, c.src, authorsOf(comments), fmt.Sprintf("commenter_on_%s", category), c.cfg.BatchSize)

	var next []int
	if depth < c.cfg.MaxCommentDepth-1 {
		for _, cm := range comments {
			next = append(next, truncate(cm.Kids, c.cfg.MaxChildComments)...)
		}
	}
	c.expandComments(ctx, st, next, depth+1, category)
}

// freshItemIDs filters out ids already in the ledger, already handled this
// run, or repeated in the input, preserving first-seen order. Frontiers merge
// the children of many parents, so in-input duplicates are common.
func (st *crawlState) freshItemIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	var fresh []int
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := st.seenItems[id]; ok {
			continue
		}
		if _, ok := st.ledger[ItemKey(id)]; ok {
			continue
		}
		fresh = append(fresh, id)
	}
	return fresh
}

// fetchItems issues a batched fetch for ids and records the attempts. Every
// requested id is marked seen whether or not the fetch produced an item, so
// duplicate references elsewhere in the run are never retried.
func (st *crawlState) fetchItems(ctx context.Context, src Source, ids []int, batchSize int) []*hn.Item {
	for _, id := range ids {
		st.seenItems[id] = struct{}{}
	}
	items, failed := hn.FetchBatch(ctx, ids, batchSize, src.GetItem)
	st.res.Attempted += len(ids)
	st.res.Failed += failed
	return items
}

// fetchAuthors fetches profiles for usernames not seen before, tags each with
// the given role, and appends them to the result.
func (st *crawlState) fetchAuthors(ctx context.Context, src Source, usernames []string, role string, batchSize int) {
	var fresh []string
	for _, name := range usernames {
		if _, ok := st.seenUsers[name]; ok {
			continue
		}
		if _, ok := st.ledger[name]; ok {
			continue
		}
		st.seenUsers[name] = struct{}{}
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		return
	}

	users, failed := hn.FetchBatch(ctx, fresh, batchSize, src.GetUser)
	st.res.Attempted += len(fresh)
	st.res.Failed += failed

	for _, u := range users {
		u.Context = role
		st.res.Users = append(st.res.Users, u)
	}
}

// authorsOf returns the distinct authors of items in first-seen order.
func authorsOf(items []*hn.Item) []string {
	seen := make(map[string]struct{}, len(items))
	var authors []string
	for _, it := range items {
		if it.By == "" {
			continue
		}
		if _, ok := seen[it.By]; ok {
			continue
		}
		seen[it.By] = struct{}{}
		authors = append(authors, it.By)
	}
	return authors
}

func truncate(ids []int, max int) []int {
	if len(ids) > max {
		return ids[:max]
	}
	return ids
}
