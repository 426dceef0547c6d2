package store

import (
	"context"
	"database/sql"
	"time"

	"hnrag/hn"
)

// Corpus persists the crawled items so serve mode can report on and inspect
// what has been indexed. Rows are keyed by the source id; re-crawls of the
// same id (a cleared ledger) simply overwrite.
type Corpus struct {
	db *sql.DB
}

func NewCorpus(db *sql.DB) *Corpus {
	return &Corpus{db: db}
}

// UpsertResult stores every item from one crawl run in a single transaction.
func (c *Corpus) UpsertResult(ctx context.Context, runID string, stories, comments []*hn.Item, users []*hn.User) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()

	for _, s := range stories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stories (id, title, url, text, by, time, score, descendants, category, run_id, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title=excluded.title, url=excluded.url, text=excluded.text,
				by=excluded.by, time=excluded.time, score=excluded.score,
				descendants=excluded.descendants, category=excluded.category,
				run_id=excluded.run_id, fetched_at=excluded.fetched_at`,
			s.ID, s.Title, s.URL, s.Text, s.By, s.Time, s.Score, s.Descendants, s.Category, runID, now,
		); err != nil {
			return err
		}
	}

	for _, cm := range comments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, parent_id, by, text, time, category, context, depth, run_id, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				parent_id=excluded.parent_id, by=excluded.by, text=excluded.text,
				time=excluded.time, category=excluded.category, context=excluded.context,
				depth=excluded.depth, run_id=excluded.run_id, fetched_at=excluded.fetched_at`,
			cm.ID, cm.Parent, cm.By, cm.Text, cm.Time, cm.Category, cm.Context, cm.Depth, runID, now,
		); err != nil {
			return err
		}
	}

	for _, u := range users {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, karma, created, about, context, run_id, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				karma=excluded.karma, created=excluded.created, about=excluded.about,
				context=excluded.context, run_id=excluded.run_id, fetched_at=excluded.fetched_at`,
			u.ID, u.Karma, u.Created, u.About, u.Context, runID, now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Counts summarizes the indexed corpus.
type Counts struct {
	Stories  int64 `json:"stories"`
	Comments int64 `json:"comments"`
	Users    int64 `json:"users"`
	Chunks   int64 `json:"chunks"`
}

func (c *Corpus) Counts(ctx context.Context) (Counts, error) {
	var counts Counts
	for _, q := range []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM stories`, &counts.Stories},
		{`SELECT COUNT(*) FROM comments`, &counts.Comments},
		{`SELECT COUNT(*) FROM users`, &counts.Users},
		{`SELECT COUNT(*) FROM chunks`, &counts.Chunks},
	} {
		if err := c.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return Counts{}, err
		}
	}
	return counts, nil
}
