package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hnrag/hn"
	"hnrag/store"
)

func openTestDB(t *testing.T) *store.Corpus {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewCorpus(db)
}

func TestUpsertResultAndCounts(t *testing.T) {
	corpus := openTestDB(t)
	ctx := context.Background()

	stories := []*hn.Item{
		{ID: 1, Type: "story", Title: "First", By: "alice", Score: 10, Category: "topstories"},
		{ID: 2, Type: "story", Title: "Second", By: "bob", Category: "newstories"},
	}
	comments := []*hn.Item{
		{ID: 10, Type: "comment", Parent: 1, By: "carol", Text: "hi", Category: "topstories", Depth: 0},
	}
	users := []*hn.User{
		{ID: "alice", Karma: 100, Context: "author_of_topstories_story"},
	}

	require.NoError(t, corpus.UpsertResult(ctx, "run-1", stories, comments, users))

	counts, err := corpus.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.Stories)
	require.Equal(t, int64(1), counts.Comments)
	require.Equal(t, int64(1), counts.Users)
	require.Zero(t, counts.Chunks)
}

func TestUpsertResultOverwritesSameID(t *testing.T) {
	corpus := openTestDB(t)
	ctx := context.Background()

	first := []*hn.Item{{ID: 1, Type: "story", Title: "Old title", Score: 5, Category: "topstories"}}
	require.NoError(t, corpus.UpsertResult(ctx, "run-1", first, nil, nil))

	second := []*hn.Item{{ID: 1, Type: "story", Title: "New title", Score: 50, Category: "topstories"}}
	require.NoError(t, corpus.UpsertResult(ctx, "run-2", second, nil, nil))

	counts, err := corpus.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts.Stories)
}

func TestUpsertResultEmpty(t *testing.T) {
	corpus := openTestDB(t)
	require.NoError(t, corpus.UpsertResult(context.Background(), "run-1", nil, nil, nil))
}
