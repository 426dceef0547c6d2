package docs_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"hnrag/docs"
)

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	s := docs.NewSplitter(500, 50)
	doc := docs.Document{ItemID: "1", ItemType: "story", Category: "topstories", Author: "alice", Text: "short text"}

	chunks := s.Split(doc)
	require.Len(t, chunks, 1)
	require.Equal(t, "short text", chunks[0].Text)
	require.Equal(t, "1", chunks[0].ItemID)
	require.Equal(t, "story", chunks[0].ItemType)
	require.Equal(t, "topstories", chunks[0].Category)
	require.Equal(t, "alice", chunks[0].Author)
	require.Zero(t, chunks[0].Seq)
}

func TestSplitLongDocument(t *testing.T) {
	s := docs.NewSplitter(100, 20)
	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	doc := docs.Document{ItemID: "1", Text: strings.Join(words, " ")}

	chunks := s.Split(doc)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		require.Equal(t, i, c.Seq)
		require.LessOrEqual(t, len([]rune(c.Text)), 100)
		require.NotEmpty(t, c.Text)
	}

	// No content is lost: every word position is covered.
	total := 0
	for _, c := range chunks {
		total += len(strings.Fields(c.Text))
	}
	require.GreaterOrEqual(t, total, 200)
}

func TestSplitPrefersNewlineBreaks(t *testing.T) {
	s := docs.NewSplitter(50, 5)
	line := strings.Repeat("a", 45)
	doc := docs.Document{ItemID: "1", Text: line + "\n" + line + "\n" + line}

	chunks := s.Split(doc)
	require.Greater(t, len(chunks), 1)
	require.Equal(t, line, chunks[0].Text)
}

func TestSplitEmptyDocument(t *testing.T) {
	s := docs.NewSplitter(500, 50)
	require.Nil(t, s.Split(docs.Document{ItemID: "1", Text: "   "}))
}

func TestSplitAll(t *testing.T) {
	s := docs.NewSplitter(500, 50)
	chunks := s.SplitAll([]docs.Document{
		{ItemID: "1", Text: "one"},
		{ItemID: "2", Text: ""},
		{ItemID: "3", Text: "three"},
	})
	require.Len(t, chunks, 2)
	require.Equal(t, "1", chunks[0].ItemID)
	require.Equal(t, "3", chunks[1].ItemID)
}

func TestNewSplitterDefaults(t *testing.T) {
	s := docs.NewSplitter(0, -1)
	require.Equal(t, 500, s.Size)
	require.Equal(t, 50, s.Overlap)

	s = docs.NewSplitter(100, 100)
	require.Equal(t, 100, s.Size)
	require.Equal(t, 50, s.Overlap)
}
