package docs

import (
	"strings"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 50
)

// Chunk is one embeddable slice of a document.
type Chunk struct {
	ItemID   string
	ItemType string
	Category string
	Author   string
	Seq      int
	Text     string
}

// Splitter cuts documents into chunks of at most Size runes with Overlap
// runes carried between consecutive chunks, preferring to break at line
// boundaries.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter(size, overlap int) Splitter {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}
	return Splitter{Size: size, Overlap: overlap}
}

// Split cuts a single document into chunks.
func (s Splitter) Split(d Document) []Chunk {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return nil
	}

	var chunks []Chunk
	for seq, piece := range s.splitText(text) {
		chunks = append(chunks, Chunk{
			ItemID:   d.ItemID,
			ItemType: d.ItemType,
			Category: d.Category,
			Author:   d.Author,
			Seq:      seq,
			Text:     piece,
		})
	}
	return chunks
}

// SplitAll cuts every document, dropping empty ones.
func (s Splitter) SplitAll(documents []Document) []Chunk {
	var chunks []Chunk
	for _, d := range documents {
		chunks = append(chunks, s.Split(d)...)
	}
	return chunks
}

func (s Splitter) splitText(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + s.Size
		if end >= len(runes) {
			pieces = append(pieces, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := breakPoint(runes, start, end)
		pieces = append(pieces, strings.TrimSpace(string(runes[start:cut])))

		next := cut - s.Overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	// Drop pieces that trimmed down to nothing.
	out := pieces[:0]
	for _, p := range pieces {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// breakPoint looks backwards from end for a newline, then a space, inside the
// last fifth of the window; otherwise it cuts hard at end.
func breakPoint(runes []rune, start, end int) int {
	limit := end - (end-start)/5
	for i := end; i > limit; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := end; i > limit; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}
