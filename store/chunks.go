package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"hnrag/docs"
)

// ChunkStore persists embedded document chunks and serves similarity
// searches. Vectors are stored as little-endian float32 blobs; search is
// brute-force cosine over the whole table, which is fine at the corpus sizes
// the crawl limits allow.
type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ScoredChunk is a search hit with its cosine similarity.
type ScoredChunk struct {
	ID       int64   `json:"id"`
	ItemID   string  `json:"item_id"`
	ItemType string  `json:"item_type"`
	Category string  `json:"category,omitempty"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// Insert stores chunks with their embeddings in one transaction. chunks and
// vectors must be parallel slices.
func (s *ChunkStore) Insert(ctx context.Context, runID string, chunks []docs.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for i, c := range chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (item_id, item_type, category, author, seq, content, embedding, dim, run_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ItemID, c.ItemType, c.Category, c.Author, c.Seq, c.Text,
			encodeVector(vectors[i]), len(vectors[i]), runID, now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns the k chunks most similar to the query vector.
func (s *ChunkStore) Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, item_type, category, content, embedding, dim FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []ScoredChunk
	for rows.Next() {
		var (
			c        ScoredChunk
			category sql.NullString
			blob     []byte
			dim      int
		)
		if err := rows.Scan(&c.ID, &c.ItemID, &c.ItemType, &category, &c.Content, &blob, &dim); err != nil {
			return nil, err
		}
		c.Category = category.String

		vec, err := decodeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.ID, err)
		}
		c.Score = cosineSimilarity(query, vec)
		scored = append(scored, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != 4*dim {
		return nil, fmt.Errorf("embedding blob is %d bytes, want %d", len(blob), 4*dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
