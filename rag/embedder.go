package rag

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const embedBatchSize = 64

// Embedder turns texts into embedding vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder embeds through an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client embeddingClient
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(client *openai.Client, model string) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{client: client, model: openai.EmbeddingModel(model)}
}

// EmbedTexts embeds texts in request batches of at most embedBatchSize,
// returning vectors in input order.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		group := texts[start:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: group,
			Model: e.model,
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(resp.Data) != len(group) {
			return nil, fmt.Errorf("embed batch at %d: got %d embeddings for %d inputs", start, len(resp.Data), len(group))
		}

		batch := make([][]float32, len(group))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(group) {
				return nil, fmt.Errorf("embed batch at %d: index %d out of range", start, d.Index)
			}
			batch[d.Index] = d.Embedding
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}
