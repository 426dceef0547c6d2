package rag

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"hnrag/store"
)

const defaultTopK = 6

// ChunkSearcher finds stored chunks similar to a query vector.
// *store.ChunkStore satisfies it.
type ChunkSearcher interface {
	Search(ctx context.Context, query []float32, k int) ([]store.ScoredChunk, error)
}

// ChatCompleter is the slice of the OpenAI client the engine needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Answer is a generated answer with the chunks that grounded it.
type Answer struct {
	Text    string              `json:"answer"`
	Sources []store.ScoredChunk `json:"sources"`
}

// Engine runs the retrieval-augmented answering chain: embed the question,
// retrieve the most similar chunks, and generate an answer from them.
type Engine struct {
	embedder Embedder
	chunks   ChunkSearcher
	chat     ChatCompleter
	model    string
	topK     int
}

func NewEngine(embedder Embedder, chunks ChunkSearcher, chat ChatCompleter, model string, topK int) *Engine {
	if model == "" {
		model = openai.GPT4oMini
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Engine{embedder: embedder, chunks: chunks, chat: chat, model: model, topK: topK}
}

// Ask answers a question against the indexed corpus.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	vectors, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := e.chunks.Search(ctx, vectors[0], e.topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no indexed content to answer from; run the pipeline first")
	}

	contexts := make([]string, len(hits))
	for i, h := range hits {
		contexts[i] = h.Content
	}

	resp, err := e.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(question, contexts)},
		},
		Temperature: 0.7,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	slog.Info("question answered", "retrieved", len(hits), "model", e.model)
	return &Answer{Text: resp.Choices[0].Message.Content, Sources: hits}, nil
}
