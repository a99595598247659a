// Package rag combines query embedding, similarity search over the shared
// index, and context-conditioned chat completion.
package rag

import (
	"context"
	"fmt"

	"github.com/kalambet/libris/internal/index"
)

// DefaultTopK is the number of chunks retrieved when the caller does not
// specify k.
const DefaultTopK = 4

// Embedder generates one embedding vector per input text.
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	embedder Embedder
	index    *index.Index
	model    string
}

// NewRetriever creates a Retriever embedding queries with the given model.
func NewRetriever(embedder Embedder, ix *index.Index, model string) *Retriever {
	return &Retriever{embedder: embedder, index: ix, model: model}
}

// Retrieve embeds the query and returns the topK most similar chunks,
// best first. An empty index yields an empty result without calling the
// embedding service.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]index.ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if r.index.IsEmpty() {
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, r.model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors, want 1", len(vectors))
	}

	return r.index.Search(vectors[0], topK), nil
}
