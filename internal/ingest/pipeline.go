// Package ingest loads PDF documents, splits them into overlapping text
// chunks, embeds each chunk, and appends the results to the shared vector
// index. Re-ingesting a path appends duplicates rather than replacing
// earlier entries; callers that need a clean index rebuild it from scratch.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/libris/internal/index"
)

// embedConcurrency bounds parallel requests to the embedding service.
const embedConcurrency = 4

// Embedder generates one embedding vector per input text.
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Extractor turns a document path into per-page text.
// The default is ExtractPDF; tests substitute a fake.
type Extractor func(path string) ([]PageText, error)

// Pipeline chunks documents and feeds their embeddings into the index.
type Pipeline struct {
	embedder     Embedder
	index        *index.Index
	model        string
	extract      Extractor
	chunkSize    int
	chunkOverlap int
}

// Result reports how many chunks one EmbedPaths call produced and indexed.
type Result struct {
	IndexedChunks int
	TotalChunks   int
}

// NewPipeline creates a Pipeline embedding with the given model.
func NewPipeline(embedder Embedder, ix *index.Index, model string) *Pipeline {
	return &Pipeline{
		embedder:     embedder,
		index:        ix,
		model:        model,
		extract:      ExtractPDF,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
}

// WithExtractor overrides document text extraction. Used by tests.
func (p *Pipeline) WithExtractor(extract Extractor) *Pipeline {
	p.extract = extract
	return p
}

// WithChunkDefaults overrides the fallback chunking parameters applied when
// a call does not specify its own.
func (p *Pipeline) WithChunkDefaults(size, overlap int) *Pipeline {
	if size > 0 {
		p.chunkSize = size
	}
	if overlap >= 0 {
		p.chunkOverlap = overlap
	}
	return p
}

// Model returns the embedding model the pipeline writes with.
func (p *Pipeline) Model() string {
	return p.model
}

// EmbedPaths extracts, chunks, embeds, and indexes every path in order.
// A failure aborts the call; chunks from paths already processed stay in the
// index (no rollback). Pass chunkSize <= 0 or chunkOverlap < 0 to use the
// pipeline defaults; an explicit overlap of 0 is honored.
func (p *Pipeline) EmbedPaths(ctx context.Context, paths []string, chunkSize, chunkOverlap int) (Result, error) {
	if len(paths) == 0 {
		return Result{}, fmt.Errorf("paths cannot be empty")
	}
	if chunkSize <= 0 {
		chunkSize = p.chunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = p.chunkOverlap
	}
	if chunkOverlap >= chunkSize {
		return Result{}, fmt.Errorf("chunk_overlap must be smaller than chunk_size (%d >= %d)", chunkOverlap, chunkSize)
	}

	var result Result
	for _, path := range paths {
		indexed, total, err := p.embedPath(ctx, path, chunkSize, chunkOverlap)
		result.IndexedChunks += indexed
		result.TotalChunks += total
		if err != nil {
			return result, err
		}
	}

	if result.TotalChunks == 0 {
		return result, fmt.Errorf("no text chunks were produced from the supplied PDFs")
	}
	return result, nil
}

func (p *Pipeline) embedPath(ctx context.Context, path string, chunkSize, chunkOverlap int) (indexed, total int, err error) {
	pages, err := p.extract(path)
	if err != nil {
		return 0, 0, err
	}

	var chunks []index.Chunk
	for _, page := range pages {
		windows, err := SplitText(page.Text, chunkSize, chunkOverlap)
		if err != nil {
			return 0, 0, err
		}
		for seq, text := range windows {
			chunks = append(chunks, index.Chunk{
				ID:     uuid.New().String(),
				Source: path,
				Page:   page.Page,
				Seq:    seq,
				Text:   text,
			})
		}
	}
	total = len(chunks)
	if total == 0 {
		slog.Warn("document produced no text chunks", "path", path)
		return 0, 0, nil
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return 0, total, fmt.Errorf("embedding %s: %w", path, err)
	}

	if err := p.index.Add(p.model, chunks); err != nil {
		return 0, total, fmt.Errorf("indexing %s: %w", path, err)
	}

	slog.Info("document indexed", "path", path, "chunks", total)
	return total, total, nil
}

// embedChunks fills in chunk embeddings, batching requests with bounded
// concurrency.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []index.Chunk) error {
	const batchSize = 32

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			inputs := make([]string, len(batch))
			for i, c := range batch {
				inputs[i] = c.Text
			}
			vectors, err := p.embedder.Embed(gCtx, p.model, inputs)
			if err != nil {
				return err
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}

	return g.Wait()
}
