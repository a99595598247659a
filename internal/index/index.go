// Package index provides the in-memory similarity index shared by the
// ingestion and retrieval paths. The index is process-lifetime state only:
// it is never persisted and is rebuilt by re-ingesting documents.
package index

import (
	"container/heap"
	"fmt"
	"math"
	"sync"
)

// Chunk is a span of extracted document text with its embedding vector.
type Chunk struct {
	ID        string
	Source    string
	Page      int
	Seq       int
	Text      string
	Embedding []float32
}

// ScoredChunk is a Chunk with a cosine similarity score attached.
type ScoredChunk struct {
	Chunk
	Score float32
}

// Index is a mutable in-memory vector index. All chunks share one embedding
// model and therefore one vector dimensionality; Add rejects mismatches.
// Safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	model  string
	dim    int
	chunks []Chunk
}

// New creates an empty Index.
func New() *Index {
	return &Index{}
}

// Add appends chunks embedded with the given model. The first Add binds the
// index to that model and its vector dimensionality; later calls with a
// different model or dimension fail. Duplicate content is appended as-is.
func (ix *Index) Add(model string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.model == "" {
		ix.model = model
		ix.dim = len(chunks[0].Embedding)
	} else if ix.model != model {
		return fmt.Errorf("index uses embedding model %q, got %q", ix.model, model)
	}

	for _, c := range chunks {
		if len(c.Embedding) != ix.dim {
			return fmt.Errorf("chunk %s has dimension %d, index expects %d", c.ID, len(c.Embedding), ix.dim)
		}
	}

	ix.chunks = append(ix.chunks, chunks...)
	return nil
}

// Search returns the topK chunks most similar to the query vector, best
// first. An empty index yields an empty result, not an error.
func (ix *Index) Search(vector []float32, topK int) []ScoredChunk {
	if topK <= 0 {
		return nil
	}

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	h := &scoredHeap{}
	heap.Init(h)

	for i := range ix.chunks {
		score := cosine(vector, ix.chunks[i].Embedding, queryNorm)
		if h.Len() < topK {
			heap.Push(h, ScoredChunk{Chunk: ix.chunks[i], Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = ScoredChunk{Chunk: ix.chunks[i], Score: score}
			heap.Fix(h, 0)
		}
	}

	// Pop min-heap into descending order.
	results := make([]ScoredChunk, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(ScoredChunk)
	}
	return results
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// IsEmpty reports whether the index holds no chunks.
func (ix *Index) IsEmpty() bool {
	return ix.Len() == 0
}

// Model returns the embedding model the index is bound to, or "" when empty.
func (ix *Index) Model() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.model
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes cosine similarity as dot(a,b) / (aNorm * bNorm).
// aNorm is the precomputed L2 norm of vector a.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	var bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// scoredHeap is a min-heap of ScoredChunk ordered by Score.
type scoredHeap []ScoredChunk

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(ScoredChunk)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
