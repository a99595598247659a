// Package api is the HTTP front end: it routes requests to the book store
// and the LLM pipelines and maps domain errors to status codes. Validation
// happens before any upstream model call, so malformed requests never incur
// inference cost.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/libris/internal/agent"
	"github.com/kalambet/libris/internal/index"
	"github.com/kalambet/libris/internal/ingest"
	"github.com/kalambet/libris/internal/llm"
	"github.com/kalambet/libris/internal/rag"
	"github.com/kalambet/libris/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ChatClient sends one chat completion request.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error)
}

// DocumentPipeline ingests documents into the vector index.
type DocumentPipeline interface {
	EmbedPaths(ctx context.Context, paths []string, chunkSize, chunkOverlap int) (ingest.Result, error)
	Model() string
}

// ChunkRetriever embeds a query and searches the vector index.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]index.ScoredChunk, error)
}

// RetrievalAnswerer answers questions conditioned on retrieved context.
type RetrievalAnswerer interface {
	Answer(ctx context.Context, question, systemPrompt string, topK int, temperature *float64) (rag.Answer, error)
}

// AgentRunner drives the bounded tool-using reasoning loop.
type AgentRunner interface {
	Run(ctx context.Context, message, systemPrompt string, history []llm.Message) (agent.Result, error)
}

// Deps holds the wired components the handlers dispatch to.
type Deps struct {
	Store     *storage.Store
	Chat      ChatClient
	Pipeline  DocumentPipeline
	Retriever ChunkRetriever
	Answerer  RetrievalAnswerer
	Agent     AgentRunner
	ChatModel string
	TopK      int
}

// NewHandler returns the service's HTTP handler.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleHome)

	r.Get("/books", handleListBooks(deps))
	r.Post("/books", handleCreateBook(deps))
	r.Get("/books/{id}", handleGetBook(deps))
	r.Put("/books/{id}", handleUpdateBook(deps))
	r.Delete("/books/{id}", handleDeleteBook(deps))

	r.Post("/llm/simple-invoke", handleSimpleInvoke(deps))
	r.Post("/llm/embed-pdfs", handleEmbedPDFs(deps))
	r.Post("/llm/vector-search", handleVectorSearch(deps))
	r.Post("/llm/retrieval-answer", handleRetrievalAnswer(deps))
	r.Post("/llm/react-agent", handleReactAgent(deps))

	return r
}

func handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the libris API!",
		"endpoints": map[string]string{
			"GET /books":                 "Get all books",
			"GET /books/{id}":            "Get a single book",
			"POST /books":                "Add a new book",
			"PUT /books/{id}":            "Update a book",
			"DELETE /books/{id}":         "Delete a book",
			"POST /llm/simple-invoke":    "Call the chat model with system & user messages",
			"POST /llm/embed-pdfs":       "Embed PDF files into the vector index",
			"POST /llm/vector-search":    "Similarity search over the vector index",
			"POST /llm/retrieval-answer": "Retrieval-augmented answering over the vector index",
			"POST /llm/react-agent":      "Run a tool-using agent loop",
		},
	})
}

// apiError writes a flat {"error": message} body with the given status.
func apiError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// upstreamError logs the underlying cause and returns a generic 502 body;
// upstream details are never exposed to the caller.
func upstreamError(w http.ResponseWriter, op string, err error) {
	slog.Error("upstream llm call failed", "op", op, "error", err)
	apiError(w, http.StatusBadGateway, "upstream llm error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// decodeBody decodes a JSON request body capped at maxRequestBodySize.
// An empty body decodes into the zero value so field validation can report
// the missing field instead of a generic parse error.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		apiError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}
