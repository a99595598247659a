package api

import (
	"net/http"
	"strings"

	"github.com/kalambet/libris/internal/agent"
	"github.com/kalambet/libris/internal/llm"
)

// defaultPersona is the system prompt for simple invocations when the
// caller supplies none.
const defaultPersona = "You are a concise and helpful assistant."

func handleSimpleInvoke(deps Deps) http.HandlerFunc {
	type request struct {
		System      string   `json:"system"`
		Message     string   `json:"message"`
		Model       string   `json:"model"`
		Temperature *float64 `json:"temperature"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			apiError(w, http.StatusBadRequest, "message is required")
			return
		}

		system := req.System
		if system == "" {
			system = defaultPersona
		}
		model := req.Model
		if model == "" {
			model = deps.ChatModel
		}

		msg, err := deps.Chat.Chat(r.Context(), llm.ChatRequest{
			Model:       model,
			Temperature: req.Temperature,
			Messages: []llm.Message{
				{Role: "system", Content: system},
				{Role: "user", Content: req.Message},
			},
		})
		if err != nil {
			upstreamError(w, "simple-invoke", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"response": msg.Content})
	}
}

func handleEmbedPDFs(deps Deps) http.HandlerFunc {
	// Pointer fields distinguish an omitted parameter (use the configured
	// default) from an explicit zero.
	type request struct {
		Paths        []string `json:"paths"`
		ChunkSize    *int     `json:"chunk_size"`
		ChunkOverlap *int     `json:"chunk_overlap"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.Paths) == 0 {
			apiError(w, http.StatusBadRequest, "paths (list of PDF files) is required")
			return
		}

		size, overlap := 0, -1
		if req.ChunkSize != nil {
			size = *req.ChunkSize
		}
		if req.ChunkOverlap != nil {
			overlap = *req.ChunkOverlap
		}

		res, err := deps.Pipeline.EmbedPaths(r.Context(), req.Paths, size, overlap)
		if llm.IsUpstream(err) {
			upstreamError(w, "embed-pdfs", err)
			return
		}
		if err != nil {
			// Unreadable files, bad chunk parameters, empty documents.
			apiError(w, http.StatusBadRequest, "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"embedding_model": deps.Pipeline.Model(),
			"indexed_chunks":  res.IndexedChunks,
			"total_chunks":    res.TotalChunks,
			"paths":           req.Paths,
		})
	}
}

func handleVectorSearch(deps Deps) http.HandlerFunc {
	type request struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	type result struct {
		Content string  `json:"content"`
		Source  string  `json:"source"`
		Page    int     `json:"page"`
		Score   float32 `json:"score"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			apiError(w, http.StatusBadRequest, "query is required")
			return
		}

		k := req.K
		if k <= 0 {
			k = deps.TopK
		}

		chunks, err := deps.Retriever.Retrieve(r.Context(), req.Query, k)
		if err != nil {
			upstreamError(w, "vector-search", err)
			return
		}

		results := make([]result, len(chunks))
		for i, c := range chunks {
			results[i] = result{Content: c.Text, Source: c.Source, Page: c.Page, Score: c.Score}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

func handleRetrievalAnswer(deps Deps) http.HandlerFunc {
	type request struct {
		Question    string   `json:"question"`
		System      string   `json:"system"`
		K           int      `json:"k"`
		Temperature *float64 `json:"temperature"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			apiError(w, http.StatusBadRequest, "question is required")
			return
		}

		k := req.K
		if k <= 0 {
			k = deps.TopK
		}

		answer, err := deps.Answerer.Answer(r.Context(), req.Question, req.System, k, req.Temperature)
		if err != nil {
			upstreamError(w, "retrieval-answer", err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
	}
}

func handleReactAgent(deps Deps) http.HandlerFunc {
	type historyMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type request struct {
		Message     string           `json:"message"`
		System      string           `json:"system"`
		ChatHistory []historyMessage `json:"chat_history"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			apiError(w, http.StatusBadRequest, "message is required")
			return
		}

		history := make([]llm.Message, len(req.ChatHistory))
		for i, m := range req.ChatHistory {
			history[i] = llm.Message{Role: m.Role, Content: m.Content}
		}

		res, err := deps.Agent.Run(r.Context(), req.Message, req.System, history)
		if err != nil {
			upstreamError(w, "react-agent", err)
			return
		}
		if res.ToolEvents == nil {
			res.ToolEvents = []agent.ToolEvent{}
		}
		writeJSON(w, http.StatusOK, res)
	}
}
