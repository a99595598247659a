package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/libris/internal/agent"
	"github.com/kalambet/libris/internal/storage"
)

// MCPDeps holds dependencies for the MCP tool server.
type MCPDeps struct {
	Store     *storage.Store
	Retriever ChunkRetriever
}

// NewMCPServer creates an MCP server mirroring the HTTP capabilities for
// agent clients over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"libris",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("libris — book library with PDF similarity search."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_books",
			mcp.WithDescription("List all books in the library."),
		),
		mcpListBooks(deps),
	)

	s.AddTool(
		mcp.NewTool("search_library",
			mcp.WithDescription("Semantically search the ingested PDF chunks and return the best matches."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 4)")),
		),
		mcpSearchLibrary(deps),
	)

	s.AddTool(
		mcp.NewTool("text_stats",
			mcp.WithDescription("Return quick statistics about the supplied text snippet."),
			mcp.WithString("text", mcp.Description("Text to analyze"), mcp.Required()),
		),
		mcpTextStats(),
	)

	return s
}

func mcpListBooks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		books, err := deps.Store.ListBooks()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list books: %v", err)), nil
		}
		if books == nil {
			books = []storage.Book{}
		}

		b, err := json.Marshal(books)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal books: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchLibrary(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 4)
		if limit <= 0 {
			limit = 4
		}
		if limit > 50 {
			limit = 50
		}

		chunks, err := deps.Retriever.Retrieve(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(chunks) == 0 {
			return mcpText("[]"), nil
		}

		type chunkResult struct {
			Content string  `json:"content"`
			Source  string  `json:"source"`
			Page    int     `json:"page"`
			Score   float32 `json:"score"`
		}
		results := make([]chunkResult, len(chunks))
		for i, c := range chunks {
			results[i] = chunkResult{Content: c.Text, Source: c.Source, Page: c.Page, Score: c.Score}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTextStats() server.ToolHandlerFunc {
	tool := agent.TextStatsTool()
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		out, err := tool.Run(map[string]any{"text": text})
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(out), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
