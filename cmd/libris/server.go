package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/libris/internal/agent"
	"github.com/kalambet/libris/internal/api"
	"github.com/kalambet/libris/internal/config"
	"github.com/kalambet/libris/internal/index"
	"github.com/kalambet/libris/internal/ingest"
	"github.com/kalambet/libris/internal/llm"
	"github.com/kalambet/libris/internal/rag"
	"github.com/kalambet/libris/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the libris server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpStdio, _ := cmd.Flags().GetBool("mcp-stdio")
		return runServer(mcpStdio)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp-stdio", false, "also expose the MCP tool server on stdio")
}

func runServer(mcpStdio bool) error {
	fmt.Fprintf(os.Stderr, "libris version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})))

	if cfg.OpenAI.APIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set; LLM endpoints will fail until it is configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	// Wire the model client and the in-memory vector index. The index is
	// process-local: ingested chunks are gone after a restart.
	client := llm.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	ix := index.New()
	pipeline := ingest.NewPipeline(client, ix, cfg.OpenAI.EmbedModel).
		WithChunkDefaults(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	retriever := rag.NewRetriever(client, ix, cfg.OpenAI.EmbedModel)
	answerer := rag.NewAnswerer(retriever, client, cfg.OpenAI.ChatModel)
	runner := agent.New(client, cfg.OpenAI.ChatModel, cfg.Agent.MaxSteps, agent.TextStatsTool())

	handler := api.NewHandler(api.Deps{
		Store:     store,
		Chat:      client,
		Pipeline:  pipeline,
		Retriever: retriever,
		Answerer:  answerer,
		Agent:     runner,
		ChatModel: cfg.OpenAI.ChatModel,
		TopK:      cfg.Retrieval.TopK,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP tool server on stdio, for agent clients. Opt-in: when stdio is a
	// terminal the transport would just block on reads.
	if mcpStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Store: store, Retriever: retriever})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("libris listening", "addr", addr, "chat_model", cfg.OpenAI.ChatModel, "embed_model", cfg.OpenAI.EmbedModel)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
