package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %q", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.EmbedModel != "text-embedding-3-small" {
		t.Errorf("EmbedModel = %q", cfg.OpenAI.EmbedModel)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 150 {
		t.Errorf("Ingest = %+v", cfg.Ingest)
	}
	if cfg.Agent.MaxSteps != 6 {
		t.Errorf("MaxSteps = %d, want 6", cfg.Agent.MaxSteps)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIBRIS_SERVER_PORT", "8080")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LIBRIS_RETRIEVAL_TOP_K", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %q", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Retrieval.TopK != 7 {
		t.Errorf("TopK = %d, want 7", cfg.Retrieval.TopK)
	}
}

func TestLoad_BadInt(t *testing.T) {
	t.Setenv("LIBRIS_SERVER_PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable port")
	}
}

func TestLoad_OverlapValidation(t *testing.T) {
	t.Setenv("LIBRIS_INGEST_CHUNK_SIZE", "100")
	t.Setenv("LIBRIS_INGEST_CHUNK_OVERLAP", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for overlap >= size")
	}
}
