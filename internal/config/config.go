// Package config holds service configuration: compiled-in defaults
// overridden by environment variables. A .env file in the working directory
// is honored when present (loaded by the CLI entrypoint via godotenv).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	OpenAI    OpenAIConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
	Agent     AgentConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type RetrievalConfig struct {
	TopK int
}

type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type AgentConfig struct {
	MaxSteps int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		OpenAI: OpenAIConfig{
			ChatModel:  "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		Ingest: IngestConfig{
			ChunkSize:    1000,
			ChunkOverlap: 150,
		},
		Agent: AgentConfig{
			MaxSteps: 6,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".libris"
	}
	return filepath.Join(home, ".libris")
}

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "LIBRIS_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "LIBRIS_STORAGE_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		env: "OPENAI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
	},
	{
		env: "OPENAI_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
	},
	{
		env: "OPENAI_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.ChatModel = v.(string) },
	},
	{
		env: "OPENAI_EMBED_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.OpenAI.EmbedModel = v.(string) },
	},
	{
		env: "LIBRIS_RETRIEVAL_TOP_K", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
	},
	{
		env: "LIBRIS_INGEST_CHUNK_SIZE", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Ingest.ChunkSize = v.(int) },
	},
	{
		env: "LIBRIS_INGEST_CHUNK_OVERLAP", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Ingest.ChunkOverlap = v.(int) },
	},
	{
		env: "LIBRIS_AGENT_MAX_STEPS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Agent.MaxSteps = v.(int) },
	},
	{
		env: "LIBRIS_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

// Load builds the configuration from defaults and environment overrides.
// A missing API key is not an error here: the books endpoints work without
// one, and LLM endpoints surface the upstream auth failure at call time.
func Load() (Config, error) {
	cfg := defaults()
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return Config{}, fmt.Errorf("LIBRIS_INGEST_CHUNK_OVERLAP (%d) must be smaller than LIBRIS_INGEST_CHUNK_SIZE (%d)",
			cfg.Ingest.ChunkOverlap, cfg.Ingest.ChunkSize)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			i, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("parsing %s=%q: %w", s.env, raw, err)
			}
			s.apply(cfg, i)
		}
	}
	return nil
}
