package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	defaultOllamaURL = "http://localhost:11434"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Chunker   ChunkerConfig
	Retrieval RetrievalConfig
	Session   SessionConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           int
	MaxConnections int
	MaxUploadMB    int
	APIToken       string
}

type StorageConfig struct {
	DataDir string
}

// LLMConfig selects the chat backend used for question generation,
// reference answers and evaluation.
type LLMConfig struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	MaxRetries int
}

type EmbeddingConfig struct {
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	Concurrency int
}

type ChunkerConfig struct {
	Window  int
	Overlap int
}

type RetrievalConfig struct {
	TopK             int
	Backend          string
	MaxContextTokens int
	Rerank           bool
	RerankTimeout    time.Duration
	// SQLitePath is the sqlite backend's database file. Empty keeps it in
	// memory.
	SQLitePath string
}

type SessionConfig struct {
	TTL time.Duration
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           5000,
			MaxConnections: 64,
			MaxUploadMB:    32,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		LLM: LLMConfig{
			Provider: ProviderOllama,
			Model:    "llama3.1",
		},
		Embedding: EmbeddingConfig{
			Provider:    ProviderOllama,
			Model:       "all-minilm",
			Concurrency: 4,
		},
		Chunker: ChunkerConfig{
			Window:  200,
			Overlap: 20,
		},
		Retrieval: RetrievalConfig{
			TopK:             5,
			Backend:          BackendMemory,
			MaxContextTokens: 2000,
			RerankTimeout:    10 * time.Second,
		},
		Session: SessionConfig{
			TTL: time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the config file, a .env file in the working
// directory, and environment variables.
//
// The config file is a flat JSON (or YAML) object at
// $XDG_CONFIG_HOME/interviewsim/config.json unless INTERVIEWSIM_CONFIG
// points elsewhere. Environment variables (INTERVIEWSIM_*) override file
// values; API keys are only read from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	resolveProviders(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveProviders fills provider-dependent defaults: the Ollama base URL
// and API keys taken from the conventional provider variables.
func resolveProviders(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Embedding.Provider = strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider))
	cfg.Retrieval.Backend = strings.ToLower(strings.TrimSpace(cfg.Retrieval.Backend))

	if cfg.LLM.Provider == ProviderOllama && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultOllamaURL
	}
	if cfg.Embedding.Provider == ProviderOllama && cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = defaultOllamaURL
	}
	if cfg.LLM.Provider == ProviderOpenAI && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.BaseURL)
	}
	if cfg.Embedding.Provider == ProviderOpenAI && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = providerKey(cfg.Embedding.BaseURL)
	}
}

func validate(cfg Config) error {
	var errs []error
	for _, p := range []struct{ key, val string }{
		{"llm.provider", cfg.LLM.Provider},
		{"embedding.provider", cfg.Embedding.Provider},
	} {
		if p.val != ProviderOllama && p.val != ProviderOpenAI {
			errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", p.key, ProviderOllama, ProviderOpenAI, p.val))
		}
	}
	if cfg.Retrieval.Backend != BackendMemory && cfg.Retrieval.Backend != BackendSQLite {
		errs = append(errs, fmt.Errorf("retrieval.backend must be %q or %q, got %q", BackendMemory, BackendSQLite, cfg.Retrieval.Backend))
	}
	if cfg.LLM.Provider == ProviderOpenAI && cfg.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("missing required config: API key for llm provider %q. "+
			"Set INTERVIEWSIM_LLM_API_KEY, OPENAI_API_KEY or GROQ_API_KEY", ProviderOpenAI))
	}
	if cfg.Embedding.Provider == ProviderOpenAI && cfg.Embedding.APIKey == "" {
		errs = append(errs, fmt.Errorf("missing required config: API key for embedding provider %q. "+
			"Set INTERVIEWSIM_EMBEDDING_API_KEY or OPENAI_API_KEY", ProviderOpenAI))
	}
	return errors.Join(errs...)
}
