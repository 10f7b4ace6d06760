package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "INTERVIEWSIM_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_connections", typ: kInt, env: "INTERVIEWSIM_SERVER_MAX_CONNECTIONS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConnections = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConnections },
	},
	{
		key: "server.max_upload_mb", typ: kInt, env: "INTERVIEWSIM_SERVER_MAX_UPLOAD_MB",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxUploadMB = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxUploadMB },
	},
	{
		key: "server.api_token", typ: kString, env: "INTERVIEWSIM_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "INTERVIEWSIM_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "llm.provider", typ: kString, env: "INTERVIEWSIM_LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "llm.base_url", typ: kString, env: "INTERVIEWSIM_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "INTERVIEWSIM_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.api_key", typ: kString, env: "INTERVIEWSIM_LLM_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.max_retries", typ: kInt, env: "INTERVIEWSIM_LLM_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxRetries },
	},
	{
		key: "embedding.provider", typ: kString, env: "INTERVIEWSIM_EMBEDDING_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.Provider },
	},
	{
		key: "embedding.base_url", typ: kString, env: "INTERVIEWSIM_EMBEDDING_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Embedding.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.BaseURL },
	},
	{
		key: "embedding.model", typ: kString, env: "INTERVIEWSIM_EMBEDDING_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.Model },
	},
	{
		key: "embedding.api_key", typ: kString, env: "INTERVIEWSIM_EMBEDDING_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Embedding.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.APIKey },
	},
	{
		key: "embedding.concurrency", typ: kInt, env: "INTERVIEWSIM_EMBEDDING_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Embedding.Concurrency },
	},
	{
		key: "chunker.window", typ: kInt, env: "INTERVIEWSIM_CHUNKER_WINDOW",
		apply:   func(cfg *Config, v any) { cfg.Chunker.Window = v.(int) },
		extract: func(cfg Config) any { return cfg.Chunker.Window },
	},
	{
		key: "chunker.overlap", typ: kInt, env: "INTERVIEWSIM_CHUNKER_OVERLAP",
		apply:   func(cfg *Config, v any) { cfg.Chunker.Overlap = v.(int) },
		extract: func(cfg Config) any { return cfg.Chunker.Overlap },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "INTERVIEWSIM_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "retrieval.backend", typ: kString, env: "INTERVIEWSIM_RETRIEVAL_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Retrieval.Backend },
	},
	{
		key: "retrieval.max_context_tokens", typ: kInt, env: "INTERVIEWSIM_RETRIEVAL_MAX_CONTEXT_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.MaxContextTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.MaxContextTokens },
	},
	{
		key: "retrieval.sqlite_path", typ: kString, env: "INTERVIEWSIM_RETRIEVAL_SQLITE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.SQLitePath = v.(string) },
		extract: func(cfg Config) any { return cfg.Retrieval.SQLitePath },
	},
	{
		key: "retrieval.rerank", typ: kBool, env: "INTERVIEWSIM_RERANK",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.Rerank = v.(bool) },
		extract: func(cfg Config) any { return cfg.Retrieval.Rerank },
	},
	{
		key: "retrieval.rerank_timeout", typ: kDuration, env: "INTERVIEWSIM_RERANK_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.RerankTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Retrieval.RerankTimeout },
	},
	{
		key: "session.ttl", typ: kDuration, env: "INTERVIEWSIM_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Session.TTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Session.TTL },
	},
	{
		key: "log.level", typ: kString, env: "INTERVIEWSIM_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// providerKey returns the API key exported under the provider's
// conventional variable. Groq endpoints prefer GROQ_API_KEY.
func providerKey(baseURL string) string {
	order := []string{"OPENAI_API_KEY", "GROQ_API_KEY"}
	if strings.Contains(baseURL, "groq.com") {
		order = []string{"GROQ_API_KEY", "OPENAI_API_KEY"}
	}
	for _, env := range order {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// parseValue converts a raw string to the Go type of a key.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}
		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring config key %s=%q: %v\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring %s=%q: %v\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
