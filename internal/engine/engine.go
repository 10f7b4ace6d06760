package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks failures that are worth retrying later: the
	// backend could not be reached, was rate limited or returned a 5xx.
	ErrUnavailable = errors.New("inference backend unavailable")

	// ErrMalformedResponse marks responses that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response from inference backend")

	// ErrRejected marks requests the backend refused outright (bad key,
	// unknown model, invalid request). Repeating them will not help.
	ErrRejected = errors.New("request rejected by inference backend")
)

// Engine abstracts an inference backend. The interview service uses it to
// generate text and the retrieval layer uses it to embed passages.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// Embed returns the embedding vector for the given text using the specified model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool
}

// ModelManager is implemented by backends that host models locally and can
// download missing ones.
type ModelManager interface {
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: "user", Content: content} }

// PullProgress reports download progress for a model pull operation.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Options selects and configures a backend.
type Options struct {
	Provider   string
	BaseURL    string
	APIKey     string
	MaxRetries int
}

// New returns the Engine for opts.Provider.
func New(opts Options) (Engine, error) {
	switch opts.Provider {
	case ProviderOllama, "":
		return NewOllamaEngine(opts.BaseURL), nil
	case ProviderOpenAI:
		return NewOpenAIEngine(opts.APIKey, opts.BaseURL, opts.MaxRetries)
	default:
		return nil, fmt.Errorf("unknown inference provider %q", opts.Provider)
	}
}
