package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// ErrAPIKeyNotSet is returned by NewOpenAIEngine without a key.
var ErrAPIKeyNotSet = errors.New("API key not set")

// OpenAIEngine talks to any OpenAI-compatible endpoint (OpenAI, Groq,
// OpenRouter) through the official SDK.
type OpenAIEngine struct {
	client openai.Client
}

// NewOpenAIEngine creates an engine for the endpoint at baseURL, or the
// SDK default when baseURL is empty. maxRetries bounds the SDK's own
// retries on 429 and 5xx responses.
func NewOpenAIEngine(apiKey, baseURL string, maxRetries int) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEngine{client: openai.NewClient(opts...)}, nil
}

func (e *OpenAIEngine) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	completion, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAI("chat", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat: %w: no completion choices returned", ErrMalformedResponse)
	}
	return completion.Choices[0].Message.Content, nil
}

func (e *OpenAIEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, classifyOpenAI("embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embed: %w: empty embeddings array", ErrMalformedResponse)
	}

	src := resp.Data[0].Embedding
	vec := make([]float32, len(src))
	for i, v := range src {
		vec[i] = float32(v)
	}
	return vec, nil
}

// IsRunning lists models as a cheap authenticated round trip.
func (e *OpenAIEngine) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.client.Models.List(ctx)
	return err == nil
}

func classifyOpenAI(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
		}
		if apiErr.StatusCode >= 400 {
			return fmt.Errorf("%s: %w: %w", op, ErrRejected, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
