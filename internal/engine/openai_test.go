package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *OpenAIEngine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	e, err := NewOpenAIEngine("test-key", srv.URL, 0)
	if err != nil {
		t.Fatalf("NewOpenAIEngine: %v", err)
	}
	return e
}

func TestNewOpenAIEngine_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIEngine("", "", 0); !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("err = %v, want ErrAPIKeyNotSet", err)
	}
}

func TestOpenAIEngine_Chat(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	e := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "openai/gpt-oss-120b",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "SCORE: 7/10 FEEDBACK: solid"}}]
		}`))
	})

	got, err := e.Chat(context.Background(), "openai/gpt-oss-120b", []Message{
		System("You are an expert in Go."),
		User("Evaluate."),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "SCORE: 7/10 FEEDBACK: solid" {
		t.Errorf("got %q", got)
	}
	if body.Model != "openai/gpt-oss-120b" {
		t.Errorf("model = %q", body.Model)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", body.Messages)
	}
}

func TestOpenAIEngine_ChatNoChoices(t *testing.T) {
	e := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	})

	_, err := e.Chat(context.Background(), "m", []Message{User("hi")})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestOpenAIEngine_Embed(t *testing.T) {
	e := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.5, -0.25, 1]}],
			"usage": {"prompt_tokens": 1, "total_tokens": 1}
		}`))
	})

	vec, err := e.Embed(context.Background(), "text-embedding-3-small", "channels")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{0.5, -0.25, 1}
	if len(vec) != len(want) {
		t.Fatalf("len = %d, want %d", len(vec), len(want))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestOpenAIEngine_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		unavailable bool
		rejected    bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, unavailable: true},
		{name: "server error", status: http.StatusBadGateway, unavailable: true},
		{name: "bad request", status: http.StatusBadRequest, rejected: true},
		{name: "bad key", status: http.StatusUnauthorized, rejected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"message": "nope", "type": "test"}}`))
			})
			_, err := e.Chat(context.Background(), "m", []Message{User("hi")})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrUnavailable); got != tt.unavailable {
				t.Errorf("errors.Is(ErrUnavailable) = %v, want %v (err: %v)", got, tt.unavailable, err)
			}
			if got := errors.Is(err, ErrRejected); got != tt.rejected {
				t.Errorf("errors.Is(ErrRejected) = %v, want %v (err: %v)", got, tt.rejected, err)
			}
		})
	}
}
