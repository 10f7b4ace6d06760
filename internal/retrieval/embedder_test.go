package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
)

// mockEngine implements engine.Engine for testing.
type mockEngine struct {
	embedFn func(ctx context.Context, model string, text string) ([]float32, error)
}

func (m *mockEngine) Chat(_ context.Context, _ string, _ []engine.Message) (string, error) {
	return "", fmt.Errorf("not implemented")
}
func (m *mockEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return m.embedFn(ctx, model, text)
}
func (m *mockEngine) IsRunning(_ context.Context) bool { return true }

func makeVector(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(i) * 0.001
	}
	return v
}

func TestEmbed_ReturnsDimension(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
			return makeVector(384), nil
		},
	}
	e := NewEmbedder(mock, "all-minilm", 0)

	vec, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 384 {
		t.Errorf("got %d dimensions, want 384", len(vec))
	}
}

func TestEmbed_EngineError(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
			return nil, engine.ErrUnavailable
		},
	}
	e := NewEmbedder(mock, "all-minilm", 0)

	_, err := e.Embed(context.Background(), "hello")
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("err = %v, want wrapped ErrUnavailable", err)
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, text string) ([]float32, error) {
			return []float32{float32(len(text))}, nil
		},
	}
	e := NewEmbedder(mock, "all-minilm", 2)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vecs[%d] = %v, want [%d]", i, v, i+1)
		}
	}
}

func TestEmbedBatch_RespectsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			return makeVector(4), nil
		},
	}
	e := NewEmbedder(mock, "all-minilm", 2)

	texts := make([]string, 20)
	if _, err := e.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestEmbedBatch_Error(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, text string) ([]float32, error) {
			if text == "b" {
				return nil, errors.New("embedding failed")
			}
			return makeVector(384), nil
		},
	}
	e := NewEmbedder(mock, "all-minilm", 0)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if vecs != nil {
		t.Error("expected no vectors on failure")
	}
	if !strings.Contains(err.Error(), "embedding failed") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
			t.Fatal("should not be called for empty input")
			return nil, nil
		},
	}
	e := NewEmbedder(mock, "all-minilm", 0)

	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Errorf("got %v, want nil", vecs)
	}
}

func TestEmbedBatch_RaggedDimensions(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, text string) ([]float32, error) {
			if text == "short" {
				return makeVector(2), nil
			}
			return makeVector(8), nil
		},
	}
	e := NewEmbedder(mock, "all-minilm", 1)

	_, err := e.EmbedBatch(context.Background(), []string{"long", "short"})
	if !errors.Is(err, engine.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestEmbed_EmptyVector(t *testing.T) {
	mock := &mockEngine{
		embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
			return []float32{}, nil
		},
	}
	_, err := NewEmbedder(mock, "all-minilm", 0).Embed(context.Background(), "hello")
	if !errors.Is(err, engine.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}
