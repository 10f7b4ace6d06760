package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	// progressEvery is how many passages pass between progress log lines.
	progressEvery = 100
)

// Embedder turns passage text into vectors with an embedding model.
type Embedder struct {
	engine      engine.Engine
	model       string
	concurrency int
}

// NewEmbedder returns an Embedder for model on e. concurrency bounds the
// requests EmbedBatch keeps in flight; values below 1 use 4.
func NewEmbedder(e engine.Engine, model string, concurrency int) *Embedder {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Embedder{engine: e, model: model, concurrency: concurrency}
}

// Embed returns the vector for a single text. An empty vector is reported
// as engine.ErrMalformedResponse.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding text: %w: empty vector", engine.ErrMalformedResponse)
	}
	return vec, nil
}

// EmbedBatch embeds texts concurrently and returns the vectors in input
// order. The first failure cancels the remaining requests. Vectors that
// are empty or differ in dimension from the first one fail the batch with
// engine.ErrMalformedResponse. Empty input returns nil.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	var done atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.engine.Embed(gCtx, e.model, text)
			if err != nil {
				return fmt.Errorf("embedding passage %d: %w", i, err)
			}
			results[i] = vec
			if n := done.Add(1); n%progressEvery == 0 {
				slog.Debug("embedding passages", "done", n, "total", len(texts))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(results[0])
	for i, vec := range results {
		if len(vec) == 0 || len(vec) != dim {
			return nil, fmt.Errorf("embedding passage %d: %w: got %d dimensions, want %d",
				i, engine.ErrMalformedResponse, len(vec), dim)
		}
	}
	return results, nil
}
