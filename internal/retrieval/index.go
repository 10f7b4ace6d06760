package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/document"
	"github.com/google/uuid"
)

// DefaultTopK is used when a query asks for k <= 0.
const DefaultTopK = 5

var (
	// ErrNotBuilt is returned when querying before any index was built.
	ErrNotBuilt = errors.New("index not built")

	// ErrEmptyCorpus is returned when building from zero passages.
	ErrEmptyCorpus = errors.New("no passages to index")
)

// Indexer builds indexes from passages.
type Indexer struct {
	embedder *Embedder
	store    VectorStore
}

func NewIndexer(embedder *Embedder, store VectorStore) *Indexer {
	return &Indexer{embedder: embedder, store: store}
}

// Index is a built, queryable set of embedded passages. A nil *Index is a
// valid value that reports ErrNotBuilt.
type Index struct {
	embedder   *Embedder
	store      VectorStore
	collection string
	source     string
	size       int
}

// Result is a passage returned by Query with its similarity to the query.
type Result struct {
	Passage document.Passage
	Score   float32
}

// Build embeds every passage and stores them in a fresh collection. No
// records are written until all embeddings succeed, and a failed insert
// drops the collection, so a failed build never leaves a partial index.
func (ix *Indexer) Build(ctx context.Context, passages []document.Passage) (*Index, error) {
	if len(passages) == 0 {
		return nil, ErrEmptyCorpus
	}
	start := time.Now()

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding passages: %w", err)
	}

	records := make([]Record, len(passages))
	for i, p := range passages {
		records[i] = Record{
			ID:        p.ID,
			Source:    p.Source,
			Page:      p.Page,
			Position:  p.Position,
			Text:      p.Text,
			Embedding: vectors[i],
		}
	}

	collection := uuid.NewString()
	if err := ix.store.Insert(ctx, collection, records); err != nil {
		if dropErr := ix.store.Drop(context.WithoutCancel(ctx), collection); dropErr != nil {
			slog.Warn("dropping partial collection", "collection", collection, "error", dropErr)
		}
		return nil, fmt.Errorf("storing passages: %w", err)
	}

	slog.Debug("index built",
		"collection", collection,
		"source", passages[0].Source,
		"passages", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Index{
		embedder:   ix.embedder,
		store:      ix.store,
		collection: collection,
		source:     passages[0].Source,
		size:       len(records),
	}, nil
}

// Size returns the number of indexed passages.
func (ix *Index) Size() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

// Source returns the name of the source the index was built from.
func (ix *Index) Source() string {
	if ix == nil {
		return ""
	}
	return ix.source
}

// Query returns up to k passages nearest to text, nearest first. k <= 0
// means DefaultTopK.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if ix == nil {
		return nil, ErrNotBuilt
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	scored, err := ix.store.Search(ctx, ix.collection, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	results := make([]Result, len(scored))
	for i, s := range scored {
		results[i] = Result{
			Passage: document.Passage{
				ID:       s.ID,
				Source:   s.Source,
				Page:     s.Page,
				Position: s.Position,
				Text:     s.Text,
			},
			Score: s.Score,
		}
	}
	return results, nil
}

// Close releases the index's records. Querying a closed index returns no
// results.
func (ix *Index) Close(ctx context.Context) error {
	if ix == nil {
		return nil
	}
	return ix.store.Drop(ctx, ix.collection)
}
