package retrieval

import (
	"context"
	"fmt"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/config"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/storage"
)

// VectorStore holds embedded passages grouped into collections. Each built
// index owns one collection.
type VectorStore interface {
	// Insert adds records to the collection. Either all records are stored
	// or none are.
	Insert(ctx context.Context, collection string, records []Record) error

	// Search returns up to topK records of the collection, most similar first.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredRecord, error)

	// Drop removes the collection and all of its records.
	Drop(ctx context.Context, collection string) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)
}

// Record is one embedded passage.
type Record struct {
	ID        string
	Source    string
	Page      int
	Position  int
	Text      string
	Embedding []float32
}

// ScoredRecord is a Record with a cosine similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}

// OpenStore returns the vector store for backend. The sqlite backend opens
// the database at path, in memory when path is empty; the returned close
// func releases it.
func OpenStore(ctx context.Context, backend, path string) (VectorStore, func() error, error) {
	switch backend {
	case config.BackendMemory, "":
		return NewMemoryStore(), func() error { return nil }, nil
	case config.BackendSQLite:
		st, err := storage.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite index: %w", err)
		}
		return NewSQLiteStore(st.DB()), st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", backend)
	}
}
