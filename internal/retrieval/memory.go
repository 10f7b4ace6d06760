package retrieval

import (
	"context"
	"fmt"
	"sync"
)

var _ VectorStore = (*MemoryStore)(nil)

// MemoryStore keeps collections in process memory and searches them by
// brute-force cosine similarity.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Record)}
}

func (s *MemoryStore) Insert(_ context.Context, collection string, records []Record) error {
	if err := checkDimensions(records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.collections[collection]
	if len(existing) > 0 && len(records) > 0 && len(existing[0].Embedding) != len(records[0].Embedding) {
		return fmt.Errorf("vector dimension mismatch: collection has %d, got %d",
			len(existing[0].Embedding), len(records[0].Embedding))
	}
	s.collections[collection] = append(existing, records...)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, vector []float32, topK int) ([]ScoredRecord, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.collections[collection]
	h := &candidateHeap{}
	for i, r := range records {
		h.offer(candidate{key: int64(i), seq: int64(i), score: cosine(vector, r.Embedding, queryNorm)}, topK)
	}

	ranked := h.ranked()
	results := make([]ScoredRecord, len(ranked))
	for i, c := range ranked {
		results[i] = ScoredRecord{Record: records[c.key], Score: c.score}
	}
	return results, nil
}

func (s *MemoryStore) Drop(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

// checkDimensions rejects empty vectors and batches of mixed dimension.
func checkDimensions(records []Record) error {
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s has an empty embedding", r.ID)
		}
		if len(r.Embedding) != len(records[0].Embedding) {
			return fmt.Errorf("vector dimension mismatch: record %s has %d, want %d",
				r.ID, len(r.Embedding), len(records[0].Embedding))
		}
	}
	return nil
}
