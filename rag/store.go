package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// VectorEntry associates one theorem id with its embedding. The vector
// table is a side table: theorems never carry their vectors directly, so
// embeddings can be regenerated without touching entity content.
type VectorEntry struct {
	ID       string
	Category Category
	Vector   []float64
}

// Match is a scored hit returned from a vector store search.
type Match struct {
	ID    string
	Score float64
}

// VectorStore holds the vector table for the embedding index and answers
// nearest-neighbor queries over it. The index is the only writer; the
// retriever only reads.
type VectorStore interface {
	Connect(ctx context.Context) error

	// Reset drops every stored vector. Called at the start of a full rebuild.
	Reset(ctx context.Context) error

	// Upsert inserts or overwrites entries by id.
	Upsert(ctx context.Context, entries []VectorEntry) error

	// Search returns the topK entries most similar to query, descending by
	// score. A non-empty category restricts candidates to that category.
	Search(ctx context.Context, query []float64, topK int, category Category) ([]Match, error)

	Count(ctx context.Context) (int, error)
	Close() error
}

// StoreConfig selects and configures a vector store backend.
type StoreConfig struct {
	Type       string // "memory", "milvus" or "chromem"
	Address    string
	Collection string
	Dimension  int
	Timeout    time.Duration
	Parameters map[string]interface{}
}

// NewVectorStore creates a vector store for the configured backend. The
// in-memory store is the default and the only backend with exact scoring;
// milvus and chromem trade exactness for scale and persistence.
func NewVectorStore(cfg *StoreConfig) (VectorStore, error) {
	switch cfg.Type {
	case "", "memory":
		return newMemoryStore(), nil
	case "milvus":
		return newMilvusStore(cfg)
	case "chromem":
		return newChromemStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}

// MemoryStore is the in-process vector table: a linear cosine scan over
// every entry. Exact, and cheap for corpora in the hundreds-to-thousands
// range this index is built for.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []VectorEntry
	byID    map[string]int
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) Connect(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                      { return nil }

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byID = make(map[string]int)
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if i, ok := s.byID[e.ID]; ok {
			s.entries[i] = e
			continue
		}
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

// Search scores every entry against query. Insertion order is preserved
// across equal scores, so ties resolve to corpus order.
func (s *MemoryStore) Search(ctx context.Context, query []float64, topK int, category Category) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.entries))
	for _, e := range s.entries {
		if category != "" && e.Category != category {
			continue
		}
		score, err := CosineSimilarity(query, e.Vector)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", e.ID, err)
		}
		matches = append(matches, Match{ID: e.ID, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
