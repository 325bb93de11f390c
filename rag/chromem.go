package rag

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore keeps the vector table in a chromem-go collection,
// optionally persisted to disk so embeddings survive restarts. All
// vectors are precomputed upstream; chromem's own embedding function is
// never invoked.
type ChromemStore struct {
	cfg *StoreConfig

	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
}

func newChromemStore(cfg *StoreConfig) (*ChromemStore, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("chromem store requires a collection name")
	}
	return &ChromemStore{cfg: cfg}, nil
}

// Connect opens the database. An empty address selects an in-memory DB;
// otherwise the address is the persistence directory.
func (c *ChromemStore) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.cfg.Address != "" {
		c.db, err = chromem.NewPersistentDB(c.cfg.Address, false)
		if err != nil {
			return fmt.Errorf("opening persistent chromem db: %w", err)
		}
	} else {
		c.db = chromem.NewDB()
	}
	return c.openCollection()
}

func (c *ChromemStore) Close() error { return nil }

// noEmbed guards against chromem ever being asked to embed. Every
// document and every query arrives with a precomputed vector.
func noEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding is handled upstream, not by the store")
}

func (c *ChromemStore) openCollection() error {
	col, err := c.db.GetOrCreateCollection(c.cfg.Collection, nil, noEmbed)
	if err != nil {
		return fmt.Errorf("opening collection: %w", err)
	}
	c.collection = col
	return nil
}

func (c *ChromemStore) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.DeleteCollection(c.cfg.Collection); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return c.openCollection()
}

func (c *ChromemStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	c.mu.Lock()
	col := c.collection
	c.mu.Unlock()

	for _, e := range entries {
		doc := chromem.Document{
			ID:        e.ID,
			Metadata:  map[string]string{"category": string(e.Category)},
			Embedding: toFloat32(e.Vector),
			Content:   e.ID,
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("adding document %s: %w", e.ID, err)
		}
	}
	return nil
}

func (c *ChromemStore) Search(ctx context.Context, query []float64, topK int, category Category) ([]Match, error) {
	c.mu.Lock()
	col := c.collection
	c.mu.Unlock()

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	var where map[string]string
	if category != "" {
		where = map[string]string{"category": string(category)}
	}

	results, err := col.QueryEmbedding(ctx, toFloat32(query), topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{ID: r.ID, Score: float64(r.Similarity)}
	}
	return matches, nil
}

func (c *ChromemStore) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection.Count(), nil
}
