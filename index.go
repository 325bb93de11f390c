package raglet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/corvid-labs/raglet/rag"
	"github.com/corvid-labs/raglet/rag/providers"
)

// KnowledgeIndex is the public entry point to the theorem corpus. It
// owns the loaded entity table and the embedding side table, builds
// both lazily on first use, and hands read access to the Retriever and
// ContextBuilder.
//
// A missing embedding credential is not fatal: the corpus still loads
// and every knowledge accessor works, but similarity retrieval returns
// empty results until a credential is configured.
type KnowledgeIndex struct {
	index *rag.Index
	store rag.VectorStore
}

type indexConfig struct {
	rag.IndexConfig

	provider string
	model    string
	apiKey   string
	options  map[string]interface{}

	store rag.VectorStore
}

// IndexOption configures a KnowledgeIndex using the functional options
// pattern.
type IndexOption func(*indexConfig)

// WithCorpusDir sets the directory holding the JSON corpus partitions.
func WithCorpusDir(dir string) IndexOption {
	return func(c *indexConfig) {
		c.CorpusDir = dir
	}
}

// WithCorpusFiles overrides the default partition list.
func WithCorpusFiles(files ...string) IndexOption {
	return func(c *indexConfig) {
		c.CorpusFiles = files
	}
}

// WithEmbedding configures the embedding provider. An empty apiKey is
// legal and leaves the index without an embedder.
func WithEmbedding(provider, model, apiKey string) IndexOption {
	return func(c *indexConfig) {
		c.provider = provider
		c.model = model
		c.apiKey = apiKey
	}
}

// WithEmbeddingOption passes a provider-specific option through to the
// embedder factory.
func WithEmbeddingOption(key string, value interface{}) IndexOption {
	return func(c *indexConfig) {
		if c.options == nil {
			c.options = make(map[string]interface{})
		}
		c.options[key] = value
	}
}

// WithStore supplies a pre-built vector store instead of the default
// in-memory one.
func WithStore(store rag.VectorStore) IndexOption {
	return func(c *indexConfig) {
		c.store = store
	}
}

// WithBatchSize sets how many theorems each embedding call covers.
func WithBatchSize(size int) IndexOption {
	return func(c *indexConfig) {
		c.BatchSize = size
	}
}

// WithTopK sets the default result count for retrieval.
func WithTopK(topK int) IndexOption {
	return func(c *indexConfig) {
		c.TopK = topK
	}
}

// WithMinScore sets the similarity threshold. Results scoring at or
// below it are dropped.
func WithMinScore(minScore float64) IndexOption {
	return func(c *indexConfig) {
		c.MinScore = minScore
	}
}

// WithTimeout sets the per-call timeout for provider operations.
func WithTimeout(timeout time.Duration) IndexOption {
	return func(c *indexConfig) {
		c.Timeout = timeout
	}
}

// WithRateLimit caps embedding calls per second during bulk indexing.
func WithRateLimit(callsPerSecond float64) IndexOption {
	return func(c *indexConfig) {
		c.RateLimit = rate.Limit(callsPerSecond)
	}
}

// WithIndexLogger replaces the global logger for this index.
func WithIndexLogger(logger Logger) IndexOption {
	return func(c *indexConfig) {
		c.Logger = logger
	}
}

// NewKnowledgeIndex creates an index over the corpus directory.
//
// Example:
//
//	index, err := raglet.NewKnowledgeIndex(
//	    raglet.WithCorpusDir("data"),
//	    raglet.WithEmbedding("modelscope", "Qwen/Qwen3-Embedding-8B", os.Getenv("MODELSCOPE_API_KEY")),
//	)
func NewKnowledgeIndex(opts ...IndexOption) (*KnowledgeIndex, error) {
	cfg := &indexConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	store := cfg.store
	if store == nil {
		var err error
		store, err = rag.NewVectorStore(&rag.StoreConfig{Type: "memory"})
		if err != nil {
			return nil, err
		}
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	return &KnowledgeIndex{
		index: rag.NewIndex(cfg.IndexConfig, embedder, store),
		store: store,
	}, nil
}

// buildEmbedder returns nil without error when no credential is
// configured; retrieval then degrades to empty results instead of
// failing construction.
func buildEmbedder(cfg *indexConfig) (providers.Embedder, error) {
	if cfg.provider == "" {
		return nil, nil
	}

	opts := []rag.EmbedderOption{
		rag.SetProvider(cfg.provider),
	}
	if cfg.model != "" {
		opts = append(opts, rag.SetModel(cfg.model))
	}
	if cfg.apiKey != "" {
		opts = append(opts, rag.SetAPIKey(cfg.apiKey))
	}
	for key, value := range cfg.options {
		opts = append(opts, rag.SetOption(key, value))
	}

	embedder, err := rag.NewEmbedder(opts...)
	if err != nil {
		if errors.Is(err, providers.ErrMissingAPIKey) {
			Warn("no embedding API key configured, retrieval will return empty results")
			return nil, nil
		}
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

// Initialize loads the corpus and generates embeddings. Idempotent and
// safe for concurrent use; callers that skip it get the same work done
// lazily on first retrieval.
func (k *KnowledgeIndex) Initialize(ctx context.Context) error {
	return k.index.Initialize(ctx)
}

// Invalidate forces the next use to reload the corpus and regenerate
// every embedding. Call it after corpus files change on disk.
func (k *KnowledgeIndex) Invalidate() {
	k.index.Invalidate()
}

// Ready reports whether initialization has completed.
func (k *KnowledgeIndex) Ready() bool {
	return k.index.Ready()
}

// TheoremByID returns one theorem from the loaded corpus.
func (k *KnowledgeIndex) TheoremByID(id string) (Theorem, bool) {
	return k.index.TheoremByID(id)
}

// Theorems returns every loaded theorem in corpus order.
func (k *KnowledgeIndex) Theorems() []Theorem {
	return k.index.Theorems()
}

// TheoremsByCategory returns the loaded theorems for one category.
func (k *KnowledgeIndex) TheoremsByCategory(category Category) []Theorem {
	return k.index.TheoremsByCategory(category)
}

// Len returns the number of loaded theorems.
func (k *KnowledgeIndex) Len() int {
	return k.index.Len()
}

// EmbeddedCount returns how many theorems currently have a vector.
func (k *KnowledgeIndex) EmbeddedCount(ctx context.Context) (int, error) {
	return k.index.EmbeddedCount(ctx)
}

// Close releases the vector store.
func (k *KnowledgeIndex) Close() error {
	return k.store.Close()
}
