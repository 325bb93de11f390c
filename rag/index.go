package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corvid-labs/raglet/rag/providers"
)

// Tuning defaults. Batch size and score threshold are recall/precision
// knobs, not correctness boundaries; override them through IndexConfig.
const (
	DefaultBatchSize = 10
	DefaultTopK      = 5
	DefaultMinScore  = 0.2
	DefaultTimeout   = 30 * time.Second
)

// IndexConfig holds the settings for an Index.
type IndexConfig struct {
	CorpusDir   string
	CorpusFiles []string

	BatchSize int           // entities per batch embedding call
	TopK      int           // default result count for Retrieve
	MinScore  float64       // results scoring at or below this are dropped
	Timeout   time.Duration // per provider call
	RateLimit rate.Limit    // embedding calls per second during bulk indexing; 0 = unlimited

	Logger Logger
}

func (c *IndexConfig) applyDefaults() {
	if len(c.CorpusFiles) == 0 {
		c.CorpusFiles = DefaultCorpusFiles
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MinScore == 0 {
		c.MinScore = DefaultMinScore
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = GlobalLogger
	}
}

// Index owns the entity table and the vector table for the lifetime of
// the process. It is built once, lazily, by the first Initialize call;
// concurrent callers share a single in-flight build rather than each
// triggering their own reload. Invalidate forces the next Initialize to
// rebuild everything from disk — there is no incremental update path.
//
// Readers during a concurrent rebuild may observe a half-updated table;
// rebuilds are rare (corpus mutation only), so this eventual-consistency
// window is accepted rather than locked away.
type Index struct {
	cfg      IndexConfig
	embedder providers.Embedder // nil when no credential is configured
	store    VectorStore
	loader   *Loader
	keyword  *KeywordIndex
	limiter  *rate.Limiter
	logger   Logger

	mu        sync.Mutex
	ready     bool
	connected bool
	gen       uint64 // bumped by Invalidate so a stale build cannot mark itself ready
	building  *buildJob

	theorems map[string]Theorem
	order    []string // corpus insertion order; duplicates keep their first slot
}

type buildJob struct {
	done chan struct{}
	err  error
}

// NewIndex creates an index over the given store. A nil embedder is
// legal: the corpus still loads, no vectors are generated, and retrieval
// degrades to empty results.
func NewIndex(cfg IndexConfig, embedder providers.Embedder, store VectorStore) *Index {
	cfg.applyDefaults()

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(cfg.RateLimit, 1)
	}

	return &Index{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		loader:   NewLoader(cfg.CorpusDir, cfg.Logger),
		keyword:  NewKeywordIndex(),
		limiter:  limiter,
		logger:   cfg.Logger,
		theorems: make(map[string]Theorem),
	}
}

// Initialize loads the corpus and generates embeddings. Idempotent: once
// the index is ready, subsequent calls return immediately. When several
// goroutines race here, exactly one runs the build and the rest wait on
// its result (or bail out when their context expires).
func (ix *Index) Initialize(ctx context.Context) error {
	ix.mu.Lock()
	if ix.ready {
		ix.mu.Unlock()
		return nil
	}

	if ix.building != nil {
		job := ix.building
		ix.mu.Unlock()
		select {
		case <-job.done:
			return job.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	job := &buildJob{done: make(chan struct{})}
	ix.building = job
	gen := ix.gen
	ix.mu.Unlock()

	job.err = ix.rebuild(ctx)

	ix.mu.Lock()
	if job.err == nil && gen == ix.gen {
		ix.ready = true
	}
	ix.building = nil
	ix.mu.Unlock()

	close(job.done)
	return job.err
}

// Invalidate clears the ready flag so the next Initialize reloads every
// corpus file and regenerates every embedding. Called after the corpus
// changes on disk, e.g. when a new document is appended.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ready = false
	ix.gen++
	ix.logger.Info("index invalidated, next use triggers a full rebuild")
}

// Ready reports whether the index has completed initialization.
func (ix *Index) Ready() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.ready
}

func (ix *Index) rebuild(ctx context.Context) error {
	ix.logger.Info("initializing knowledge index", "dir", ix.cfg.CorpusDir)

	ix.mu.Lock()
	connected := ix.connected
	ix.mu.Unlock()
	if !connected {
		if err := ix.store.Connect(ctx); err != nil {
			return fmt.Errorf("connecting vector store: %w", err)
		}
		ix.mu.Lock()
		ix.connected = true
		ix.mu.Unlock()
	}

	if err := ix.store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting vector store: %w", err)
	}

	theorems := make(map[string]Theorem)
	var order []string
	for _, file := range ix.cfg.CorpusFiles {
		for _, t := range ix.loader.LoadFile(file) {
			if _, dup := theorems[t.ID]; dup {
				// Last write wins across files; first insertion keeps its slot.
				ix.logger.Debug("duplicate theorem id, keeping the later item", "id", t.ID)
			} else {
				order = append(order, t.ID)
			}
			theorems[t.ID] = t
		}
	}

	ix.mu.Lock()
	ix.theorems = theorems
	ix.order = order
	ix.mu.Unlock()

	ix.keyword.Rebuild(ix.Theorems())
	ix.logger.Info("corpus loaded", "theorems", len(order))

	if ix.embedder == nil {
		ix.logger.Warn("no embedding credential configured, skipping embedding generation")
		return nil
	}

	return ix.generateEmbeddings(ctx, theorems, order)
}

// generateEmbeddings walks the corpus in fixed-size batches, one provider
// call per batch. A failed batch is logged and skipped: its theorems keep
// no vector and stay invisible to retrieval until the next full rebuild.
func (ix *Index) generateEmbeddings(ctx context.Context, theorems map[string]Theorem, order []string) error {
	embedded := 0
	for start := 0; start < len(order); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(order) {
			end = len(order)
		}
		batch := order[start:end]

		if ix.limiter != nil {
			if err := ix.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		texts := make([]string, len(batch))
		for i, id := range batch {
			texts[i] = theorems[id].CombinedText()
		}

		callCtx, cancel := context.WithTimeout(ctx, ix.cfg.Timeout)
		vectors, err := ix.embedder.EmbedBatch(callCtx, texts)
		cancel()
		if err != nil {
			ix.logger.Error("batch embedding failed, entities in this batch stay unembedded",
				"from", start, "to", end, "error", err)
			continue
		}
		if len(vectors) != len(batch) {
			ix.logger.Error("provider returned wrong number of embeddings",
				"want", len(batch), "got", len(vectors))
			continue
		}

		entries := make([]VectorEntry, len(batch))
		for i, id := range batch {
			entries[i] = VectorEntry{ID: id, Category: theorems[id].Category, Vector: vectors[i]}
		}
		if err := ix.store.Upsert(ctx, entries); err != nil {
			ix.logger.Error("storing embeddings failed", "from", start, "to", end, "error", err)
			continue
		}
		embedded += len(batch)
	}

	ix.logger.Info("embedding generation complete", "embedded", embedded, "total", len(order))
	return nil
}

// Retrieve embeds the query and returns the topK most similar theorems,
// descending by score, with results at or below the score threshold
// dropped. A missing credential yields an empty result, not an error;
// provider failures while embedding the query do propagate, so callers
// wanting a never-fails path should go through the context assembler.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int, category Category) ([]ScoredTheorem, error) {
	if err := ix.Initialize(ctx); err != nil {
		return nil, err
	}

	if ix.embedder == nil {
		ix.logger.Warn("no embedding credential configured, skipping retrieval")
		return nil, nil
	}

	if topK <= 0 {
		topK = ix.cfg.TopK
	}

	callCtx, cancel := context.WithTimeout(ctx, ix.cfg.Timeout)
	queryVector, err := ix.embedder.Embed(callCtx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := ix.store.Search(ctx, queryVector, topK, category)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	results := make([]ScoredTheorem, 0, len(matches))
	for _, m := range matches {
		if m.Score <= ix.cfg.MinScore {
			continue
		}
		t, ok := ix.TheoremByID(m.ID)
		if !ok {
			continue
		}
		results = append(results, ScoredTheorem{Theorem: t, Score: m.Score})
	}

	ix.logger.Debug("retrieval complete", "query", query, "candidates", len(matches), "results", len(results))
	return results, nil
}

// TheoremByID returns one theorem from the entity table.
func (ix *Index) TheoremByID(id string) (Theorem, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	t, ok := ix.theorems[id]
	return t, ok
}

// Theorems returns every loaded theorem in corpus order.
func (ix *Index) Theorems() []Theorem {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]Theorem, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.theorems[id])
	}
	return out
}

// TheoremsByCategory returns the loaded theorems tagged with category,
// in corpus order.
func (ix *Index) TheoremsByCategory(category Category) []Theorem {
	var out []Theorem
	for _, t := range ix.Theorems() {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the size of the entity table.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.order)
}

// EmbeddedCount returns how many theorems currently have a vector.
func (ix *Index) EmbeddedCount(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

// KeywordSearch ranks loaded theorems against query using the sparse
// keyword index. Works without any embedding credential.
func (ix *Index) KeywordSearch(query string, topK int) []Match {
	return ix.keyword.Search(query, topK)
}
