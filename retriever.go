package raglet

import (
	"context"
)

// Retriever answers similarity queries against a KnowledgeIndex. It is
// the strict retrieval path: provider failures while embedding the
// query propagate to the caller. Use the ContextBuilder when retrieval
// must never fail.
type Retriever struct {
	index *KnowledgeIndex
}

// NewRetriever creates a retriever over index.
func NewRetriever(index *KnowledgeIndex) *Retriever {
	return &Retriever{index: index}
}

// RetrieveOption tunes a single retrieval call.
type RetrieveOption func(*retrieveParams)

type retrieveParams struct {
	topK     int
	category Category
}

// WithRetrieveTopK overrides the index default result count for this call.
func WithRetrieveTopK(topK int) RetrieveOption {
	return func(p *retrieveParams) {
		p.topK = topK
	}
}

// WithRetrieveCategory restricts candidates to one category.
func WithRetrieveCategory(category Category) RetrieveOption {
	return func(p *retrieveParams) {
		p.category = category
	}
}

// Retrieve embeds the query and returns the most similar theorems,
// descending by relevance score. Low-scoring candidates are dropped at
// the index's threshold. Triggers a lazy index build on first use.
//
// Example:
//
//	results, err := retriever.Retrieve(ctx, "how much sleep do adults need",
//	    raglet.WithRetrieveCategory(raglet.CategoryHealth),
//	)
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) ([]ScoredTheorem, error) {
	var p retrieveParams
	for _, opt := range opts {
		opt(&p)
	}
	return r.index.index.Retrieve(ctx, query, p.topK, p.category)
}
