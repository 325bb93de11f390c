package raglet_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/raglet"
	"github.com/corvid-labs/raglet/rag/providers"
)

// failingEmbedder loads batches fine but fails on query embedding, to
// separate the strict and safe retrieval paths.
type failingEmbedder struct {
	stubProviderEmbedder
}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, fmt.Errorf("provider unavailable")
}

func init() {
	providers.RegisterEmbedder("stub-query-fail", func(config map[string]interface{}) (providers.Embedder, error) {
		return failingEmbedder{}, nil
	})
}

func TestRetrieve(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "test-key")
	retriever := raglet.NewRetriever(index)

	results, err := retriever.Retrieve(context.Background(), "how much sleep do adults need",
		raglet.WithRetrieveCategory(raglet.CategoryHealth),
	)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "h1", results[0].ID)
	assert.Greater(t, results[0].Score, 0.2)
}

func TestRetrieveTopKOption(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "test-key")
	retriever := raglet.NewRetriever(index)

	results, err := retriever.Retrieve(context.Background(), "sleep",
		raglet.WithRetrieveTopK(1),
	)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 1)
}

func TestRetrieveQueryEmbeddingFailurePropagates(t *testing.T) {
	index, err := raglet.NewKnowledgeIndex(
		raglet.WithCorpusDir(writeHealthCorpus(t)),
		raglet.WithCorpusFiles("health.json"),
		raglet.WithEmbedding("stub-query-fail", "", "irrelevant"),
		raglet.WithIndexLogger(raglet.NewLogger(raglet.LogLevelOff)),
	)
	require.NoError(t, err)
	defer index.Close()

	// The strict path surfaces the provider failure.
	_, err = raglet.NewRetriever(index).Retrieve(context.Background(), "sleep")
	require.Error(t, err)

	// The safe path absorbs it.
	builder := raglet.NewContextBuilder(raglet.NewRetriever(index), raglet.WithTokenCounter(wordCounter{}))
	assert.Empty(t, builder.BuildContext(context.Background(), "sleep", ""))
}

func TestIndexInvalidateThroughFacade(t *testing.T) {
	dir := writeHealthCorpus(t)
	index := newTestIndex(t, dir, "test-key")
	ctx := context.Background()

	require.NoError(t, index.Initialize(ctx))
	require.True(t, index.Ready())
	assert.Equal(t, 2, index.Len())

	writeFile(t, dir, "health.json", `[
		{"id": "h1", "category": "health", "theorem": "Sleep Duration"}
	]`)
	index.Invalidate()
	assert.False(t, index.Ready())

	require.NoError(t, index.Initialize(ctx))
	assert.Equal(t, 1, index.Len())
}
