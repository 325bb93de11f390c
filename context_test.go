package raglet_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/raglet"
	"github.com/corvid-labs/raglet/rag/providers"
)

// stubVectors drives the test embedding provider: any text containing
// the key embeds to the value, queries embed to queryVector.
var stubVectors = map[string][]float64{
	"Sleep Duration": {1, 0},
	"Balanced Diet":  {0, 1},
}

var queryVector = []float64{0.9, 0.1}

type stubProviderEmbedder struct{}

func (stubProviderEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return queryVector, nil
}

func (stubProviderEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{1, 1}
		for key, vec := range stubVectors {
			if strings.Contains(text, key) {
				out[i] = vec
				break
			}
		}
	}
	return out, nil
}

func (stubProviderEmbedder) GetDimension() (int, error) { return 2, nil }

func init() {
	providers.RegisterEmbedder("stub", func(config map[string]interface{}) (providers.Embedder, error) {
		if key, _ := config["api_key"].(string); key == "" {
			return nil, providers.ErrMissingAPIKey
		}
		return stubProviderEmbedder{}, nil
	})
}

func writeHealthCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := `[
		{"id": "h1", "category": "health", "theorem": "Sleep Duration", "description": "Adults need 7-9 hours of sleep", "formula": "7 <= hours <= 9", "commonMistakes": ["catching up on weekends fixes weekday debt"], "keywords": ["sleep"]},
		{"id": "h2", "category": "health", "theorem": "Balanced Diet", "description": "Eat vegetables and whole grains", "keywords": ["diet"]}
	]`
	writeFile(t, dir, "health.json", data)
	return dir
}

func newTestIndex(t *testing.T, dir, apiKey string) *raglet.KnowledgeIndex {
	t.Helper()
	index, err := raglet.NewKnowledgeIndex(
		raglet.WithCorpusDir(dir),
		raglet.WithCorpusFiles("health.json"),
		raglet.WithEmbedding("stub", "", apiKey),
		raglet.WithIndexLogger(raglet.NewLogger(raglet.LogLevelOff)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index
}

// wordCounter makes token budgets deterministic in tests.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestBuildContext(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "test-key")
	builder := raglet.NewContextBuilder(raglet.NewRetriever(index), raglet.WithTokenCounter(wordCounter{}))

	block := builder.BuildContext(context.Background(), "how much sleep do adults need", raglet.CategoryHealth)

	assert.Contains(t, block, "Relevant knowledge for reference:")
	assert.Contains(t, block, "[1] Sleep Duration")
	assert.Contains(t, block, "Description: Adults need 7-9 hours of sleep")
	assert.Contains(t, block, "Formula: 7 <= hours <= 9")
	assert.Contains(t, block, "Common mistakes: catching up on weekends fixes weekday debt")
	// The diet theorem scores under the threshold and stays out.
	assert.NotContains(t, block, "Balanced Diet")
}

func TestBuildContextDeterministic(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "test-key")
	builder := raglet.NewContextBuilder(raglet.NewRetriever(index), raglet.WithTokenCounter(wordCounter{}))

	ctx := context.Background()
	first := builder.BuildContext(ctx, "sleep", raglet.CategoryHealth)
	second := builder.BuildContext(ctx, "sleep", raglet.CategoryHealth)
	assert.Equal(t, first, second)
}

func TestBuildContextNoCredential(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "")
	builder := raglet.NewContextBuilder(raglet.NewRetriever(index), raglet.WithTokenCounter(wordCounter{}))

	block := builder.BuildContext(context.Background(), "sleep", raglet.CategoryHealth)
	assert.Empty(t, block)

	// The corpus itself still loaded.
	require.NoError(t, index.Initialize(context.Background()))
	assert.Equal(t, 2, index.Len())
}

func TestFormatEmptyResults(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "test-key")
	builder := raglet.NewContextBuilder(raglet.NewRetriever(index), raglet.WithTokenCounter(wordCounter{}))

	assert.Empty(t, builder.Format(nil))
	assert.Empty(t, builder.Format([]raglet.ScoredTheorem{}))
}

func TestFormatTokenBudget(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "test-key")
	results := []raglet.ScoredTheorem{
		{Theorem: raglet.Theorem{Title: "First", Description: "short"}, Score: 0.9},
		{Theorem: raglet.Theorem{Title: "Second", Description: strings.Repeat("word ", 50)}, Score: 0.8},
		{Theorem: raglet.Theorem{Title: "Third", Description: "also short"}, Score: 0.7},
	}

	builder := raglet.NewContextBuilder(raglet.NewRetriever(index),
		raglet.WithTokenCounter(wordCounter{}),
		raglet.WithMaxContextTokens(20),
	)
	block := builder.Format(results)

	// The oversized second entry is dropped whole, and with it
	// everything after.
	assert.Contains(t, block, "[1] First")
	assert.NotContains(t, block, "Second")
	assert.NotContains(t, block, "Third")
}

func TestFormatNumbersSequentially(t *testing.T) {
	index := newTestIndex(t, writeHealthCorpus(t), "test-key")
	builder := raglet.NewContextBuilder(raglet.NewRetriever(index), raglet.WithTokenCounter(wordCounter{}))

	results := []raglet.ScoredTheorem{
		{Theorem: raglet.Theorem{Title: "Alpha", Description: "a"}, Score: 0.9},
		{Theorem: raglet.Theorem{Title: "Beta", Description: "b"}, Score: 0.8},
	}
	block := builder.Format(results)
	assert.Contains(t, block, "[1] Alpha")
	assert.Contains(t, block, "[2] Beta")
}
