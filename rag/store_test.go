package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSearchRanking(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{
		{ID: "far", Category: CategoryHealth, Vector: []float64{0, 1}},
		{ID: "near", Category: CategoryHealth, Vector: []float64{1, 0}},
		{ID: "mid", Category: CategoryHealth, Vector: []float64{1, 1}},
	}))

	matches, err := store.Search(ctx, []float64{1, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].ID)
	assert.Equal(t, "mid", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryStoreCategoryFilter(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{
		{ID: "h1", Category: CategoryHealth, Vector: []float64{1, 0}},
		{ID: "m1", Category: CategoryMath, Vector: []float64{1, 0}},
	}))

	matches, err := store.Search(ctx, []float64{1, 0}, 10, CategoryHealth)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "h1", matches[0].ID)
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "a", Vector: []float64{0, 1}}}))
	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "a", Vector: []float64{1, 0}}}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches, err := store.Search(ctx, []float64{1, 0}, 1, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "a", Vector: []float64{1}}}))
	require.NoError(t, store.Reset(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStoreDimensionMismatchSurfaces(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "a", Vector: []float64{1, 0, 0}}}))

	_, err := store.Search(ctx, []float64{1, 0}, 1, "")
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
}

func TestNewVectorStoreDefaultsToMemory(t *testing.T) {
	store, err := NewVectorStore(&StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = NewVectorStore(&StoreConfig{Type: "no-such-backend"})
	assert.Error(t, err)
}
