package rag

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusIDField       = "id"
	milvusCategoryField = "category"
	milvusVectorField   = "embedding"
)

// MilvusStore keeps the vector table in a Milvus collection, for corpora
// too large for an in-process scan. Scores come back from an IP search
// over normalized vectors, which matches cosine similarity.
type MilvusStore struct {
	cfg    *StoreConfig
	client client.Client
}

func newMilvusStore(cfg *StoreConfig) (*MilvusStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("milvus store requires an address")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("milvus store requires a collection name")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("milvus store requires a positive dimension")
	}
	return &MilvusStore{cfg: cfg}, nil
}

func (m *MilvusStore) Connect(ctx context.Context) error {
	c, err := client.NewClient(ctx, client.Config{Address: m.cfg.Address})
	if err != nil {
		return fmt.Errorf("connecting to milvus: %w", err)
	}
	m.client = c
	return m.ensureCollection(ctx)
}

func (m *MilvusStore) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return err
	}
	if has {
		return m.client.LoadCollection(ctx, m.cfg.Collection, false)
	}

	schema := entity.NewSchema().
		WithName(m.cfg.Collection).
		WithDescription("theorem embedding table").
		WithField(entity.NewField().
			WithName(milvusIDField).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(128).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(milvusCategoryField).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64)).
		WithField(entity.NewField().
			WithName(milvusVectorField).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(m.cfg.Dimension)))

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.IP, 16, 256)
	if err != nil {
		return err
	}
	if err := m.client.CreateIndex(ctx, m.cfg.Collection, milvusVectorField, idx, false); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	return m.client.LoadCollection(ctx, m.cfg.Collection, false)
}

// Reset drops and recreates the collection.
func (m *MilvusStore) Reset(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.cfg.Collection)
	if err != nil {
		return err
	}
	if has {
		if err := m.client.DropCollection(ctx, m.cfg.Collection); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}
	}
	return m.ensureCollection(ctx)
}

func (m *MilvusStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	categories := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		categories[i] = string(e.Category)
		vectors[i] = toFloat32(e.Vector)
	}

	_, err := m.client.Upsert(ctx, m.cfg.Collection, "",
		entity.NewColumnVarChar(milvusIDField, ids),
		entity.NewColumnVarChar(milvusCategoryField, categories),
		entity.NewColumnFloatVector(milvusVectorField, m.cfg.Dimension, vectors),
	)
	if err != nil {
		return fmt.Errorf("upserting vectors: %w", err)
	}
	return m.client.Flush(ctx, m.cfg.Collection, false)
}

func (m *MilvusStore) Search(ctx context.Context, query []float64, topK int, category Category) ([]Match, error) {
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, err
	}

	expr := ""
	if category != "" {
		expr = fmt.Sprintf("%s == %q", milvusCategoryField, string(category))
	}

	results, err := m.client.Search(ctx, m.cfg.Collection, nil, expr,
		[]string{milvusIDField},
		[]entity.Vector{entity.FloatVector(toFloat32(query))},
		milvusVectorField, entity.IP, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("searching milvus: %w", err)
	}

	var matches []Match
	for _, rs := range results {
		idColumn, ok := rs.IDs.(*entity.ColumnVarChar)
		if !ok {
			return nil, fmt.Errorf("unexpected id column type %T", rs.IDs)
		}
		for i := 0; i < rs.ResultCount; i++ {
			id, err := idColumn.ValueByIdx(i)
			if err != nil {
				return nil, err
			}
			matches = append(matches, Match{ID: id, Score: float64(rs.Scores[i])})
		}
	}
	return matches, nil
}

func (m *MilvusStore) Count(ctx context.Context) (int, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.cfg.Collection)
	if err != nil {
		return 0, err
	}
	var count int
	if _, err := fmt.Sscanf(stats["row_count"], "%d", &count); err != nil {
		return 0, fmt.Errorf("parsing row count: %w", err)
	}
	return count, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
