package raglet

import (
	"time"

	"github.com/corvid-labs/raglet/rag"
)

// VectorStore holds the embedding side table and answers
// nearest-neighbor queries over it.
type VectorStore = rag.VectorStore

// StoreOption configures the vector store backend.
type StoreOption func(*rag.StoreConfig)

// WithStoreType selects the backend: "memory" (default), "milvus" or
// "chromem".
func WithStoreType(storeType string) StoreOption {
	return func(c *rag.StoreConfig) {
		c.Type = storeType
	}
}

// WithStoreAddress sets the backend address: a milvus endpoint, or a
// chromem persistence directory.
func WithStoreAddress(address string) StoreOption {
	return func(c *rag.StoreConfig) {
		c.Address = address
	}
}

// WithStoreCollection names the collection holding the vectors.
func WithStoreCollection(collection string) StoreOption {
	return func(c *rag.StoreConfig) {
		c.Collection = collection
	}
}

// WithStoreDimension sets the vector dimension. Required for milvus.
func WithStoreDimension(dimension int) StoreOption {
	return func(c *rag.StoreConfig) {
		c.Dimension = dimension
	}
}

// WithStoreTimeout sets the per-operation timeout.
func WithStoreTimeout(timeout time.Duration) StoreOption {
	return func(c *rag.StoreConfig) {
		c.Timeout = timeout
	}
}

// WithStoreOption sets a backend-specific parameter.
func WithStoreOption(key string, value interface{}) StoreOption {
	return func(c *rag.StoreConfig) {
		if c.Parameters == nil {
			c.Parameters = make(map[string]interface{})
		}
		c.Parameters[key] = value
	}
}

// NewVectorStore creates a vector store for the configured backend.
func NewVectorStore(opts ...StoreOption) (VectorStore, error) {
	cfg := &rag.StoreConfig{
		Collection: "theorems",
		Parameters: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return rag.NewVectorStore(cfg)
}
