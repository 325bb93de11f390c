// Package providers implements embedding service providers for raglet.
// Providers are registered by name through a factory registry so new
// backends can be added without touching the retrieval core.
package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Typed provider errors. Callers distinguish configuration problems
// (missing or rejected credential) from transport failures: the former
// degrade retrieval to empty results, the latter are batch- or
// request-scoped and retryable.
var (
	// ErrMissingAPIKey means no credential was configured at all.
	ErrMissingAPIKey = errors.New("embedding API key is required")

	// ErrInvalidCredential means the provider rejected the credential.
	ErrInvalidCredential = errors.New("embedding API key was rejected")
)

// TransportError wraps a failed exchange with the embedding service:
// network failures and non-auth HTTP error statuses.
type TransportError struct {
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("embedding request failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("embedding request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Embedder converts text into fixed-length vectors. Embed handles one
// text; EmbedBatch handles many in a single call, returning vectors in
// input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// GetDimension returns the output dimension of the configured model.
	GetDimension() (int, error)
}

// EmbedderFactory creates an Embedder from a provider-specific config map.
type EmbedderFactory func(config map[string]interface{}) (Embedder, error)

var (
	embedderFactories = make(map[string]EmbedderFactory)
	mu                sync.RWMutex
)

// RegisterEmbedder registers a factory under name, replacing any
// previous registration.
func RegisterEmbedder(name string, factory EmbedderFactory) {
	mu.Lock()
	defer mu.Unlock()
	embedderFactories[name] = factory
}

// GetEmbedderFactory returns the factory registered under name.
func GetEmbedderFactory(name string) (EmbedderFactory, error) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := embedderFactories[name]
	if !ok {
		return nil, fmt.Errorf("embedder not found: %s", name)
	}
	return factory, nil
}

// List returns the names of all registered providers.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(embedderFactories))
	for name := range embedderFactories {
		names = append(names, name)
	}
	return names
}
