// Package raglet implements retrieval-augmented generation over a
// structured theorem corpus. It loads JSON knowledge files, embeds
// their entries through a pluggable provider, and answers similarity
// queries that feed consultation prompts.
package raglet

import (
	"github.com/corvid-labs/raglet/rag"
	"github.com/corvid-labs/raglet/rag/providers"
)

// Embedder converts text into vectors. Implementations are registered
// by provider name; see the providers package.
type Embedder = providers.Embedder

// EmbedderOption is a function type for configuring the Embedder.
type EmbedderOption = rag.EmbedderOption

// SetEmbedderProvider sets the provider for the Embedder.
// Supported providers:
//   - "modelscope": ModelScope inference API (Qwen embedding models)
//   - "openai": any OpenAI-compatible embeddings endpoint
func SetEmbedderProvider(provider string) EmbedderOption {
	return rag.SetProvider(provider)
}

// SetEmbedderModel sets the specific model to use for embedding.
func SetEmbedderModel(model string) EmbedderOption {
	return rag.SetModel(model)
}

// SetEmbedderAPIKey sets the authentication key for the embedding service.
func SetEmbedderAPIKey(apiKey string) EmbedderOption {
	return rag.SetAPIKey(apiKey)
}

// SetOption sets a custom provider option for the Embedder.
func SetOption(key string, value interface{}) EmbedderOption {
	return rag.SetOption(key, value)
}

// NewEmbedder creates a new Embedder instance based on the provided options.
//
// Example:
//
//	embedder, err := raglet.NewEmbedder(
//	    raglet.SetEmbedderProvider("modelscope"),
//	    raglet.SetEmbedderAPIKey(os.Getenv("MODELSCOPE_API_KEY")),
//	)
func NewEmbedder(opts ...EmbedderOption) (Embedder, error) {
	return rag.NewEmbedder(opts...)
}
