package providers

func init() {
	RegisterEmbedder("modelscope", NewModelScopeEmbedder)
}

const (
	modelScopeAPI   = "https://api-inference.modelscope.cn/v1/embeddings"
	modelScopeModel = "Qwen/Qwen3-Embedding-8B"
)

// NewModelScopeEmbedder builds an embedder against the ModelScope
// inference API, which speaks the OpenAI embeddings protocol. Accepts
// the same config keys as the openai provider; api_url and model
// default to the ModelScope endpoint and Qwen embedding model.
func NewModelScopeEmbedder(config map[string]interface{}) (Embedder, error) {
	cfg := make(map[string]interface{}, len(config)+2)
	for k, v := range config {
		cfg[k] = v
	}
	if _, ok := cfg["api_url"].(string); !ok || cfg["api_url"] == "" {
		cfg["api_url"] = modelScopeAPI
	}
	if _, ok := cfg["model"].(string); !ok || cfg["model"] == "" {
		cfg["model"] = modelScopeModel
	}
	return NewOpenAIEmbedder(cfg)
}
