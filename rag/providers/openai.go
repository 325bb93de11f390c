package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

func init() {
	RegisterEmbedder("openai", NewOpenAIEmbedder)
}

const (
	defaultEmbeddingAPI = "https://api.openai.com/v1/embeddings"
	defaultModelName    = "text-embedding-3-small"
)

// Output dimensions per known model.
var modelDimensions = map[string]int{
	"text-embedding-3-small":    1536,
	"text-embedding-3-large":    3072,
	"text-embedding-ada-002":    1536,
	"Qwen/Qwen3-Embedding-8B":   4096,
	"Qwen/Qwen3-Embedding-4B":   2560,
	"Qwen/Qwen3-Embedding-0.6B": 1024,
}

// OpenAIEmbedder talks to any OpenAI-compatible embeddings endpoint.
// Both the single and batch operations go through the same API shape;
// the input field is a string or an array of strings. Safe for
// concurrent use.
type OpenAIEmbedder struct {
	apiKey    string
	client    *http.Client
	apiURL    string
	modelName string
}

// NewOpenAIEmbedder builds an embedder from a config map with keys:
// api_key (required), model, api_url, timeout (time.Duration).
func NewOpenAIEmbedder(config map[string]interface{}) (Embedder, error) {
	apiKey, ok := config["api_key"].(string)
	if !ok || apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	e := &OpenAIEmbedder{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		apiURL:    defaultEmbeddingAPI,
		modelName: defaultModelName,
	}

	if model, ok := config["model"].(string); ok && model != "" {
		e.modelName = model
	}
	if apiURL, ok := config["api_url"].(string); ok && apiURL != "" {
		e.apiURL = apiURL
	}
	if timeout, ok := config["timeout"].(time.Duration); ok {
		e.client.Timeout = timeout
	}

	return e, nil
}

type embeddingRequest struct {
	Input          interface{} `json:"input"` // string or []string
	Model          string      `json:"model"`
	EncodingFormat string      `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the vector for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.request(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per input text, in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.request(ctx, texts, len(texts))
}

func (e *OpenAIEmbedder) request(ctx context.Context, input interface{}, want int) ([][]float64, error) {
	reqBody, err := json.Marshal(embeddingRequest{
		Input:          input,
		Model:          e.modelName,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrInvalidCredential)
	case resp.StatusCode != http.StatusOK:
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("%s", resp.Status)}
	}

	var embeddingResp embeddingResponse
	if err := json.Unmarshal(body, &embeddingResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(embeddingResp.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings in response, got %d", want, len(embeddingResp.Data))
	}

	// Responses carry an index per item; order by it rather than trusting
	// array order.
	vectors := make([][]float64, want)
	for _, item := range embeddingResp.Data {
		if item.Index < 0 || item.Index >= want {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
	}
	return vectors, nil
}

// GetDimension returns the output dimension for the configured model.
func (e *OpenAIEmbedder) GetDimension() (int, error) {
	if dim, ok := modelDimensions[e.modelName]; ok {
		return dim, nil
	}
	return 0, fmt.Errorf("unknown model: %s", e.modelName)
}
