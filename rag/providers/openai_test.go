package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(t *testing.T, url string) Embedder {
	t.Helper()
	e, err := NewOpenAIEmbedder(map[string]interface{}{
		"api_key": "test-key",
		"api_url": url,
	})
	require.NoError(t, err)
	return e
}

func TestOpenAIEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewOpenAIEmbedder(map[string]interface{}{"api_key": ""})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIEmbedderEmbed(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req["input"])
		assert.Equal(t, "float", req["encoding_format"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float64{0.1, 0.2, 0.3}},
			},
		})
	})

	vec, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIEmbedderEmbedBatch(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []interface{}{"a", "b"}, req["input"])

		// Out of order on purpose; the client must reorder by index.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float64{0, 1}},
				{"index": 0, "embedding": []float64{1, 0}},
			},
		})
	})

	vecs, err := newTestEmbedder(t, srv.URL).EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{1, 0}, vecs[0])
	assert.Equal(t, []float64{0, 1}, vecs[1])
}

func TestOpenAIEmbedderEmbedBatchEmpty(t *testing.T) {
	vecs, err := newTestEmbedder(t, "http://unused").EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestOpenAIEmbedderUnauthorized(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestOpenAIEmbedderServerError(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), "hello")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusInternalServerError, transportErr.Status)
}

func TestOpenAIEmbedderNetworkError(t *testing.T) {
	_, err := newTestEmbedder(t, "http://127.0.0.1:1").Embed(context.Background(), "hello")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Zero(t, transportErr.Status)
}

func TestOpenAIEmbedderWrongCount(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{},
		})
	})

	_, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestOpenAIEmbedderGetDimension(t *testing.T) {
	e, err := NewOpenAIEmbedder(map[string]interface{}{
		"api_key": "k",
		"model":   "Qwen/Qwen3-Embedding-8B",
	})
	require.NoError(t, err)

	dim, err := e.GetDimension()
	require.NoError(t, err)
	assert.Equal(t, 4096, dim)

	e, err = NewOpenAIEmbedder(map[string]interface{}{"api_key": "k", "model": "mystery"})
	require.NoError(t, err)
	_, err = e.GetDimension()
	assert.Error(t, err)
}

func TestModelScopeDefaults(t *testing.T) {
	_, err := NewModelScopeEmbedder(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	e, err := NewModelScopeEmbedder(map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)

	dim, err := e.GetDimension()
	require.NoError(t, err)
	assert.Equal(t, 4096, dim)
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"openai", "modelscope"} {
		factory, err := GetEmbedderFactory(name)
		require.NoError(t, err, name)
		assert.NotNil(t, factory)
	}

	_, err := GetEmbedderFactory("no-such-provider")
	assert.Error(t, err)

	assert.Contains(t, List(), "openai")
}
