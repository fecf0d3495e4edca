package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllamaEmbeddings serves the Ollama /api/embeddings endpoint and
// records the prompts it received.
func fakeOllamaEmbeddings(t *testing.T, dim int, prompts *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Model)
		if prompts != nil {
			*prompts = append(*prompts, req.Prompt)
		}

		vec := make([]float32, dim)
		for i := range vec {
			vec[i] = float32(len(req.Prompt)) / float32(i+1)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": vec})
	}))
}

func TestOllamaProviderGenerateEmbedding(t *testing.T) {
	var prompts []string
	srv := fakeOllamaEmbeddings(t, 8, &prompts)
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	defer func() {
		_ = provider.Close()
	}()

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "gap fill setup"})
	require.NoError(t, err)

	assert.Equal(t, 8, emb.Dimension)
	assert.Len(t, emb.Vector, 8)
	assert.Equal(t, ProviderOllama, emb.Provider)
	assert.Equal(t, "test-model", emb.Model)
	assert.Equal(t, []string{"gap fill setup"}, prompts)
}

func TestOllamaProviderModelOverride(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "")
	_, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{
		Text:  "hello",
		Model: "override-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "override-model", gotModel)
}

func TestOllamaProviderDefaults(t *testing.T) {
	provider := NewOllamaProvider("", "")
	assert.Equal(t, DefaultOllamaModel, provider.Model())
	assert.Equal(t, OllamaDimension, provider.Dimension())
	assert.Equal(t, ProviderOllama, provider.Provider())
}

func TestOllamaProviderBatchSequential(t *testing.T) {
	var prompts []string
	srv := fakeOllamaEmbeddings(t, 4, &prompts)
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"first", "second", "third"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Embeddings, 3)
	assert.Equal(t, []string{"first", "second", "third"}, prompts,
		"batch should embed each text in order")
	assert.Equal(t, ProviderOllama, resp.Provider)
}

func TestOllamaProviderBatchTooLarge(t *testing.T) {
	provider := NewOllamaProvider("http://localhost:1", "test-model")

	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "text"
	}

	_, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestOllamaProviderRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float32{1.0}})
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "retry me"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load(), "should succeed on third attempt")
	assert.Len(t, emb.Vector, 1)
}

func TestOllamaProviderExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	_, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "doomed"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestOllamaProviderEmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float32{}})
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	_, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "empty"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")

	_, err := NewOpenAIProvider("")
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestOpenAIProviderDefaults(t *testing.T) {
	provider, err := NewOpenAIProvider("sk-test")
	require.NoError(t, err)

	assert.Equal(t, DefaultOpenAIModel, provider.Model())
	assert.Equal(t, OpenAIDimension, provider.Dimension())
	assert.Equal(t, ProviderOpenAI, provider.Provider())
}

func TestLocalProviderInterface(t *testing.T) {
	// Compile-time and runtime checks that all providers satisfy Embedder.
	var _ Embedder = NewLocalProvider()
	var _ Embedder = NewOllamaProvider("", "")

	provider := NewLocalProvider()
	assert.Equal(t, "local-embeddings", provider.Model())
	assert.NoError(t, provider.Close())
}
