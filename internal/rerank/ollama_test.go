package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracleServer serves the model-listing and generate endpoints.
func fakeOracleServer(t *testing.T, models []string, generateResponse string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		listing := struct {
			Models []model `json:"models"`
		}{}
		for _, m := range models {
			listing.Models = append(listing.Models, model{Name: m})
		}
		_ = json.NewEncoder(w).Encode(listing)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": generateResponse})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOracleAvailableWhenModelListed(t *testing.T) {
	srv := fakeOracleServer(t, []string{"llama3.2:latest"}, "7")
	client := NewOracleClient(OracleConfig{BaseURL: srv.URL, Model: "llama3.2"})

	assert.True(t, client.Available(context.Background()))
}

func TestOracleUnavailableWhenModelAbsent(t *testing.T) {
	srv := fakeOracleServer(t, []string{"some-other-model"}, "7")
	client := NewOracleClient(OracleConfig{BaseURL: srv.URL, Model: "llama3.2"})

	assert.False(t, client.Available(context.Background()))
}

func TestOracleAvailabilityCachedUntilReset(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{{"name": "llama3.2"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewOracleClient(OracleConfig{BaseURL: srv.URL})

	ctx := context.Background()
	assert.True(t, client.Available(ctx))
	assert.True(t, client.Available(ctx))
	assert.Equal(t, 1, calls, "resolved state must be cached")

	client.ResetAvailability()
	assert.True(t, client.Available(ctx))
	assert.Equal(t, 2, calls, "reset must force a re-probe")
}

func TestOracleUnavailableWhenServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewOracleClient(OracleConfig{BaseURL: srv.URL, ProbeTimeout: 200 * time.Millisecond})

	assert.False(t, client.Available(context.Background()))
}

func TestOracleProbeTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewOracleClient(OracleConfig{BaseURL: srv.URL, ProbeTimeout: 50 * time.Millisecond})

	start := time.Now()
	available := client.Available(context.Background())

	assert.False(t, available)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "probe must respect its own timeout")
}

func TestScoreRelevance(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected float64
	}{
		{"plain integer", "7", 0.7},
		{"decimal rating", "8.5", 0.85},
		{"rating embedded in prose", "I would rate this 6 out of 10.", 0.6},
		{"over-range clamps", "15", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeOracleServer(t, []string{"llama3.2"}, tt.reply)
			client := NewOracleClient(OracleConfig{BaseURL: srv.URL})

			score, err := client.ScoreRelevance(context.Background(), "query", "document")
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, score, 1e-12)
		})
	}
}

func TestScoreRelevanceUnparseableReply(t *testing.T) {
	srv := fakeOracleServer(t, []string{"llama3.2"}, "I cannot rate this document.")
	client := NewOracleClient(OracleConfig{BaseURL: srv.URL})

	_, err := client.ScoreRelevance(context.Background(), "query", "document")
	assert.ErrorIs(t, err, ErrUnparseableScore)
}

func TestScoreRelevanceServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewOracleClient(OracleConfig{BaseURL: srv.URL})

	_, err := client.ScoreRelevance(context.Background(), "query", "document")
	assert.Error(t, err)
}

func TestGenerateSendsExpectedPayload(t *testing.T) {
	var captured map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewOracleClient(OracleConfig{BaseURL: srv.URL, Model: "llama3.2"})

	reply, err := client.Generate(context.Background(), "hello", GenerateOptions{Temperature: 0.1, MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)

	assert.Equal(t, "llama3.2", captured["model"])
	assert.Equal(t, "hello", captured["prompt"])
	assert.Equal(t, false, captured["stream"])
	opts, ok := captured["options"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 0.1, opts["temperature"].(float64), 1e-9)
	assert.EqualValues(t, 10, opts["num_predict"])
}

func TestScoreRelevanceTruncatesLongDocuments(t *testing.T) {
	var prompt string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		prompt, _ = body["prompt"].(string)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "5"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewOracleClient(OracleConfig{BaseURL: srv.URL})

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}

	_, err := client.ScoreRelevance(context.Background(), "query", string(long))
	require.NoError(t, err)
	assert.Less(t, len(prompt), 2000, "document must be truncated before prompting")
}

func TestParseRating(t *testing.T) {
	rating, err := parseRating("Rating: 9")
	require.NoError(t, err)
	assert.Equal(t, 9.0, rating)

	_, err = parseRating("no numbers here")
	assert.ErrorIs(t, err, ErrUnparseableScore)
}
