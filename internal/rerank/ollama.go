package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the relevance-scoring model.
	DefaultModel = "llama3.2"

	// DefaultProbeTimeout bounds the availability probe so it never stalls
	// a rerank call.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultScoreTimeout bounds a single relevance-scoring call.
	DefaultScoreTimeout = 30 * time.Second

	// maxDocumentChars truncates documents sent to the oracle, bounding
	// prompt size.
	maxDocumentChars = 1000

	// scoringTemperature keeps ratings consistent across calls.
	scoringTemperature = 0.1

	// scoringMaxTokens is small: only a short numeric answer is needed.
	scoringMaxTokens = 10
)

// Common errors
var (
	ErrOracleUnavailable = errors.New("relevance oracle unavailable")
	ErrEmptyResponse     = errors.New("oracle returned empty response")
	ErrUnparseableScore  = errors.New("no numeric rating in oracle response")
)

// availability is the resolved probe state, cached per client instance.
type availability int

const (
	availabilityUnknown availability = iota
	availabilityAvailable
	availabilityUnavailable
)

// OracleConfig configures the oracle HTTP client.
type OracleConfig struct {
	BaseURL      string
	Model        string
	ProbeTimeout time.Duration
	ScoreTimeout time.Duration
}

// OracleClient talks to an Ollama-style HTTP endpoint for relevance scoring
// and text generation. Safe for concurrent use.
type OracleClient struct {
	baseURL      string
	model        string
	probeTimeout time.Duration
	httpClient   *http.Client

	mu    sync.Mutex
	state availability
}

// NewOracleClient creates an oracle client. Zero-valued config fields fall
// back to defaults.
func NewOracleClient(cfg OracleConfig) *OracleClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.ScoreTimeout <= 0 {
		cfg.ScoreTimeout = DefaultScoreTimeout
	}

	return &OracleClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		probeTimeout: cfg.ProbeTimeout,
		httpClient: &http.Client{
			Timeout: cfg.ScoreTimeout,
		},
	}
}

// Model returns the configured scoring model name.
func (c *OracleClient) Model() string {
	return c.model
}

// Available reports whether the oracle is reachable and serves the
// configured model. The first call probes the model-listing endpoint; the
// resolved state is cached for the life of the client.
func (c *OracleClient) Available(ctx context.Context) bool {
	c.mu.Lock()
	if c.state != availabilityUnknown {
		resolved := c.state
		c.mu.Unlock()
		return resolved == availabilityAvailable
	}
	c.mu.Unlock()

	resolved := availabilityUnavailable
	if c.probe(ctx) {
		resolved = availabilityAvailable
	}

	c.mu.Lock()
	c.state = resolved
	c.mu.Unlock()

	return resolved == availabilityAvailable
}

// ResetAvailability forces a re-probe on the next Available call.
func (c *OracleClient) ResetAvailability() {
	c.mu.Lock()
	c.state = availabilityUnknown
	c.mu.Unlock()
}

// probe checks the model-listing endpoint for the configured model.
func (c *OracleClient) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var listing struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return false
	}

	for _, m := range listing.Models {
		// Ollama tags models as "name:tag"; match either form.
		if m.Name == c.model || strings.SplitN(m.Name, ":", 2)[0] == c.model {
			return true
		}
	}
	return false
}

// GenerateOptions tune a single generate call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generate sends a prompt to the generate endpoint and returns the raw
// response text.
func (c *OracleClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	reqBody := map[string]interface{}{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("oracle error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if strings.TrimSpace(apiResp.Response) == "" {
		return "", ErrEmptyResponse
	}

	return apiResp.Response, nil
}

// ScoreRelevance rates how relevant a document is to a query, returning a
// score in [0, 1]. The document is truncated to bound prompt size. Errors
// are returned so the caller can decide whether to cache; the reranker maps
// them to the neutral score.
func (c *OracleClient) ScoreRelevance(ctx context.Context, query, document string) (float64, error) {
	if len(document) > maxDocumentChars {
		document = document[:maxDocumentChars]
	}

	prompt := fmt.Sprintf(
		"Rate the relevance of the following document to the query on a scale of 0 to 10.\n"+
			"Respond with only the number.\n\nQuery: %s\n\nDocument: %s\n\nRating:",
		query, document)

	reply, err := c.Generate(ctx, prompt, GenerateOptions{
		Temperature: scoringTemperature,
		MaxTokens:   scoringMaxTokens,
	})
	if err != nil {
		return 0, err
	}

	rating, err := parseRating(reply)
	if err != nil {
		return 0, err
	}

	return rating / 10.0, nil
}

var ratingPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// parseRating extracts the first number from the oracle's reply and clamps
// it into the 0-10 rating range.
func parseRating(reply string) (float64, error) {
	match := ratingPattern.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableScore, reply)
	}

	rating, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableScore, reply)
	}

	if rating < 0 {
		rating = 0
	}
	if rating > 10 {
		rating = 10
	}
	return rating, nil
}
