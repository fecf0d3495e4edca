package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const (
	// CleanupInterval is how often the manager sweeps expired entries while
	// enabled.
	CleanupInterval = 5 * time.Minute

	// keyPrefixLength is the number of hex characters kept from the sha256
	// digest. Long enough for cache correctness at realistic corpus sizes.
	keyPrefixLength = 16

	keySeparator = "\x00"
)

// stableKey hashes the namespaced parts into a key that is deterministic
// across process runs.
func stableKey(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte(keySeparator))
		}
		_, _ = h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:keyPrefixLength]
}

// DocumentHash returns the stable hash of a document's full text. Identical
// content always maps to the same hash, across call sites and process runs.
func DocumentHash(text string) string {
	return stableKey("doc", text)
}

// ManagerOptions configure the three specialized caches.
type ManagerOptions struct {
	MaxEntries int           // per-cache capacity; reranker cache gets 2x
	TTL        time.Duration // shared absolute entry lifetime
}

// DefaultManagerOptions returns the standard cache configuration.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		MaxEntries: DefaultMaxEntries,
		TTL:        DefaultTTL,
	}
}

// Manager owns the three named pipeline caches and their shared periodic
// cleanup timer. Each cache is keyed independently, so clearing one
// specialization never evicts another.
//
// The timer is a live resource: callers must Dispose the manager when done.
type Manager struct {
	embeddings   *Cache[[]float32]
	expansions   *Cache[[]string]
	rerankScores *Cache[float64]

	mu      sync.Mutex
	enabled bool
	stop    chan struct{}
}

// NewManager creates a manager and starts its periodic cleanup timer.
func NewManager(opts ManagerOptions) *Manager {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	m := &Manager{
		embeddings: New[[]float32](Options{MaxEntries: opts.MaxEntries, TTL: opts.TTL}),
		expansions: New[[]string](Options{MaxEntries: opts.MaxEntries, TTL: opts.TTL}),
		// Per-document-per-query entries proliferate faster.
		rerankScores: New[float64](Options{MaxEntries: opts.MaxEntries * 2, TTL: opts.TTL}),
		enabled:      true,
	}
	m.startCleanupLocked()
	return m
}

// GetEmbedding returns the cached embedding vector for a query under the
// given model.
func (m *Manager) GetEmbedding(model, query string) ([]float32, bool) {
	return m.embeddings.Get(stableKey("emb", model, query))
}

// SetEmbedding caches an embedding vector for a query under the given model.
func (m *Manager) SetEmbedding(model, query string, vector []float32) {
	m.embeddings.Set(stableKey("emb", model, query), vector)
}

// GetExpansion returns the cached expansion queries produced by method for
// the given query.
func (m *Manager) GetExpansion(method, query string) ([]string, bool) {
	return m.expansions.Get(stableKey("exp", method, query))
}

// SetExpansion caches the expansion queries produced by method.
func (m *Manager) SetExpansion(method, query string, expanded []string) {
	m.expansions.Set(stableKey("exp", method, query), expanded)
}

// GetRerankScore returns the cached oracle relevance score for a
// query/document pair. The document is identified by DocumentHash of its
// full text.
func (m *Manager) GetRerankScore(query, documentText string) (float64, bool) {
	return m.rerankScores.Get(stableKey("rer", query, DocumentHash(documentText)))
}

// SetRerankScore caches the oracle relevance score for a query/document
// pair.
func (m *Manager) SetRerankScore(query, documentText string, score float64) {
	m.rerankScores.Set(stableKey("rer", query, DocumentHash(documentText)), score)
}

// ManagerStats holds one sub-report per specialization.
type ManagerStats struct {
	Embeddings   Stats `json:"embeddings"`
	Expansions   Stats `json:"expansions"`
	RerankScores Stats `json:"rerank_scores"`
}

// GetStats returns per-specialization counters.
func (m *Manager) GetStats() ManagerStats {
	return ManagerStats{
		Embeddings:   m.embeddings.GetStats(),
		Expansions:   m.expansions.GetStats(),
		RerankScores: m.rerankScores.GetStats(),
	}
}

// Clear drops every entry in all three caches.
func (m *Manager) Clear() {
	m.embeddings.Clear()
	m.expansions.Clear()
	m.rerankScores.Clear()
}

// SetEnabled propagates to all three caches and manages the shared cleanup
// timer. Disabling clears every cache and halts the timer.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enabled == enabled {
		return
	}
	m.enabled = enabled

	m.embeddings.SetEnabled(enabled)
	m.expansions.SetEnabled(enabled)
	m.rerankScores.SetEnabled(enabled)

	if enabled {
		m.startCleanupLocked()
	} else {
		m.stopCleanupLocked()
	}
}

// Cleanup sweeps expired entries across all three caches, returning the
// total removed.
func (m *Manager) Cleanup() int {
	return m.embeddings.Cleanup() + m.expansions.Cleanup() + m.rerankScores.Cleanup()
}

// Dispose stops the cleanup timer and clears everything. The manager must
// not be used afterward.
func (m *Manager) Dispose() {
	m.mu.Lock()
	m.enabled = false
	m.stopCleanupLocked()
	m.mu.Unlock()

	m.Clear()
}

func (m *Manager) startCleanupLocked() {
	if m.stop != nil {
		return
	}
	stop := make(chan struct{})
	m.stop = stop

	go func() {
		ticker := time.NewTicker(CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

func (m *Manager) stopCleanupLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}
