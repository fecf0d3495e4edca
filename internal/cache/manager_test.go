package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHashStable(t *testing.T) {
	a := DocumentHash("the same document text")
	b := DocumentHash("the same document text")
	c := DocumentHash("a different document")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, keyPrefixLength)
}

func TestStableKeySeparatesParts(t *testing.T) {
	// Concatenation ambiguity must not collide keys.
	assert.NotEqual(t, stableKey("ab", "c"), stableKey("a", "bc"))
}

func TestManagerSpecializationsAreIndependent(t *testing.T) {
	m := NewManager(DefaultManagerOptions())
	defer m.Dispose()

	m.SetEmbedding("model-a", "query", []float32{1, 2, 3})
	m.SetExpansion("llm", "query", []string{"q1", "q2"})
	m.SetRerankScore("query", "document body", 0.8)

	vec, ok := m.GetEmbedding("model-a", "query")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	exp, ok := m.GetExpansion("llm", "query")
	require.True(t, ok)
	assert.Equal(t, []string{"q1", "q2"}, exp)

	score, ok := m.GetRerankScore("query", "document body")
	require.True(t, ok)
	assert.Equal(t, 0.8, score)

	// Clearing one cache must not evict the others.
	m.expansions.Clear()
	_, ok = m.GetExpansion("llm", "query")
	assert.False(t, ok)
	_, ok = m.GetEmbedding("model-a", "query")
	assert.True(t, ok)
	_, ok = m.GetRerankScore("query", "document body")
	assert.True(t, ok)
}

func TestManagerKeysIncludeAllParts(t *testing.T) {
	m := NewManager(DefaultManagerOptions())
	defer m.Dispose()

	m.SetEmbedding("model-a", "query", []float32{1})

	_, ok := m.GetEmbedding("model-b", "query")
	assert.False(t, ok, "a different model must miss")
	_, ok = m.GetEmbedding("model-a", "other query")
	assert.False(t, ok, "a different query must miss")
}

func TestManagerStats(t *testing.T) {
	m := NewManager(DefaultManagerOptions())
	defer m.Dispose()

	m.SetEmbedding("m", "q", []float32{1})
	_, _ = m.GetEmbedding("m", "q")
	_, _ = m.GetRerankScore("q", "doc")

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.Embeddings.Hits)
	assert.Equal(t, int64(1), stats.RerankScores.Misses)
	assert.Equal(t, int64(0), stats.Expansions.Hits)
}

func TestManagerClear(t *testing.T) {
	m := NewManager(DefaultManagerOptions())
	defer m.Dispose()

	m.SetEmbedding("m", "q", []float32{1})
	m.SetExpansion("prf", "q", []string{"x"})
	m.SetRerankScore("q", "doc", 0.5)

	m.Clear()

	stats := m.GetStats()
	assert.Equal(t, 0, stats.Embeddings.Size)
	assert.Equal(t, 0, stats.Expansions.Size)
	assert.Equal(t, 0, stats.RerankScores.Size)
}

func TestManagerSetEnabled(t *testing.T) {
	m := NewManager(DefaultManagerOptions())
	defer m.Dispose()

	m.SetEmbedding("m", "q", []float32{1})
	m.SetEnabled(false)

	_, ok := m.GetEmbedding("m", "q")
	assert.False(t, ok)

	m.SetEmbedding("m", "q2", []float32{2})
	_, ok = m.GetEmbedding("m", "q2")
	assert.False(t, ok, "inserts while disabled are dropped")

	m.SetEnabled(true)
	m.SetEmbedding("m", "q3", []float32{3})
	_, ok = m.GetEmbedding("m", "q3")
	assert.True(t, ok)
}

func TestManagerRerankCacheIsDoubleSized(t *testing.T) {
	m := NewManager(ManagerOptions{MaxEntries: 10})
	defer m.Dispose()

	assert.Equal(t, 20, m.rerankScores.maxEntries)
	assert.Equal(t, 10, m.embeddings.maxEntries)
}

func TestManagerDisposeIsIdempotentEnough(t *testing.T) {
	m := NewManager(DefaultManagerOptions())

	m.SetEmbedding("m", "q", []float32{1})
	m.Dispose()

	_, ok := m.GetEmbedding("m", "q")
	assert.False(t, ok)
}
