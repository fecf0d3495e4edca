package rerank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/notesearch-mcp/internal/cache"
	"github.com/dshills/notesearch-mcp/pkg/types"
)

// fakeScorer implements Scorer with scripted responses.
type fakeScorer struct {
	mu        sync.Mutex
	available bool
	scores    map[string]float64 // by document text
	err       error
	calls     int
}

func (f *fakeScorer) Available(ctx context.Context) bool {
	return f.available
}

func (f *fakeScorer) ScoreRelevance(ctx context.Context, query, document string) (float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}
	if s, ok := f.scores[document]; ok {
		return s, nil
	}
	return 0, errors.New("unexpected document")
}

func (f *fakeScorer) Model() string { return "fake" }

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func makeResults(n int) []types.SearchResult {
	results := make([]types.SearchResult, n)
	for i := range results {
		results[i] = types.SearchResult{
			SourceKey: fmt.Sprintf("notes/n.md:%d", i),
			Preview:   fmt.Sprintf("doc-%d", i),
			Score:     1.0 - float64(i)*0.1,
		}
	}
	return results
}

func TestRerankGracefulDegradation(t *testing.T) {
	scorer := &fakeScorer{available: false}
	reranker := New(scorer, nil, DefaultOptions())

	in := makeResults(4)
	out := reranker.Rerank(context.Background(), "query", in)

	require.Len(t, out, len(in))
	for i, rr := range out {
		assert.Equal(t, in[i].SourceKey, rr.SourceKey, "order must be unchanged")
		assert.Equal(t, i, rr.RetrievalRank)
		assert.Equal(t, in[i].Score, rr.BlendedScore)
		assert.Nil(t, rr.OracleScore)
	}
	assert.Equal(t, 0, scorer.callCount())
}

func TestRerankPromotesOracleFavorite(t *testing.T) {
	// The oracle strongly prefers the retrieval-last document; with deep
	// ranks weighted toward the oracle it should move up.
	scorer := &fakeScorer{
		available: true,
		scores: map[string]float64{
			"doc-0": 0.0,
			"doc-1": 0.0,
			"doc-2": 1.0,
		},
	}
	reranker := New(scorer, nil, DefaultOptions())

	in := []types.SearchResult{
		{SourceKey: "a", Preview: "doc-0", Score: 0.5},
		{SourceKey: "b", Preview: "doc-1", Score: 0.45},
		{SourceKey: "c", Preview: "doc-2", Score: 0.4},
	}

	out := reranker.Rerank(context.Background(), "query", in)

	require.Len(t, out, 3)
	// Blends: a = 0.75*0.5 = 0.375; b = 0.75*0.45 = 0.3375;
	// c = 0.75*0.4 + 0.25*1.0 = 0.55.
	assert.Equal(t, "c", out[0].SourceKey)
	assert.Equal(t, "a", out[1].SourceKey)
	assert.Equal(t, "b", out[2].SourceKey)
	assert.InDelta(t, 0.55, out[0].BlendedScore, 1e-12)
	assert.Equal(t, out[0].BlendedScore, out[0].Score, "Score must mirror BlendedScore")
	assert.Equal(t, 2, out[0].RetrievalRank)
}

func TestRerankTopKBoundary(t *testing.T) {
	scorer := &fakeScorer{
		available: true,
		scores:    map[string]float64{"doc-0": 0.1, "doc-1": 0.9},
	}
	reranker := New(scorer, nil, Options{TopK: 2, BatchSize: 5, PositionBlend: true})

	in := makeResults(6)
	out := reranker.Rerank(context.Background(), "query", in)

	require.Len(t, out, len(in), "output length must match input regardless of topK")
	assert.Equal(t, 2, scorer.callCount(), "only topK candidates are scored")

	// The remainder retains input relative order and original scores.
	for i := 2; i < 6; i++ {
		assert.Equal(t, in[i].SourceKey, out[i].SourceKey)
		assert.Equal(t, i, out[i].RetrievalRank)
		assert.Equal(t, in[i].Score, out[i].BlendedScore)
	}
}

func TestRerankTopKLargerThanInput(t *testing.T) {
	scorer := &fakeScorer{
		available: true,
		scores:    map[string]float64{"doc-0": 0.5, "doc-1": 0.5},
	}
	reranker := New(scorer, nil, Options{TopK: 100, BatchSize: 5, PositionBlend: true})

	out := reranker.Rerank(context.Background(), "query", makeResults(2))
	assert.Len(t, out, 2)
}

func TestRerankScoringFailureDegradesToNeutral(t *testing.T) {
	scorer := &fakeScorer{available: true, err: errors.New("timeout")}
	reranker := New(scorer, nil, DefaultOptions())

	in := []types.SearchResult{{SourceKey: "a", Preview: "doc", Score: 0.8}}
	out := reranker.Rerank(context.Background(), "query", in)

	require.Len(t, out, 1)
	// 0.75*0.8 + 0.25*0.5
	assert.InDelta(t, 0.725, out[0].BlendedScore, 1e-12)
}

func TestRerankPlainAverageBlend(t *testing.T) {
	scorer := &fakeScorer{available: true, scores: map[string]float64{"doc-0": 0.2}}
	reranker := New(scorer, nil, Options{TopK: 10, BatchSize: 5, PositionBlend: false})

	in := []types.SearchResult{{SourceKey: "a", Preview: "doc-0", Score: 0.6}}
	out := reranker.Rerank(context.Background(), "query", in)

	require.Len(t, out, 1)
	assert.InDelta(t, 0.4, out[0].BlendedScore, 1e-12)
}

func TestRerankEmptyInput(t *testing.T) {
	reranker := New(&fakeScorer{available: true}, nil, DefaultOptions())
	assert.Empty(t, reranker.Rerank(context.Background(), "query", nil))
}

func TestRerankFallsBackToTitleText(t *testing.T) {
	scorer := &fakeScorer{
		available: true,
		scores:    map[string]float64{"A Title": 0.9},
	}
	reranker := New(scorer, nil, DefaultOptions())

	in := []types.SearchResult{{SourceKey: "a", Title: "A Title", Score: 0.5}}
	out := reranker.Rerank(context.Background(), "query", in)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].OracleScore)
	assert.Equal(t, 0.9, *out[0].OracleScore)
}

func TestRerankUsesScoreCache(t *testing.T) {
	mgr := cache.NewManager(cache.DefaultManagerOptions())
	defer mgr.Dispose()

	scorer := &fakeScorer{available: true, scores: map[string]float64{"doc-0": 0.7}}
	reranker := New(scorer, mgr, DefaultOptions())

	in := makeResults(1)
	_ = reranker.Rerank(context.Background(), "query", in)
	_ = reranker.Rerank(context.Background(), "query", in)

	assert.Equal(t, 1, scorer.callCount(), "second pass must hit the score cache")
}

func TestRerankDoesNotCacheFailures(t *testing.T) {
	mgr := cache.NewManager(cache.DefaultManagerOptions())
	defer mgr.Dispose()

	scorer := &fakeScorer{available: true, err: errors.New("down")}
	reranker := New(scorer, mgr, DefaultOptions())

	in := makeResults(1)
	_ = reranker.Rerank(context.Background(), "query", in)

	scorer.err = nil
	scorer.scores = map[string]float64{"doc-0": 0.9}
	out := reranker.Rerank(context.Background(), "query", in)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].OracleScore)
	assert.Equal(t, 0.9, *out[0].OracleScore, "recovered oracle must rescore")
}

func TestRerankWithProgress(t *testing.T) {
	scores := map[string]float64{}
	for i := 0; i < 7; i++ {
		scores[fmt.Sprintf("doc-%d", i)] = 0.5
	}
	scorer := &fakeScorer{available: true, scores: scores}
	reranker := New(scorer, nil, Options{TopK: 30, BatchSize: 3, PositionBlend: true})

	var mu sync.Mutex
	var reports [][2]int
	progress := func(completed, total int) {
		mu.Lock()
		reports = append(reports, [2]int{completed, total})
		mu.Unlock()
	}

	out := reranker.RerankWithProgress(context.Background(), "query", makeResults(7), progress)

	require.Len(t, out, 7)
	require.Len(t, reports, 7, "callback fires exactly once per document")
	for i, rep := range reports {
		assert.Equal(t, i+1, rep[0], "completed counts are sequential")
		assert.Equal(t, 7, rep[1])
	}
}
