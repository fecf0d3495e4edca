package rerank

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/notesearch-mcp/internal/cache"
	"github.com/dshills/notesearch-mcp/internal/fusion"
	"github.com/dshills/notesearch-mcp/pkg/types"
)

const (
	// DefaultTopK is how many leading results are candidates for reorder.
	DefaultTopK = 30

	// DefaultBatchSize bounds the number of simultaneous in-flight oracle
	// calls.
	DefaultBatchSize = 5

	// NeutralScore is the fallback relevance when a single scoring call
	// fails: "don't know, assume average".
	NeutralScore = 0.5
)

// Scorer is the oracle contract the reranker consumes. OracleClient is the
// production implementation.
type Scorer interface {
	// Available reports whether the oracle can serve scoring calls.
	Available(ctx context.Context) bool

	// ScoreRelevance rates a document's relevance to a query in [0, 1].
	ScoreRelevance(ctx context.Context, query, document string) (float64, error)

	// Model returns the scoring model name.
	Model() string
}

// ProgressFunc receives (completed, total) after each scored document, in
// completion order.
type ProgressFunc func(completed, total int)

// Options tune a rerank pass.
type Options struct {
	TopK          int  // <= 0 defaults to DefaultTopK
	BatchSize     int  // <= 0 defaults to DefaultBatchSize
	PositionBlend bool // blend by rank band instead of plain averaging
}

// DefaultOptions returns the standard rerank configuration.
func DefaultOptions() Options {
	return Options{
		TopK:          DefaultTopK,
		BatchSize:     DefaultBatchSize,
		PositionBlend: true,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return opts
}

// Reranker re-orders retrieval results by blending oracle relevance scores
// into retrieval scores. The cache manager is optional; when present,
// per-document scores are memoized across calls.
type Reranker struct {
	scorer Scorer
	caches *cache.Manager
	opts   Options
}

// New creates a reranker. caches may be nil.
func New(scorer Scorer, caches *cache.Manager, opts Options) *Reranker {
	return &Reranker{
		scorer: scorer,
		caches: caches,
		opts:   normalizeOptions(opts),
	}
}

// Rerank reorders the first TopK results by blended oracle relevance and
// appends the remainder untouched. The output always has the same length as
// the input. When the oracle is unavailable the input passes through in
// order with BlendedScore equal to Score.
func (r *Reranker) Rerank(ctx context.Context, query string, results []types.SearchResult) []types.RerankedResult {
	return r.rerank(ctx, query, results, nil)
}

// RerankWithProgress is Rerank plus a progress callback fired exactly once
// per scored document. Completion order may differ from input order because
// documents within a batch are scored concurrently.
func (r *Reranker) RerankWithProgress(ctx context.Context, query string, results []types.SearchResult, progress ProgressFunc) []types.RerankedResult {
	return r.rerank(ctx, query, results, progress)
}

func (r *Reranker) rerank(ctx context.Context, query string, results []types.SearchResult, progress ProgressFunc) []types.RerankedResult {
	if len(results) == 0 {
		return []types.RerankedResult{}
	}

	if r.scorer == nil || !r.scorer.Available(ctx) {
		return passthrough(results)
	}

	topK := r.opts.TopK
	if topK > len(results) {
		topK = len(results)
	}
	candidates := results[:topK]

	oracleScores := r.scoreDocuments(ctx, query, candidates, progress)

	reranked := make([]types.RerankedResult, 0, len(results))
	for idx, res := range candidates {
		score := oracleScores[idx]
		var blended float64
		if r.opts.PositionBlend {
			blended = fusion.Blend(res.Score, score, idx)
		} else {
			blended = (res.Score + score) / 2.0
		}

		rr := types.RerankedResult{
			SearchResult:  res,
			OracleScore:   &score,
			RetrievalRank: idx,
			BlendedScore:  blended,
		}
		rr.Score = blended
		reranked = append(reranked, rr)
	}

	// Stable: candidates with equal blended scores keep retrieval order.
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].BlendedScore > reranked[j].BlendedScore
	})

	// The remainder beyond TopK passes through in original order.
	for idx := topK; idx < len(results); idx++ {
		rr := types.RerankedResult{
			SearchResult:  results[idx],
			RetrievalRank: idx,
			BlendedScore:  results[idx].Score,
		}
		reranked = append(reranked, rr)
	}

	return reranked
}

// passthrough is the graceful-degradation path: unchanged order, original
// scores.
func passthrough(results []types.SearchResult) []types.RerankedResult {
	out := make([]types.RerankedResult, len(results))
	for i, res := range results {
		out[i] = types.RerankedResult{
			SearchResult:  res,
			RetrievalRank: i,
			BlendedScore:  res.Score,
		}
	}
	return out
}

// scoreDocuments scores every candidate against the query. Documents within
// a batch are scored concurrently; batches run sequentially, bounding
// in-flight oracle calls to the batch size. Each result slot is written by
// exactly one goroutine.
func (r *Reranker) scoreDocuments(ctx context.Context, query string, candidates []types.SearchResult, progress ProgressFunc) []float64 {
	scores := make([]float64, len(candidates))
	total := len(candidates)

	var progressMu sync.Mutex
	completed := 0
	report := func() {
		if progress == nil {
			return
		}
		progressMu.Lock()
		completed++
		done := completed
		progressMu.Unlock()
		progress(done, total)
	}

	for start := 0; start < len(candidates); start += r.opts.BatchSize {
		end := start + r.opts.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		g, gctx := errgroup.WithContext(ctx)
		for idx := start; idx < end; idx++ {
			g.Go(func() error {
				scores[idx] = r.scoreOne(gctx, query, candidates[idx])
				report()
				return nil
			})
		}
		// Goroutines never return errors; scoring failures degrade to the
		// neutral score instead.
		_ = g.Wait()
	}

	return scores
}

// scoreOne scores a single candidate, consulting the reranker-score cache
// first and degrading to NeutralScore on any oracle failure. Failed calls
// are not cached so a recovered oracle can rescore them.
func (r *Reranker) scoreOne(ctx context.Context, query string, res types.SearchResult) float64 {
	text := scoreableText(res)

	if r.caches != nil {
		if cached, ok := r.caches.GetRerankScore(query, text); ok {
			return cached
		}
	}

	score, err := r.scorer.ScoreRelevance(ctx, query, text)
	if err != nil {
		return NeutralScore
	}

	if r.caches != nil {
		r.caches.SetRerankScore(query, text, score)
	}
	return score
}

// scoreableText picks the candidate text presented to the oracle: prefer
// the preview snippet, fall back to the title, then empty.
func scoreableText(res types.SearchResult) string {
	if res.Preview != "" {
		return res.Preview
	}
	return res.Title
}
