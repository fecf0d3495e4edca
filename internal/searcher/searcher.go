package searcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/notesearch-mcp/internal/cache"
	"github.com/dshills/notesearch-mcp/internal/embedder"
	"github.com/dshills/notesearch-mcp/internal/fusion"
	"github.com/dshills/notesearch-mcp/internal/rerank"
	"github.com/dshills/notesearch-mcp/internal/storage"
	"github.com/dshills/notesearch-mcp/pkg/types"
)

var (
	// ErrNoBackends is returned when no retrieval backend is wired in
	ErrNoBackends = errors.New("no search backends configured")
	// ErrEmptyQuery is returned for blank queries
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// SearchMode defines how search is performed
type SearchMode string

const (
	ModeFast     SearchMode = "fast"     // Lexical only
	ModeSemantic SearchMode = "semantic" // Vector only
	ModeHybrid   SearchMode = "hybrid"   // Lexical + vector, fused
	ModeAdvanced SearchMode = "advanced" // Expansion + hybrid + rerank
)

const (
	// DefaultLimit is the result count when none is requested
	DefaultLimit = 10
	// MaxLimit caps the result count
	MaxLimit = 100
	// candidateMultiplier over-fetches per backend so fusion has headroom
	candidateMultiplier = 2
)

// LexicalSearchFunc retrieves results from a lexical (full-text) backend.
// Scores follow the signed-relevance convention: larger magnitude is better.
type LexicalSearchFunc func(ctx context.Context, query string, limit int) ([]types.SearchResult, error)

// VectorSearchFunc retrieves results from a vector backend given a query
// embedding. Results carry cosine distance; lower is closer.
type VectorSearchFunc func(ctx context.Context, vector []float32, limit int) ([]types.SearchResult, error)

// Oracle is the LLM endpoint used for reranking and query expansion.
// *rerank.OracleClient satisfies it.
type Oracle interface {
	rerank.Scorer
	Generate(ctx context.Context, prompt string, opts rerank.GenerateOptions) (string, error)
}

// Config wires the orchestrator's backends and pipeline components.
// Lexical and Vector are both optional, but at least one must be set.
type Config struct {
	Lexical  LexicalSearchFunc
	Vector   VectorSearchFunc
	Embedder embedder.Embedder // Required for the vector path
	Oracle   Oracle            // Optional: enables reranking and LLM expansion
	Caches   *cache.Manager    // Optional: created with defaults when nil

	Fusion fusion.Options
	Rerank rerank.Options

	LexicalWeight float64 // Default 1.0
	VectorWeight  float64 // Default 1.0
}

// Options control a single search call
type Options struct {
	Mode  SearchMode
	Limit int
}

// Response contains search results and call metadata
type Response struct {
	Results         []types.SearchResult
	TotalResults    int
	Mode            SearchMode // Effective mode actually executed
	RequestedMode   SearchMode
	Duration        time.Duration
	ExpandedQueries []string // Non-original variants used (advanced mode)
	Reranked        bool
	LexicalHits     int
	VectorHits      int
}

// Capabilities reports what the current wiring can do
type Capabilities struct {
	Lexical      bool `json:"lexical"`
	Vector       bool `json:"vector"`
	ExpansionPRF bool `json:"expansion_prf"`
	ExpansionLLM bool `json:"expansion_llm"`
	Reranking    bool `json:"reranking"`
}

// Orchestrator ties retrieval backends, fusion, reranking, and caching
// into a single search entry point
type Orchestrator struct {
	cfg      Config
	engine   *fusion.Engine
	reranker *rerank.Reranker
	caches   *cache.Manager
}

// New creates an orchestrator from explicit wiring. At least one of
// Lexical or Vector must be configured.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Lexical == nil && cfg.Vector == nil {
		return nil, ErrNoBackends
	}

	if cfg.LexicalWeight <= 0 {
		cfg.LexicalWeight = 1.0
	}
	if cfg.VectorWeight <= 0 {
		cfg.VectorWeight = 1.0
	}

	caches := cfg.Caches
	if caches == nil {
		caches = cache.NewManager(cache.DefaultManagerOptions())
	}

	o := &Orchestrator{
		cfg:    cfg,
		engine: fusion.NewEngine(cfg.Fusion),
		caches: caches,
	}

	if cfg.Oracle != nil {
		o.reranker = rerank.New(cfg.Oracle, caches, cfg.Rerank)
	}

	return o, nil
}

// NewDefault creates an orchestrator with default fusion, rerank, and
// cache settings. Convenience wrapper over New for hosts that don't
// need to tune the pipeline.
func NewDefault(lexical LexicalSearchFunc, vector VectorSearchFunc, emb embedder.Embedder, oracle Oracle) (*Orchestrator, error) {
	return New(Config{
		Lexical:  lexical,
		Vector:   vector,
		Embedder: emb,
		Oracle:   oracle,
		Fusion:   fusion.DefaultOptions(),
		Rerank:   rerank.DefaultOptions(),
	})
}

// Caches exposes the cache manager for host-level stats and clearing
func (o *Orchestrator) Caches() *cache.Manager {
	return o.caches
}

// Capabilities reports what the current wiring supports. LLM expansion
// and reranking additionally require the oracle to be reachable, so
// this may probe the oracle (cached after the first call).
func (o *Orchestrator) Capabilities(ctx context.Context) Capabilities {
	oracleUp := o.cfg.Oracle != nil && o.cfg.Oracle.Available(ctx)
	return Capabilities{
		Lexical:      o.cfg.Lexical != nil,
		Vector:       o.canVector(),
		ExpansionPRF: o.cfg.Lexical != nil,
		ExpansionLLM: oracleUp,
		Reranking:    oracleUp,
	}
}

// canVector reports whether the vector path is fully wired
func (o *Orchestrator) canVector() bool {
	return o.cfg.Vector != nil && o.cfg.Embedder != nil
}

// EffectiveMode downgrades the requested mode to what the wiring can
// actually serve. Never fails: hybrid and semantic fall back to fast
// when the vector path is missing, and fast falls back to semantic
// when only the vector path is wired.
func (o *Orchestrator) EffectiveMode(requested SearchMode) SearchMode {
	if requested == "" {
		requested = ModeHybrid
	}

	switch requested {
	case ModeFast:
		if o.cfg.Lexical == nil {
			return ModeSemantic
		}
		return ModeFast
	case ModeSemantic:
		if !o.canVector() {
			return ModeFast
		}
		return ModeSemantic
	case ModeHybrid, ModeAdvanced:
		if !o.canVector() {
			if requested == ModeAdvanced {
				// Advanced still expands and reranks over the lexical path
				return ModeAdvanced
			}
			return ModeFast
		}
		if o.cfg.Lexical == nil && requested == ModeHybrid {
			return ModeSemantic
		}
		return requested
	default:
		return ModeHybrid
	}
}

// Search runs a query through the configured pipeline
func (o *Orchestrator) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	if o.cfg.Lexical == nil && o.cfg.Vector == nil {
		return nil, ErrNoBackends
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	mode := o.EffectiveMode(opts.Mode)

	var resp *Response
	var err error
	switch mode {
	case ModeFast:
		resp, err = o.fastSearch(ctx, query, limit)
	case ModeSemantic:
		resp, err = o.semanticSearch(ctx, query, limit)
	case ModeHybrid:
		resp, err = o.hybridSearch(ctx, query, limit)
	case ModeAdvanced:
		resp, err = o.advancedSearch(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}

	resp.Mode = mode
	resp.RequestedMode = opts.Mode
	resp.Duration = time.Since(start)
	return resp, nil
}

// fastSearch runs the lexical backend only
func (o *Orchestrator) fastSearch(ctx context.Context, query string, limit int) (*Response, error) {
	hits, err := o.cfg.Lexical(ctx, query, limit*candidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	fused := o.engine.Fuse([]types.RetrievalSource{{
		Results:         hits,
		Weight:          o.cfg.LexicalWeight,
		SourceType:      types.SourceLexical,
		IsOriginalQuery: true,
	}})

	return &Response{
		Results:      truncate(fused, limit),
		TotalResults: min(len(fused), limit),
		LexicalHits:  len(hits),
	}, nil
}

// semanticSearch runs the vector backend only
func (o *Orchestrator) semanticSearch(ctx context.Context, query string, limit int) (*Response, error) {
	hits, err := o.vectorHits(ctx, query, limit*candidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	fused := o.engine.Fuse([]types.RetrievalSource{{
		Results:         hits,
		Weight:          o.cfg.VectorWeight,
		SourceType:      types.SourceVector,
		IsOriginalQuery: true,
	}})

	return &Response{
		Results:      truncate(fused, limit),
		TotalResults: min(len(fused), limit),
		VectorHits:   len(hits),
	}, nil
}

// backendResult carries one backend's output across a goroutine boundary
type backendResult struct {
	hits []types.SearchResult
	err  error
}

// hybridSearch runs both backends concurrently and fuses the results.
// One backend may fail as long as the other succeeds.
func (o *Orchestrator) hybridSearch(ctx context.Context, query string, limit int) (*Response, error) {
	lexChan := make(chan backendResult, 1)
	vecChan := make(chan backendResult, 1)

	go func() {
		hits, err := o.cfg.Lexical(ctx, query, limit*candidateMultiplier)
		select {
		case lexChan <- backendResult{hits: hits, err: err}:
		case <-ctx.Done():
		}
	}()
	go func() {
		hits, err := o.vectorHits(ctx, query, limit*candidateMultiplier)
		select {
		case vecChan <- backendResult{hits: hits, err: err}:
		case <-ctx.Done():
		}
	}()

	var lexRes, vecRes backendResult
	var lexDone, vecDone bool
	for !lexDone || !vecDone {
		select {
		case lexRes = <-lexChan:
			lexDone = true
		case vecRes = <-vecChan:
			vecDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if lexRes.err != nil && vecRes.err != nil {
		return nil, fmt.Errorf("both searches failed: lexical=%w, vector=%v", lexRes.err, vecRes.err)
	}

	sources := make([]types.RetrievalSource, 0, 2)
	if lexRes.err == nil && len(lexRes.hits) > 0 {
		sources = append(sources, types.RetrievalSource{
			Results:         lexRes.hits,
			Weight:          o.cfg.LexicalWeight,
			SourceType:      types.SourceLexical,
			IsOriginalQuery: true,
		})
	}
	if vecRes.err == nil && len(vecRes.hits) > 0 {
		sources = append(sources, types.RetrievalSource{
			Results:         vecRes.hits,
			Weight:          o.cfg.VectorWeight,
			SourceType:      types.SourceVector,
			IsOriginalQuery: true,
		})
	}

	fused := o.engine.Fuse(sources)

	return &Response{
		Results:      truncate(fused, limit),
		TotalResults: min(len(fused), limit),
		LexicalHits:  len(lexRes.hits),
		VectorHits:   len(vecRes.hits),
	}, nil
}

// advancedSearch expands the query, fuses all variants, and reranks
func (o *Orchestrator) advancedSearch(ctx context.Context, query string, limit int) (*Response, error) {
	base, err := o.hybridishSources(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	// Expansion variants retrieve through the lexical path only; the
	// original-query multiplier already favors the user's literal query.
	expansions := o.expandQuery(ctx, query, base.lexHits)
	sources := base.sources
	for _, variant := range expansions {
		if o.cfg.Lexical == nil {
			break
		}
		hits, err := o.cfg.Lexical(ctx, variant, limit*candidateMultiplier)
		if err != nil || len(hits) == 0 {
			continue
		}
		sources = append(sources, types.RetrievalSource{
			Results:         hits,
			Weight:          o.cfg.LexicalWeight,
			SourceType:      types.SourceLexical,
			IsOriginalQuery: false,
		})
	}

	fused := o.engine.Fuse(sources)

	resp := &Response{
		ExpandedQueries: expansions,
		LexicalHits:     base.lexCount,
		VectorHits:      base.vecCount,
	}

	if o.reranker != nil {
		reranked := o.reranker.Rerank(ctx, query, fused)
		resp.Reranked = o.cfg.Oracle.Available(ctx)
		out := make([]types.SearchResult, len(reranked))
		for i, rr := range reranked {
			res := rr.SearchResult
			res.Score = rr.BlendedScore
			out[i] = res
		}
		fused = out
	}

	resp.Results = truncate(fused, limit)
	resp.TotalResults = len(resp.Results)
	return resp, nil
}

// baseSources holds the original-query retrieval sources for advanced mode
type baseSources struct {
	sources  []types.RetrievalSource
	lexHits  []types.SearchResult
	lexCount int
	vecCount int
}

// hybridishSources fetches original-query sources from whatever is wired
func (o *Orchestrator) hybridishSources(ctx context.Context, query string, limit int) (*baseSources, error) {
	out := &baseSources{}

	if o.cfg.Lexical != nil {
		hits, err := o.cfg.Lexical(ctx, query, limit*candidateMultiplier)
		if err == nil && len(hits) > 0 {
			out.sources = append(out.sources, types.RetrievalSource{
				Results:         hits,
				Weight:          o.cfg.LexicalWeight,
				SourceType:      types.SourceLexical,
				IsOriginalQuery: true,
			})
			out.lexHits = hits
			out.lexCount = len(hits)
		}
	}

	if o.canVector() {
		hits, err := o.vectorHits(ctx, query, limit*candidateMultiplier)
		if err == nil && len(hits) > 0 {
			out.sources = append(out.sources, types.RetrievalSource{
				Results:         hits,
				Weight:          o.cfg.VectorWeight,
				SourceType:      types.SourceVector,
				IsOriginalQuery: true,
			})
			out.vecCount = len(hits)
		}
	}

	return out, nil
}

// vectorHits embeds the query (through the embedding cache) and runs
// the vector backend
func (o *Orchestrator) vectorHits(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if !o.canVector() {
		return nil, fmt.Errorf("vector backend not configured")
	}

	model := o.cfg.Embedder.Model()
	vector, ok := o.caches.GetEmbedding(model, query)
	if !ok {
		emb, err := o.cfg.Embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		vector = emb.Vector
		o.caches.SetEmbedding(model, query, vector)
	}

	return o.cfg.Vector(ctx, vector, limit)
}

// LexicalFromStore adapts a document store's FTS search to a
// LexicalSearchFunc
func LexicalFromStore(store storage.Store) LexicalSearchFunc {
	return func(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
		hits, err := store.SearchText(ctx, query, limit, nil)
		if err != nil {
			return nil, err
		}
		results := make([]types.SearchResult, len(hits))
		for i, h := range hits {
			results[i] = h.ToSearchResult()
		}
		return results, nil
	}
}

// VectorFromStore adapts a document store's vector search to a
// VectorSearchFunc
func VectorFromStore(store storage.Store) VectorSearchFunc {
	return func(ctx context.Context, vector []float32, limit int) ([]types.SearchResult, error) {
		hits, err := store.SearchVector(ctx, vector, limit, nil)
		if err != nil {
			return nil, err
		}
		results := make([]types.SearchResult, len(hits))
		for i, h := range hits {
			results[i] = h.ToSearchResult()
		}
		return results, nil
	}
}

func truncate(results []types.SearchResult, limit int) []types.SearchResult {
	if len(results) <= limit {
		return results
	}
	return results[:limit]
}
