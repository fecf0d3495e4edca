package fusion

import (
	"sort"

	"github.com/dshills/notesearch-mcp/pkg/types"
)

// DefaultRRFConstant is the classic RRF smoothing parameter. k=60 keeps the
// ratio between adjacent ranks bounded (1/(k+1) vs 1/(k+2)) and is
// empirically validated across domains.
const DefaultRRFConstant = 60

// DefaultOriginalQueryMultiplier boosts sources retrieved for the user's
// literal query over expanded-query variants.
const DefaultOriginalQueryMultiplier = 2.0

// Options control a fusion run.
type Options struct {
	// K is the RRF smoothing constant. Values <= 0 default to 60.
	K int

	// ApplyTopBonus passes each contribution through TopRankBonus.
	ApplyTopBonus bool

	// NormalizeFirst runs each source through score normalization before
	// fusing. Normalization changes scores only, never rank.
	NormalizeFirst bool

	// OriginalQueryMultiplier scales the weight of sources with
	// IsOriginalQuery set. Values <= 0 default to 2.0.
	OriginalQueryMultiplier float64
}

// DefaultOptions returns the standard fusion configuration.
func DefaultOptions() Options {
	return Options{
		K:                       DefaultRRFConstant,
		ApplyTopBonus:           true,
		NormalizeFirst:          true,
		OriginalQueryMultiplier: DefaultOriginalQueryMultiplier,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.K <= 0 {
		opts.K = DefaultRRFConstant
	}
	if opts.OriginalQueryMultiplier <= 0 {
		opts.OriginalQueryMultiplier = DefaultOriginalQueryMultiplier
	}
	return opts
}

// Engine fuses labeled result sources with weighted Reciprocal Rank Fusion.
type Engine struct {
	opts Options
}

// NewEngine creates a fusion engine. Zero-valued option fields fall back to
// defaults; use DefaultOptions() for the standard configuration.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: normalizeOptions(opts)}
}

// accumulator tracks the fused state for one unique source key.
//
// totalScore is monotonically non-decreasing as sources are folded in; the
// first-seen payload is kept as the representative.
type accumulator struct {
	result      types.SearchResult
	totalScore  float64
	bestRank    int
	sourceCount int
	order       int // input encounter order, keeps the sort stable
}

// Fuse combines the sources into one deduplicated, ordered result list.
//
// For each result at rank r within its source the contribution is
// effectiveWeight / (k + r + 1), where effectiveWeight is the source weight
// times the original-query multiplier when applicable. Contributions for the
// same SourceKey accumulate, so a key appearing near the top of two sources
// naturally outranks a single-source top hit.
//
// Output Score fields hold the total fused contribution; all other fields
// come from the first-seen payload. Deterministic: a stable sort by
// descending score with ties broken by input encounter order.
func (e *Engine) Fuse(sources []types.RetrievalSource) []types.SearchResult {
	if len(sources) == 0 {
		return []types.SearchResult{}
	}

	accs := make(map[string]*accumulator)
	order := make([]*accumulator, 0)

	for _, src := range sources {
		results := src.Results
		if e.opts.NormalizeFirst {
			results = Normalize(results, src.SourceType)
		}

		effectiveWeight := src.Weight
		if src.IsOriginalQuery {
			effectiveWeight *= e.opts.OriginalQueryMultiplier
		}

		for rank, r := range results {
			contribution := effectiveWeight / float64(e.opts.K+rank+1)
			if e.opts.ApplyTopBonus {
				contribution = TopRankBonus(contribution, rank)
			}

			acc, ok := accs[r.SourceKey]
			if !ok {
				acc = &accumulator{
					result:   r,
					bestRank: rank,
					order:    len(order),
				}
				accs[r.SourceKey] = acc
				order = append(order, acc)
			}

			acc.totalScore += contribution
			acc.sourceCount++
			if rank < acc.bestRank {
				acc.bestRank = rank
			}
		}
	}

	// Stable sort on the numeric key; encounter order breaks exact ties.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].totalScore > order[j].totalScore
	})

	fused := make([]types.SearchResult, len(order))
	for i, acc := range order {
		r := acc.result
		r.Score = acc.totalScore
		fused[i] = r
	}

	return fused
}

// Deduplicate filters a list to the first occurrence of each SourceKey,
// preserving the first occurrence's full payload and the order of first
// appearances. Used when merging already-ranked lists without RRF.
func Deduplicate(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]types.SearchResult, 0, len(results))

	for _, r := range results {
		if _, ok := seen[r.SourceKey]; ok {
			continue
		}
		seen[r.SourceKey] = struct{}{}
		out = append(out, r)
	}

	return out
}
