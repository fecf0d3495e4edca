package fusion

import (
	"math"

	"github.com/dshills/notesearch-mcp/pkg/types"
)

// cosineDistanceRange is the natural range of the cosine distance metric
// (0 = identical, 2 = opposite). Not a tunable.
const cosineDistanceRange = 2.0

// NormalizeLexicalScores rescales signed BM25 relevance scores into [0, 1].
//
// BM25 backends report signed scores where larger magnitude means more
// relevant (SQLite FTS5 uses negative-is-better), so normalization works on
// abs(score): the most relevant result in the batch maps to exactly 1, the
// least relevant to exactly 0. When every score in the batch is tied, all
// results normalize to 1.0 so rank order alone decides.
//
// Returns a new slice of the same order and length; only Score changes.
func NormalizeLexicalScores(results []types.SearchResult) []types.SearchResult {
	if len(results) == 0 {
		return []types.SearchResult{}
	}

	magnitudes := make([]float64, len(results))
	minMag, maxMag := math.Inf(1), math.Inf(-1)
	for i, r := range results {
		m := math.Abs(r.Score)
		magnitudes[i] = m
		if m < minMag {
			minMag = m
		}
		if m > maxMag {
			maxMag = m
		}
	}

	out := make([]types.SearchResult, len(results))
	for i, r := range results {
		if maxMag == minMag {
			// Uniform relevance. Avoids divide-by-zero and signals
			// "equally relevant, let rank order decide".
			r.Score = 1.0
		} else {
			r.Score = (magnitudes[i] - minMag) / (maxMag - minMag)
		}
		out[i] = r
	}

	return out
}

// NormalizeVectorScores converts vector backend results to [0, 1] similarity.
//
// Results carrying a cosine Distance map to clamp(1 - distance/2, 0, 1).
// Results without a Distance are assumed to already hold a similarity-like
// Score, which is clamped into range.
//
// Returns a new slice of the same order and length; only Score changes.
func NormalizeVectorScores(results []types.SearchResult) []types.SearchResult {
	if len(results) == 0 {
		return []types.SearchResult{}
	}

	out := make([]types.SearchResult, len(results))
	for i, r := range results {
		if r.Distance != nil {
			r.Score = clamp01(1.0 - *r.Distance/cosineDistanceRange)
		} else {
			r.Score = clamp01(r.Score)
		}
		out[i] = r
	}

	return out
}

// Normalize dispatches to the normalization rule for the given source type.
// Unknown source types pass through with scores clamped into [0, 1].
func Normalize(results []types.SearchResult, sourceType types.SourceType) []types.SearchResult {
	switch sourceType {
	case types.SourceLexical:
		return NormalizeLexicalScores(results)
	default:
		return NormalizeVectorScores(results)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
