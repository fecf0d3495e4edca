package types

import "fmt"

// SourceType tags which retrieval backend produced a result batch. The tag
// determines which score normalization rule applies during fusion.
type SourceType string

const (
	// SourceLexical marks full-text search results. Scores are signed BM25
	// relevance values where larger magnitude means more relevant (SQLite
	// FTS5 reports negative-is-better).
	SourceLexical SourceType = "lexical"

	// SourceVector marks embedding similarity results. Results either carry
	// a cosine Distance in [0, 2] or a pre-computed similarity Score.
	SourceVector SourceType = "vector"
)

// SearchResult represents one matched location in the note corpus.
//
// Pipeline stages never mutate a result in place; each stage produces new
// values derived from the input, preserving all non-Score fields.
type SearchResult struct {
	// SourceKey is the opaque stable identity of the matched location,
	// conventionally "{file_path}:{line_number}". Two results with equal
	// SourceKey are the same document location and are merged, never
	// duplicated, in any output list.
	SourceKey string

	FilePath   string
	LineNumber int
	Title      string // Optional document or heading title
	Preview    string // Snippet text surrounding the match

	// Score is the relevance value for the current pipeline stage. Raw from
	// the backend, [0,1] after normalization, additive RRF contribution
	// after fusion.
	Score float64

	// Distance is the cosine distance in [0, 2], present only on vector
	// backend results (nil otherwise, lower is more similar).
	Distance *float64
}

// Key returns a SourceKey in the conventional "path:line" form.
func Key(filePath string, lineNumber int) string {
	return fmt.Sprintf("%s:%d", filePath, lineNumber)
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.SourceKey == "" {
		return ErrMissingSourceKey
	}

	if sr.LineNumber < 0 {
		return ErrInvalidLineNumber
	}

	if sr.Distance != nil && *sr.Distance < 0 {
		return ErrInvalidDistance
	}

	return nil
}

// RetrievalSource is one labeled batch of results to be fused.
//
// Results order is the sole source of rank (index 0 = best); rank is never
// taken from Score. A source is constructed per search call from one backend
// invocation and consumed once by fusion.
type RetrievalSource struct {
	Results []SearchResult

	// Weight is the nonnegative relative importance of this backend.
	Weight float64

	// SourceType selects the normalization rule for this batch.
	SourceType SourceType

	// IsOriginalQuery is true when the batch was retrieved for the user's
	// literal query, false for an expanded or rewritten variant.
	IsOriginalQuery bool
}

// RerankedResult is a SearchResult extended with oracle relevance scoring.
type RerankedResult struct {
	SearchResult

	// OracleScore is the oracle's relevance rating mapped to [0, 1]. Nil
	// when the oracle was unavailable for this result.
	OracleScore *float64

	// RetrievalRank is the 0-based position the result held before
	// reranking.
	RetrievalRank int

	// BlendedScore is the final combined score; it is also written back to
	// Score so downstream consumers need not know about reranking.
	BlendedScore float64
}
