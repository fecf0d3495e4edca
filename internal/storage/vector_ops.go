package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// previewChars caps the preview text attached to search results
const previewChars = 240

// searchVector performs vector similarity search using cosine distance
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, queryVector, limit, filters)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, db, queryVector, limit, filters)
}

// searchVectorOptimized uses sqlite-vec extension for SQL-based vector similarity search
func searchVectorOptimized(ctx context.Context, db *sql.DB, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}

	// Serialize query vector for sqlite-vec
	queryVectorBlob := serializeVector(queryVector)

	// vec_distance_cosine returns cosine distance (lower is closer)
	query := `
		SELECT
			d.id, d.path, d.line_number, d.title, d.content,
			vec_distance_cosine(e.vector, ?) as distance
		FROM documents d
		INNER JOIN embeddings e ON d.id = e.document_id
		WHERE 1=1
	`
	args := []interface{}{queryVectorBlob}

	query, args = applyPathFilter(query, args, filters)

	query += " ORDER BY distance LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		var title sql.NullString
		var content string
		if err := rows.Scan(&result.DocumentID, &result.Path, &result.LineNumber,
			&title, &content, &result.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		result.Title = title.String
		result.Preview = truncatePreview(content)
		results = append(results, result)
	}

	return results, rows.Err()
}

// searchVectorFallback performs vector search using Go-based cosine distance computation.
// Used when the sqlite-vec extension is not available (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	query := `
		SELECT
			d.id, d.path, d.line_number, d.title, d.content,
			e.vector
		FROM documents d
		INNER JOIN embeddings e ON d.id = e.document_id
		WHERE 1=1
	`
	args := []interface{}{}

	query, args = applyPathFilter(query, args, filters)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeDistances(rows, queryVector)
	if err != nil {
		return nil, err
	}

	// Sort by distance ascending (closest first)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// computeDistances processes rows and computes cosine distance in Go
func computeDistances(rows *sql.Rows, queryVector []float32) ([]VectorResult, error) {
	candidates := make([]VectorResult, 0, 256)

	for rows.Next() {
		var result VectorResult
		var title sql.NullString
		var content string
		var vectorBlob []byte
		if err := rows.Scan(&result.DocumentID, &result.Path, &result.LineNumber,
			&title, &content, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		result.Title = title.String
		result.Preview = truncatePreview(content)
		result.Distance = 1.0 - cosineSimilarity(queryVector, vector)
		candidates = append(candidates, result)
	}

	return candidates, rows.Err()
}

// searchText performs BM25 full-text search using FTS5.
// Results carry the raw signed bm25() value: FTS5 reports negative
// scores where larger magnitude means a stronger match.
func searchText(ctx context.Context, db *sql.DB, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}

	if limit <= 0 {
		return []TextResult{}, nil
	}

	sqlQuery := `
		SELECT
			d.id, d.path, d.line_number, d.title, d.content,
			bm25(documents_fts) as score
		FROM documents_fts
		INNER JOIN documents d ON documents_fts.rowid = d.id
		WHERE documents_fts MATCH ?
	`
	args := []interface{}{sanitized}

	sqlQuery, args = applyPathFilter(sqlQuery, args, filters)

	// bm25() is ascending-better, so ORDER BY score gives best first
	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var result TextResult
		var title sql.NullString
		var content string
		if err := rows.Scan(&result.DocumentID, &result.Path, &result.LineNumber,
			&title, &content, &result.BM25); err != nil {
			return nil, err
		}
		result.Title = title.String
		result.Preview = truncatePreview(content)
		results = append(results, result)
	}

	return results, rows.Err()
}

// applyPathFilter adds a path GLOB condition when a pattern is set
func applyPathFilter(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil || filters.PathPattern == "" {
		return query, args
	}
	query += " AND d.path GLOB ?"
	args = append(args, filters.PathPattern)
	return query, args
}

// truncatePreview trims content to the preview limit on a rune boundary
func truncatePreview(content string) string {
	if firstLine := strings.IndexByte(content, '\n'); firstLine >= 0 && firstLine <= previewChars {
		// Prefer a clean single-line preview when the first line fits
		if firstLine > 0 {
			return content[:firstLine]
		}
	}
	if utf8.RuneCountInString(content) <= previewChars {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewChars])
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FTS5 operator pattern for escaping Boolean operators
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery sanitizes a search query for FTS5 to prevent injection attacks.
// Escapes special FTS5 operators and characters that could be used for SQL injection.
func sanitizeFTSQuery(query string) string {
	if query == "" {
		return ""
	}

	// Replace special characters that have meaning in FTS5
	replacer := strings.NewReplacer(
		`"`, `\"`, // Quote
		`*`, `\*`, // Wildcard
		`(`, `\(`, // Grouping
		`)`, `\)`, // Grouping
	)
	escaped := replacer.Replace(query)

	// Escape Boolean operators to prevent injection
	escaped = ftsOperatorPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		return `\` + match
	})

	return escaped
}

// SerializeVector is an exported helper for callers that persist embeddings
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for reading persisted embeddings
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
