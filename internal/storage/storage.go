package storage

import (
	"context"
	"time"

	"github.com/dshills/notesearch-mcp/pkg/types"
)

// Store defines the interface for persisting and querying note documents
type Store interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, docID int64) (*Document, error)
	GetDocumentByLocation(ctx context.Context, path string, lineNumber int) (*Document, error)
	DeleteDocument(ctx context.Context, docID int64) error
	DeleteDocumentsByPath(ctx context.Context, path string) error
	ListDocuments(ctx context.Context, limit, offset int) ([]*Document, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, docID int64) (*Embedding, error)
	DeleteEmbedding(ctx context.Context, docID int64) error

	// Search operations
	SearchText(ctx context.Context, query string, limit int, filters *SearchFilters) ([]TextResult, error)
	SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)

	// Status operations
	GetStats(ctx context.Context) (*StoreStats, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store // Embed Store interface for transaction operations
}

// Document represents an indexed note snippet. A note file may contribute
// several documents, one per logical section, distinguished by line number.
type Document struct {
	ID          int64
	Path        string // Relative to the notes root
	LineNumber  int    // 1-based line where the section starts
	Title       string
	Content     string
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Embedding represents a vector embedding for a document
type Embedding struct {
	ID         int64
	DocumentID int64
	Vector     []byte // Serialized float32 array
	Dimension  int
	Provider   string
	Model      string
	CreatedAt  time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	PathPattern string // Glob pattern for document paths
}

// TextResult represents a result from full-text search.
// BM25 carries the raw FTS5 bm25() value: negative, with larger
// magnitude meaning a stronger match.
type TextResult struct {
	DocumentID int64
	Path       string
	LineNumber int
	Title      string
	Preview    string
	BM25       float64
}

// VectorResult represents a result from vector similarity search.
// Distance is cosine distance in [0, 2]; lower is closer.
type VectorResult struct {
	DocumentID int64
	Path       string
	LineNumber int
	Title      string
	Preview    string
	Distance   float64
}

// StoreStats contains statistics about the document store
type StoreStats struct {
	DocumentsCount  int
	EmbeddingsCount int
	DatabaseSizeMB  float64
	Health          HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexBuilt       bool
}

// ToSearchResult converts a text result into the shared result type
func (r TextResult) ToSearchResult() types.SearchResult {
	return types.SearchResult{
		SourceKey:  types.Key(r.Path, r.LineNumber),
		FilePath:   r.Path,
		LineNumber: r.LineNumber,
		Title:      r.Title,
		Preview:    r.Preview,
		Score:      r.BM25,
	}
}

// ToSearchResult converts a vector result into the shared result type
func (r VectorResult) ToSearchResult() types.SearchResult {
	distance := r.Distance
	return types.SearchResult{
		SourceKey:  types.Key(r.Path, r.LineNumber),
		FilePath:   r.Path,
		LineNumber: r.LineNumber,
		Title:      r.Title,
		Preview:    r.Preview,
		Distance:   &distance,
	}
}
