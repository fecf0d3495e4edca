package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStore) querier() querier {
	return s.db
}

// Document operations

// upsertDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) upsertDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	query := `
		INSERT INTO documents (path, line_number, title, content, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, line_number) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		doc.Path, doc.LineNumber, doc.Title, doc.Content, doc.ContentHash,
		now, now).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document) error {
	return s.upsertDocumentWithQuerier(ctx, s.querier(), doc)
}

const documentColumns = `id, path, line_number, title, content, content_hash, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*Document, error) {
	var doc Document
	var title sql.NullString
	err := row.Scan(
		&doc.ID, &doc.Path, &doc.LineNumber, &title, &doc.Content,
		&doc.ContentHash, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if title.Valid {
		doc.Title = title.String
	}
	return &doc, nil
}

// getDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getDocumentWithQuerier(ctx context.Context, q querier, docID int64) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	doc, err := scanDocument(q.QueryRowContext(ctx, query, docID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, docID int64) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), docID)
}

// getDocumentByLocationWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getDocumentByLocationWithQuerier(ctx context.Context, q querier, path string, lineNumber int) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE path = ? AND line_number = ?`
	doc, err := scanDocument(q.QueryRowContext(ctx, query, path, lineNumber))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStore) GetDocumentByLocation(ctx context.Context, path string, lineNumber int) (*Document, error) {
	return s.getDocumentByLocationWithQuerier(ctx, s.querier(), path, lineNumber)
}

// deleteDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) deleteDocumentWithQuerier(ctx context.Context, q querier, docID int64) error {
	query := `DELETE FROM documents WHERE id = ?`
	_, err := q.ExecContext(ctx, query, docID)
	return err
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID int64) error {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), docID)
}

// deleteDocumentsByPathWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) deleteDocumentsByPathWithQuerier(ctx context.Context, q querier, path string) error {
	query := `DELETE FROM documents WHERE path = ?`
	_, err := q.ExecContext(ctx, query, path)
	return err
}

func (s *SQLiteStore) DeleteDocumentsByPath(ctx context.Context, path string) error {
	return s.deleteDocumentsByPathWithQuerier(ctx, s.querier(), path)
}

// listDocumentsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) listDocumentsWithQuerier(ctx context.Context, q querier, limit, offset int) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY path, line_number
		LIMIT ? OFFSET ?
	`
	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as unlimited
	}
	rows, err := q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, limit, offset int) ([]*Document, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier(), limit, offset)
}

// Embedding operations

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (document_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		embedding.DocumentID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	if embedding.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			embedding.ID = id
		}
	}

	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStore) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

// getEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getEmbeddingWithQuerier(ctx context.Context, q querier, docID int64) (*Embedding, error) {
	query := `
		SELECT id, document_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE document_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, docID).Scan(
		&embedding.ID, &embedding.DocumentID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStore) GetEmbedding(ctx context.Context, docID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), docID)
}

// deleteEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) deleteEmbeddingWithQuerier(ctx context.Context, q querier, docID int64) error {
	query := `DELETE FROM embeddings WHERE document_id = ?`
	_, err := q.ExecContext(ctx, query, docID)
	return err
}

func (s *SQLiteStore) DeleteEmbedding(ctx context.Context, docID int64) error {
	return s.deleteEmbeddingWithQuerier(ctx, s.querier(), docID)
}

// Search operations

func (s *SQLiteStore) SearchText(ctx context.Context, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.db, query, limit, filters)
}

func (s *SQLiteStore) SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.db, vector, limit, filters)
}

// Status operations

func (s *SQLiteStore) GetStats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{}

	var docCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&docCount); err != nil {
		return nil, err
	}
	stats.DocumentsCount = docCount

	var embeddingCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&embeddingCount); err != nil {
		return nil, err
	}
	stats.EmbeddingsCount = embeddingCount

	// Calculate database size
	var pageCount, pageSize int
	err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	stats.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: embeddingCount > 0,
		FTSIndexBuilt:       true, // FTS index is created with migrations
	}

	return stats, nil
}

// Transaction implementations

// Write operations use the internal helper that uses querier()

func (t *sqliteTx) UpsertDocument(ctx context.Context, doc *Document) error {
	return t.store.upsertDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, docID int64) (*Document, error) {
	return t.store.getDocumentWithQuerier(ctx, t.querier(), docID)
}

func (t *sqliteTx) GetDocumentByLocation(ctx context.Context, path string, lineNumber int) (*Document, error) {
	return t.store.getDocumentByLocationWithQuerier(ctx, t.querier(), path, lineNumber)
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, docID int64) error {
	return t.store.deleteDocumentWithQuerier(ctx, t.querier(), docID)
}

func (t *sqliteTx) DeleteDocumentsByPath(ctx context.Context, path string) error {
	return t.store.deleteDocumentsByPathWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) ListDocuments(ctx context.Context, limit, offset int) ([]*Document, error) {
	return t.store.listDocumentsWithQuerier(ctx, t.querier(), limit, offset)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.store.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, docID int64) (*Embedding, error) {
	return t.store.getEmbeddingWithQuerier(ctx, t.querier(), docID)
}

func (t *sqliteTx) DeleteEmbedding(ctx context.Context, docID int64) error {
	return t.store.deleteEmbeddingWithQuerier(ctx, t.querier(), docID)
}

func (t *sqliteTx) SearchText(ctx context.Context, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return t.store.SearchText(ctx, query, limit, filters)
}

func (t *sqliteTx) SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return t.store.SearchVector(ctx, vector, limit, filters)
}

func (t *sqliteTx) GetStats(ctx context.Context) (*StoreStats, error) {
	return t.store.GetStats(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
