// Package storage provides SQLite-based persistence for note documents.
//
// The storage layer manages:
//   - Note documents (path, line number, title, content)
//   - Vector embeddings per document
//   - FTS5 full-text search index
//
// # Database Schema
//
// Tables:
//   - documents: Note sections with content hashes
//   - documents_fts: FTS5 full-text search index over title and content
//   - embeddings: Vector embeddings for documents
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.notesearch/notes.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Store a document
//	doc := &storage.Document{
//	    Path:        "journal/2025-08-14.md",
//	    LineNumber:  42,
//	    Title:       "ORB decision",
//	    Content:     "Locked the opening range breakout entry at 9:45...",
//	    ContentHash: hash,
//	}
//	err = store.UpsertDocument(ctx, doc)
//
// # Search
//
// Lexical search returns raw FTS5 bm25() scores. These are negative,
// with larger magnitude meaning a stronger match; score normalization
// happens downstream in the fusion layer.
//
//	textHits, err := store.SearchText(ctx, "breakout entry", 50, nil)
//
// Vector search returns cosine distance in [0, 2]; lower is closer.
// With the sqlite_vec build tag the distance is computed in SQL by the
// sqlite-vec extension; purego builds fall back to Go-side cosine math.
//
//	vecHits, err := store.SearchVector(ctx, queryVector, 50, nil)
//
// # Transactions
//
// Use transactions for atomic multi-document updates:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	for _, doc := range docs {
//	    if err := tx.UpsertDocument(ctx, doc); err != nil {
//	        return err
//	    }
//	}
//
//	return tx.Commit()
//
// # Build Modes
//
// Two SQLite drivers are supported via build tags:
//   - sqlite_vec (cgo): github.com/mattn/go-sqlite3 with the sqlite-vec
//     extension for SQL-side vector search
//   - default (purego): modernc.org/sqlite, no C compiler required
package storage
