package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDocumentNotFound is returned by Get and Remove for unknown ids.
var ErrDocumentNotFound = errors.New("document not found")

// Document is a registry entry for one successfully ingested upload.
type Document struct {
	// ID is the document identifier stamped on every chunk record.
	ID string `json:"id"`
	// DisplayName is the sanitised base name of the uploaded file.
	DisplayName string `json:"name"`
	// ChunkCount is the number of chunks written to the vector store.
	ChunkCount int `json:"chunks"`
	// UploadedAt is when the document was registered.
	UploadedAt time.Time `json:"uploadedAt"`
}

// DocumentRegistry records ingested documents so users can list them and
// scope questions to one of them. Implementations must be safe for
// concurrent use.
type DocumentRegistry interface {
	// Add registers a document. UploadedAt defaults to now when zero.
	Add(ctx context.Context, doc Document) error
	// List returns every document, newest first.
	List(ctx context.Context) ([]Document, error)
	// Get returns one document or ErrDocumentNotFound.
	Get(ctx context.Context, id string) (Document, error)
	// Remove deletes a document or returns ErrDocumentNotFound.
	Remove(ctx context.Context, id string) error
}

// Add registers a document.
func (s *SQLiteStore) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("store: add: document id must not be empty")
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	const q = `INSERT INTO documents (id, display_name, chunk_count, uploaded_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, doc.ID, doc.DisplayName, doc.ChunkCount, doc.UploadedAt.UnixMilli()); err != nil {
		return fmt.Errorf("store: add %s: %w", doc.ID, err)
	}
	return nil
}

// List returns every document, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Document, error) {
	const q = `SELECT id, display_name, chunk_count, uploaded_at FROM documents ORDER BY uploaded_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list rows: %w", err)
	}
	return docs, nil
}

// Get returns the document with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, error) {
	const q = `SELECT id, display_name, chunk_count, uploaded_at FROM documents WHERE id = ?`
	d, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("store: get %s: %w", id, ErrDocumentNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return d, nil
}

// Remove deletes the document with the given id.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: remove %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: remove %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("store: remove %s: %w", id, ErrDocumentNotFound)
	}
	return nil
}

// Reset deletes every document and every conversation message.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents; DELETE FROM conversations;`); err != nil {
		return fmt.Errorf("store: reset: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one documents row.
func scanDocument(r rowScanner) (Document, error) {
	var d Document
	var ms int64
	if err := r.Scan(&d.ID, &d.DisplayName, &d.ChunkCount, &ms); err != nil {
		return Document{}, err
	}
	d.UploadedAt = time.UnixMilli(ms).UTC()
	return d, nil
}
