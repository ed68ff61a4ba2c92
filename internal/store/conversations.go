package store

import (
	"context"
	"fmt"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser is a question asked by the user.
	RoleUser Role = "user"
	// RoleAssistant is an answer produced by the query pipeline.
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	// DocumentID scopes the message; empty for questions across all documents.
	DocumentID string `json:"documentId,omitempty"`
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the text of the message.
	Content string `json:"content"`
	// CreatedAt is when the message was persisted.
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationStore persists and retrieves question history keyed by
// document id. Implementations must be safe for concurrent use.
type ConversationStore interface {
	// Append persists a single message for the given document.
	Append(ctx context.Context, documentID string, role Role, content string) error
	// Recent returns the most recent n messages for the document, ordered
	// oldest-first. If fewer than n messages exist, all are returned.
	Recent(ctx context.Context, documentID string, n int) ([]Message, error)
}

// Append persists a single message for the given document.
func (s *SQLiteStore) Append(ctx context.Context, documentID string, role Role, content string) error {
	const q = `INSERT INTO conversations (document_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, documentID, string(role), content, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns the most recent n messages for the document, ordered
// oldest-first. Uses a subquery to select the tail then re-order it.
func (s *SQLiteStore) Recent(ctx context.Context, documentID string, n int) ([]Message, error) {
	const q = `
SELECT role, content, created_at FROM (
    SELECT id, role, content, created_at
    FROM   conversations
    WHERE  document_id = ?
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, documentID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		m := Message{DocumentID: documentID}
		var ts int64
		var role string
		if err := rows.Scan(&role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		m.Role = Role(role)
		m.CreatedAt = time.UnixMilli(ts).UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return msgs, nil
}
