// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// =============================================================================
// STORED TYPES
// =============================================================================

// SessionMeta contains metadata for listing sessions.
type SessionMeta struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// StoredMessage represents a persisted chat message.
type StoredMessage struct {
	ID        string
	SessionID string
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &StoreError{Message: "session not found"}

// StoreError represents a storage-related error.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session
	ON messages(session_id, created_at);
`

// defaultTitle is assigned to freshly created sessions.
const defaultTitle = "New chat"

// titleLimit caps session titles derived from the first user message.
const titleLimit = 50

// =============================================================================
// STORE
// =============================================================================

// Store handles session and message persistence in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the chat history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer; more connections just contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession inserts a new empty session and returns its metadata.
func (s *Store) CreateSession(ctx context.Context) (SessionMeta, error) {
	meta := SessionMeta{
		ID:        "sess_" + uuid.NewString(),
		Title:     defaultTitle,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, title, created_at) VALUES (?, ?, ?)",
		meta.ID, meta.Title, meta.CreatedAt)
	if err != nil {
		return SessionMeta{}, fmt.Errorf("create session: %w", err)
	}
	return meta, nil
}

// ListSessions returns all sessions, most recent first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at FROM sessions ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var m SessionMeta
		if err := rows.Scan(&m.ID, &m.Title, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// GetSession returns metadata for one session.
func (s *Store) GetSession(ctx context.Context, sessionID string) (SessionMeta, error) {
	var m SessionMeta
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, created_at FROM sessions WHERE id = ?",
		sessionID).Scan(&m.ID, &m.Title, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return SessionMeta{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionMeta{}, fmt.Errorf("get session: %w", err)
	}
	return m, nil
}

// DeleteSession removes a session and, via cascade, its messages.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// SaveMessage appends a message to a session. The first user message of
// a session also becomes the session title, truncated for display.
func (s *Store) SaveMessage(ctx context.Context, msg StoredMessage) error {
	if msg.ID == "" {
		msg.ID = "msg_" + uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sessions WHERE id = ?", msg.SessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if msg.Role == "user" {
		_, err = tx.ExecContext(ctx,
			"UPDATE sessions SET title = ? WHERE id = ? AND title = ?",
			deriveTitle(msg.Content), msg.SessionID, defaultTitle)
		if err != nil {
			return fmt.Errorf("update title: %w", err)
		}
	}

	return tx.Commit()
}

// History returns a session's messages in insertion order.
func (s *Store) History(ctx context.Context, sessionID string) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at, id",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var msgs []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteLastAssistantMessage removes a session's most recent assistant
// message. Used when an answer is regenerated so the replacement does
// not accumulate next to the original.
func (s *Store) DeleteLastAssistantMessage(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = (
			SELECT id FROM messages
			WHERE session_id = ? AND role = 'assistant'
			ORDER BY created_at DESC, id DESC LIMIT 1
		)`, sessionID)
	if err != nil {
		return fmt.Errorf("delete last assistant message: %w", err)
	}
	return nil
}

// ClearSession deletes a session's messages but keeps the session row.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM messages WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// deriveTitle turns the first user message into a session title.
// Uses rune-based truncation for Unicode safety.
func deriveTitle(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return defaultTitle
	}
	runes := []rune(content)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit-3]) + "..."
	}
	return content
}
