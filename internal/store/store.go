// Package store is an optional append-only transcript log backed by SQLite.
// It records completed turns for audit and debugging. The relay's working
// conversation history is in-memory only; nothing here is ever read back
// into a prompt.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

type TranscriptEntry struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS transcript (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id)`)
	if err != nil {
		return fmt.Errorf("create transcript table: %w", err)
	}
	return nil
}

// AppendTurn records one completed turn: the user message and the full
// assistant response, in that order.
func (s *Store) AppendTurn(sessionID, userText, assistantText string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transcript tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range []struct{ role, content string }{
		{"user", userText},
		{"assistant", assistantText},
	} {
		if _, err := tx.Exec(
			`INSERT INTO transcript (session_id, role, content) VALUES (?, ?, ?)`,
			sessionID, m.role, m.content,
		); err != nil {
			return fmt.Errorf("append transcript: %w", err)
		}
	}
	return tx.Commit()
}

// ListForSession returns a session's transcript in insertion order.
func (s *Store) ListForSession(sessionID string) ([]TranscriptEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, created_at FROM transcript
		 WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
