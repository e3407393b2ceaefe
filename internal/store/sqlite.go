package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"MediChat/internal/session"
)

// SQLiteStore keeps the session snapshot in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path, key string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		key TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);`

	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		key TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id INTEGER NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		PRIMARY KEY (key, seq),
		FOREIGN KEY(key) REFERENCES sessions(key)
	);`

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := db.Exec(createMessagesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	return &SQLiteStore{db: db, key: key}, nil
}

// Load reads the stored record in message order
func (s *SQLiteStore) Load(ctx context.Context) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx, "SELECT session_id, saved_at FROM sessions WHERE key = ?", s.key).
		Scan(&rec.SessionID, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, sender, content, timestamp FROM messages WHERE key = ? ORDER BY seq",
		s.key,
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	rec.Messages = []session.Message{}
	for rows.Next() {
		var msg session.Message
		var sender, ts string
		if err := rows.Scan(&msg.ID, &sender, &msg.Content, &ts); err != nil {
			return Record{}, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Sender = session.Sender(sender)
		if msg.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return Record{}, fmt.Errorf("%w: bad timestamp %q", ErrCorrupt, ts)
		}
		rec.Messages = append(rec.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return rec, nil
}

// Save replaces the stored record in a single transaction
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (key, session_id, saved_at) VALUES (?, ?, ?)",
		s.key, rec.SessionID, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE key = ?", s.key); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	for i, msg := range rec.Messages {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO messages (key, seq, id, sender, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
			s.key, i, msg.ID, string(msg.Sender), msg.Content, msg.Timestamp.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes the stored record
func (s *SQLiteStore) Delete(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE key = ?", s.key); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE key = ?", s.key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
