package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"MediChat/internal/config"
	"MediChat/internal/session"
)

// DefaultKey names the single persisted session entry
const DefaultKey = "medicalChatSession"

var (
	// ErrNotFound is returned by Load when nothing is stored
	ErrNotFound = errors.New("no stored session")
	// ErrCorrupt is wrapped by Load when the stored value cannot be decoded
	ErrCorrupt = errors.New("stored session is corrupt")
)

// Record is the persisted form of a session
type Record struct {
	SessionID string            `json:"sessionId"`
	Messages  []session.Message `json:"messages"`
	Timestamp int64             `json:"timestamp"` // epoch ms of the last save
}

// SavedAt returns the record timestamp as a time
func (r Record) SavedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// SessionStore persists one session snapshot, overwriting the previous one
type SessionStore interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg
func Open(cfg config.Config) (SessionStore, error) {
	switch cfg.Store {
	case config.StoreFile:
		return NewFileStore(cfg.StorePath, DefaultKey)
	case config.StoreSQLite:
		return NewSQLiteStore(filepath.Join(cfg.StorePath, "medichat.db"), DefaultKey)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store: %s", cfg.Store)
	}
}
