package store

import (
	"context"
	"sync"

	"MediChat/internal/session"
)

// MemoryStore keeps the record in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu  sync.RWMutex
	rec *Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return Record{}, ErrNotFound
	}
	return cloneRecord(*s.rec), nil
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := cloneRecord(rec)
	s.rec = &cloned
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneRecord(rec Record) Record {
	messages := make([]session.Message, len(rec.Messages))
	copy(messages, rec.Messages)
	rec.Messages = messages
	return rec
}
