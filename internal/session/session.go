package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Role maps a sender to the role name the chat backend expects
func (s Sender) Role() string {
	if s == SenderUser {
		return "user"
	}
	return "assistant"
}

// Message represents a single chat message
type Message struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a chat session
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
	LoadedAt time.Time `json:"loaded_at"`
}

// New returns an empty session with a freshly generated id
func New(now time.Time) *Session {
	return &Session{
		ID:       NewID(now),
		Messages: []Message{},
		LoadedAt: now,
	}
}

// NewID generates a client-side session token from the current time and a
// random suffix. It is not guaranteed to be globally unique.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}

// IDSource hands out millisecond message ids that never repeat or go backwards
// within one process, even when two messages are created in the same millisecond.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

// Next returns max(now in ms, last id + 1)
func (s *IDSource) Next(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := now.UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe raises the floor so ids issued after a restore stay above the
// restored ones.
func (s *IDSource) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}

// Turn is the reduced form of a message sent to the backend as conversation history
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History converts messages into backend conversation turns, preserving order
func History(messages []Message) []Turn {
	turns := make([]Turn, len(messages))
	for i, msg := range messages {
		turns[i] = Turn{
			Role:      msg.Sender.Role(),
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}
	}
	return turns
}
