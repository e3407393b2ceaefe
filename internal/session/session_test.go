package session

import (
	"regexp"
	"testing"
	"time"
)

func TestNewIDFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := NewID(now)

	pattern := regexp.MustCompile(`^session_1700000000123_[0-9a-f]{9}$`)
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected session id format: %s", id)
	}

	if other := NewID(now); other == id {
		t.Fatalf("expected distinct ids for the same instant, got %s twice", id)
	}
}

func TestNewSessionIsEmpty(t *testing.T) {
	now := time.Now()
	s := New(now)

	if s.ID == "" {
		t.Fatal("expected a session id")
	}
	if s.Messages == nil || len(s.Messages) != 0 {
		t.Fatalf("expected empty non-nil messages, got %v", s.Messages)
	}
	if !s.LoadedAt.Equal(now) {
		t.Fatalf("unexpected loaded-at: %v", s.LoadedAt)
	}
}

func TestIDSourceMonotonic(t *testing.T) {
	var src IDSource
	now := time.UnixMilli(5000)

	first := src.Next(now)
	second := src.Next(now)
	third := src.Next(now.Add(-time.Second))

	if first != 5000 {
		t.Fatalf("expected first id to be the timestamp, got %d", first)
	}
	if second != 5001 || third != 5002 {
		t.Fatalf("expected tiebreak ids 5001, 5002, got %d, %d", second, third)
	}

	if later := src.Next(time.UnixMilli(9000)); later != 9000 {
		t.Fatalf("expected clock to win once it moves ahead, got %d", later)
	}
}

func TestIDSourceObserve(t *testing.T) {
	var src IDSource
	src.Observe(10000)

	if id := src.Next(time.UnixMilli(100)); id != 10001 {
		t.Fatalf("expected id above observed floor, got %d", id)
	}

	src.Observe(50)
	if id := src.Next(time.UnixMilli(100)); id != 10002 {
		t.Fatalf("observing a lower id must not move the floor back, got %d", id)
	}
}

func TestHistory(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	messages := []Message{
		{ID: 1, Content: "I have a headache", Sender: SenderUser, Timestamp: ts},
		{ID: 2, Content: "Please describe the duration.", Sender: SenderAssistant, Timestamp: ts},
	}

	turns := History(messages)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[0].Content != "I have a headache" {
		t.Fatalf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Role != "assistant" || !turns[1].Timestamp.Equal(ts) {
		t.Fatalf("unexpected second turn: %+v", turns[1])
	}

	if empty := History(nil); len(empty) != 0 {
		t.Fatalf("expected no turns for nil history, got %d", len(empty))
	}
}
