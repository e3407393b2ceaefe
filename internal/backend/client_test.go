package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MediChat/internal/backend"
	"MediChat/internal/session"
)

func newClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := backend.NewClient(backend.Options{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient err: %v", err)
	}
	return client
}

func TestExchangeSendsRequestAndReturnsReply(t *testing.T) {
	ts := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	history := []session.Turn{{Role: "user", Content: "hi", Timestamp: ts}, {Role: "assistant", Content: "hello", Timestamp: ts}}

	var got backend.ChatRequest
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Please describe the duration.","session_id":"s1","timestamp":"now"}`))
	})

	reply, err := client.Exchange(context.Background(), "I have a headache", "s1", history)
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if reply != "Please describe the duration." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if got.Message != "I have a headache" || got.SessionID != "s1" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if len(got.ConversationHistory) != 2 || got.ConversationHistory[1].Role != "assistant" {
		t.Fatalf("unexpected history: %+v", got.ConversationHistory)
	}
	if !got.ConversationHistory[0].Timestamp.Equal(ts) {
		t.Fatalf("timestamp not carried: %v", got.ConversationHistory[0].Timestamp)
	}
}

func TestExchangeSendsEmptyHistoryAsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"response":"ok"}`))
	})

	if _, err := client.Exchange(context.Background(), "hello", "s1", nil); err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if string(raw["conversation_history"]) != "[]" {
		t.Fatalf("expected empty array, got %s", raw["conversation_history"])
	}
}

func TestExchangeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `internal`,
			check: func(err error) bool {
				var se *backend.StatusError
				return errors.As(err, &se) && se.StatusCode == 500
			},
		},
		{
			name:   "error field",
			status: http.StatusOK,
			body:   `{"error":"Please enter a message."}`,
			check: func(err error) bool {
				var re *backend.RemoteError
				return errors.As(err, &re) && re.Message == "Please enter a message."
			},
		},
		{
			name:   "missing response",
			status: http.StatusOK,
			body:   `{"session_id":"s1"}`,
			check:  func(err error) bool { return errors.Is(err, backend.ErrEmptyResponse) },
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `<html>`,
			check:  func(err error) bool { return err != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			reply, err := client.Exchange(context.Background(), "hello", "s1", nil)
			if err == nil {
				t.Fatalf("expected error, got reply %q", reply)
			}
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExchangeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := backend.NewClient(backend.Options{BaseURL: url})
	if err != nil {
		t.Fatalf("NewClient err: %v", err)
	}
	if _, err := client.Exchange(context.Background(), "hello", "s1", nil); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestFetchAndDeleteSession(t *testing.T) {
	var deleted string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/session/s1":
			w.Write([]byte(`{"messages":[{"role":"user","content":"hi","timestamp":"2025-05-01T10:00:00Z"},{"role":"assistant","content":"hello","timestamp":"now"}],"context":{},"created_at":null}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/session/s1":
			deleted = "s1"
			w.Write([]byte(`{"message":"Session cleared"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	remote, err := client.FetchSession(ctx, "s1")
	if err != nil {
		t.Fatalf("FetchSession err: %v", err)
	}
	if len(remote.Messages) != 2 || remote.Messages[0].Content != "hi" || remote.Messages[1].Timestamp != "now" {
		t.Fatalf("unexpected remote session: %+v", remote)
	}

	if err := client.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession err: %v", err)
	}
	if deleted != "s1" {
		t.Fatal("expected delete request to reach the server")
	}

	if _, err := client.FetchSession(ctx, "other"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := backend.NewClient(backend.Options{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
