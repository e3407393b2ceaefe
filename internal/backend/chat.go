package backend

import (
	"encoding/json"
	"errors"
	"fmt"

	"MediChat/internal/session"
)

// ChatRequest represents the request body for the chat endpoint
type ChatRequest struct {
	Message             string         `json:"message"`
	SessionID           string         `json:"session_id"`
	ConversationHistory []session.Turn `json:"conversation_history"`
}

// ChatResponse represents the response from the chat endpoint.
// Response is a pointer so a missing field can be told apart from an empty reply.
type ChatResponse struct {
	Response      *string         `json:"response,omitempty"`
	Error         string          `json:"error,omitempty"`
	SessionID     string          `json:"session_id,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	ParsedContent json.RawMessage `json:"parsed_content,omitempty"`
}

// RemoteTurn is a history entry as the backend echoes it back. The backend
// records its own turns with free-form timestamps, so they stay strings.
type RemoteTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// RemoteSession represents the server-side view of a session
type RemoteSession struct {
	Messages  []RemoteTurn           `json:"messages"`
	Context   map[string]interface{} `json:"context"`
	CreatedAt *string                `json:"created_at"`
}

// ErrEmptyResponse is returned when a successful body carries no reply
var ErrEmptyResponse = errors.New("response field missing from backend reply")

// StatusError reports a non-2xx HTTP status
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Status, e.Body)
}

// RemoteError reports an application-level error field in an otherwise successful reply
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "backend error: " + e.Message
}
