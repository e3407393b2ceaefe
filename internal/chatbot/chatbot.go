package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"MediChat/internal/backend"
	"MediChat/internal/session"
	"MediChat/internal/store"
)

const (
	// FallbackMessage replaces the assistant reply whenever the backend exchange fails
	FallbackMessage = "I apologize, but I encountered an error processing your request. Please try again."
	// Greeting is shown in place of the conversation after a clear
	Greeting = "Hello! I'm Dr. AI Assistant. How can I help you today?"
	// ClearPrompt is asked before history is discarded
	ClearPrompt = "Are you sure you want to clear the chat history? This action cannot be undone."

	DefaultTTL = 24 * time.Hour
)

// Exchanger sends one user message with its history and returns the assistant reply
type Exchanger interface {
	Exchange(ctx context.Context, text, sessionID string, history []session.Turn) (string, error)
}

// RemoteSessions gives access to the backend's copy of a session
type RemoteSessions interface {
	FetchSession(ctx context.Context, sessionID string) (backend.RemoteSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// ChatView renders the conversation
type ChatView interface {
	ShowSessionID(id string)
	ShowMessageCount(n int)
	RenderMessage(msg session.Message)
	// SetBusy toggles the typing indicator and input while a reply is pending
	SetBusy(busy bool)
	// Reset replaces the rendered conversation with a greeting placeholder
	Reset(greeting string)
	Confirm(prompt string) bool
}

// Options wires a ChatSession to its collaborators
type Options struct {
	Store   store.SessionStore
	Backend Exchanger
	View    ChatView

	Remote      RemoteSessions // optional
	ClearRemote bool           // also delete the backend's session on clear

	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// ChatSession owns the conversation: identity, ordered message log,
// persistence and the exchange with the backend.
type ChatSession struct {
	store       store.SessionStore
	backend     Exchanger
	view        ChatView
	remote      RemoteSessions
	clearRemote bool
	ttl         time.Duration
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer

	messageCounter  metric.Int64Counter
	fallbackCounter metric.Int64Counter

	ids     session.IDSource
	sending atomic.Bool

	mu      sync.Mutex
	session *session.Session
}

// New creates a ChatSession with a fresh, empty session. Call Restore to
// adopt a previously persisted one.
func New(opts Options) (*ChatSession, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session store cannot be nil")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if opts.View == nil {
		return nil, fmt.Errorf("view cannot be nil")
	}

	c := &ChatSession{
		store:       opts.Store,
		backend:     opts.Backend,
		view:        opts.View,
		remote:      opts.Remote,
		clearRemote: opts.ClearRemote,
		ttl:         opts.TTL,
		now:         opts.Now,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("medichat/chatbot")
	}

	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter("medichat/chatbot")
	}
	var err error
	c.messageCounter, err = meter.Int64Counter("chat.messages",
		metric.WithDescription("Messages appended to the conversation"))
	if err != nil {
		return nil, fmt.Errorf("failed to create message counter: %w", err)
	}
	c.fallbackCounter, err = meter.Int64Counter("chat.fallbacks",
		metric.WithDescription("Backend exchanges answered with the fallback message"))
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	c.session = session.New(c.now())
	c.logger.Info("created new session", "session_id", c.session.ID)
	c.view.ShowSessionID(c.session.ID)
	c.view.ShowMessageCount(0)

	return c, nil
}

// SessionID returns the current session id
func (c *ChatSession) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.ID
}

// Messages returns a copy of the conversation in append order
func (c *ChatSession) Messages() []session.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.Message, len(c.session.Messages))
	copy(out, c.session.Messages)
	return out
}

// MessageCount returns the number of messages in the conversation
func (c *ChatSession) MessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.session.Messages)
}

// Sending reports whether a backend exchange is outstanding
func (c *ChatSession) Sending() bool {
	return c.sending.Load()
}

// SendMessage appends the user's message, asks the backend for a reply and
// appends it, or the fallback message if the exchange fails. Empty input and
// calls made while another exchange is outstanding are dropped; the second
// return value reports whether anything was sent.
func (c *ChatSession) SendMessage(ctx context.Context, text string) (session.Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return session.Message{}, false
	}
	if !c.sending.CompareAndSwap(false, true) {
		c.logger.Debug("dropped message, request already in flight")
		return session.Message{}, false
	}
	defer c.sending.Store(false)

	ctx, span := c.tracer.Start(ctx, "send_message")
	defer span.End()

	_, sessionID, history, _ := c.appendMessage(ctx, "", text, session.SenderUser)
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	c.view.SetBusy(true)
	reply, err := c.backend.Exchange(ctx, text, sessionID, history)
	c.view.SetBusy(false)

	if err != nil {
		c.logger.Error("failed to exchange message", "session_id", sessionID, "error", err)
		span.RecordError(err)
		c.fallbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
		reply = FallbackMessage
	}

	msg, _, _, ok := c.appendMessage(ctx, sessionID, reply, session.SenderAssistant)
	if !ok {
		c.logger.Warn("discarded reply for cleared session", "session_id", sessionID)
	}
	return msg, ok
}

// appendMessage adds a message, persists the session and renders the message.
// When expectID is set the message is only added if the session still has that
// id. It returns the message, the session id and the history after the append.
func (c *ChatSession) appendMessage(ctx context.Context, expectID, content string, sender session.Sender) (session.Message, string, []session.Turn, bool) {
	c.mu.Lock()
	if expectID != "" && c.session.ID != expectID {
		c.mu.Unlock()
		return session.Message{}, "", nil, false
	}

	now := c.now()
	msg := session.Message{
		ID:        c.ids.Next(now),
		Content:   content,
		Sender:    sender,
		Timestamp: now,
	}
	c.session.Messages = append(c.session.Messages, msg)
	count := len(c.session.Messages)
	sessionID := c.session.ID
	history := session.History(c.session.Messages)
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.messageCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("sender", string(sender))))
	c.view.RenderMessage(msg)
	c.view.ShowMessageCount(count)
	return msg, sessionID, history, true
}

// persistLocked saves the current session. Failures are logged only: the
// in-memory conversation keeps working without durability.
func (c *ChatSession) persistLocked(ctx context.Context) {
	rec := store.Record{
		SessionID: c.session.ID,
		Messages:  c.session.Messages,
		Timestamp: c.now().UnixMilli(),
	}
	if err := c.store.Save(ctx, rec); err != nil {
		c.logger.Error("failed to save session", "session_id", rec.SessionID, "error", err)
		return
	}
	c.logger.Debug("session saved", "session_id", rec.SessionID, "message_count", len(rec.Messages))
}

// Persist saves the current session
func (c *ChatSession) Persist(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistLocked(ctx)
}

// Restore adopts the persisted session if one exists and was saved less than
// the TTL ago, replaying its messages into the view. Missing, unreadable or
// expired state leaves the fresh session in place. It reports whether a
// session was adopted.
func (c *ChatSession) Restore(ctx context.Context) bool {
	rec, err := c.store.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		c.logger.Warn("failed to load stored session, starting fresh", "error", err)
		return false
	}

	now := c.now()
	if age := now.Sub(rec.SavedAt()); age >= c.ttl {
		c.logger.Info("stored session expired", "session_id", rec.SessionID, "age", age.String())
		return false
	}

	messages := rec.Messages
	if messages == nil {
		messages = []session.Message{}
	}

	c.mu.Lock()
	c.session = &session.Session{ID: rec.SessionID, Messages: messages, LoadedAt: now}
	for _, msg := range messages {
		c.ids.Observe(msg.ID)
	}
	c.mu.Unlock()

	c.logger.Info("loaded existing session", "session_id", rec.SessionID, "message_count", len(messages))
	c.view.ShowSessionID(rec.SessionID)
	for _, msg := range messages {
		c.view.RenderMessage(msg)
	}
	c.view.ShowMessageCount(len(messages))
	return true
}

// ClearSession asks for confirmation, then discards the conversation, starts a
// new session id and deletes the persisted entry. It reports whether the
// history was cleared.
func (c *ChatSession) ClearSession(ctx context.Context) bool {
	if !c.view.Confirm(ClearPrompt) {
		return false
	}

	c.mu.Lock()
	oldID := c.session.ID
	c.session = session.New(c.now())
	newID := c.session.ID
	if err := c.store.Delete(ctx); err != nil {
		c.logger.Error("failed to delete stored session", "session_id", oldID, "error", err)
	}
	c.mu.Unlock()

	if c.clearRemote && c.remote != nil {
		if err := c.remote.DeleteSession(ctx, oldID); err != nil {
			c.logger.Warn("failed to delete remote session", "session_id", oldID, "error", err)
		}
	}

	c.logger.Info("session cleared", "old_session_id", oldID, "session_id", newID)
	c.view.Reset(Greeting)
	c.view.ShowSessionID(newID)
	c.view.ShowMessageCount(0)
	return true
}

// RemoteSession fetches the backend's record of the current session
func (c *ChatSession) RemoteSession(ctx context.Context) (backend.RemoteSession, error) {
	if c.remote == nil {
		return backend.RemoteSession{}, fmt.Errorf("remote sessions not available")
	}
	return c.remote.FetchSession(ctx, c.SessionID())
}

func failureReason(err error) string {
	var statusErr *backend.StatusError
	var remoteErr *backend.RemoteError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &remoteErr):
		return "remote"
	case errors.Is(err, backend.ErrEmptyResponse):
		return "empty"
	default:
		return "transport"
	}
}
