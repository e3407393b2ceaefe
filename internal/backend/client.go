package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"MediChat/internal/session"
)

// Options configures a Client. Zero values fall back to sensible defaults.
type Options struct {
	BaseURL     string
	ChatPath    string
	SessionPath string
	Timeout     time.Duration // 0 means no client-side timeout
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Meter       metric.Meter
}

// Client talks to the chat backend
type Client struct {
	baseURL     string
	chatPath    string
	sessionPath string
	httpClient  *http.Client
	logger      *slog.Logger
	tracer      trace.Tracer
	duration    metric.Float64Histogram
}

// NewClient creates a new backend client
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:     base,
		chatPath:    opts.ChatPath,
		sessionPath: strings.TrimRight(opts.SessionPath, "/"),
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
	}
	if c.chatPath == "" {
		c.chatPath = "/api/chat"
	}
	if c.sessionPath == "" {
		c.sessionPath = "/api/session"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("medichat/backend")
	}

	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter("medichat/backend")
	}
	histogram, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	c.duration = histogram

	return c, nil
}

// Exchange posts the user's message with the prior conversation and returns the
// assistant reply. Any transport failure, non-2xx status, error field or missing
// response field is returned as an error; the caller decides what to show.
func (c *Client) Exchange(ctx context.Context, text, sessionID string, history []session.Turn) (string, error) {
	ctx, span := c.tracer.Start(ctx, "chat_api_call",
		trace.WithAttributes(
			attribute.String("chat.session_id", sessionID),
			attribute.Int("chat.history_length", len(history)),
		),
	)
	defer span.End()

	if history == nil {
		history = []session.Turn{}
	}
	reqBody := ChatRequest{
		Message:             text,
		SessionID:           sessionID,
		ConversationHistory: history,
	}

	body, err := c.do(ctx, http.MethodPost, c.chatPath, reqBody)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var apiResp ChatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		err = fmt.Errorf("failed to unmarshal response: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if apiResp.Error != "" {
		err := &RemoteError{Message: apiResp.Error}
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if apiResp.Response == nil {
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return "", ErrEmptyResponse
	}

	c.logger.Debug("backend replied", "session_id", sessionID, "reply_length", len(*apiResp.Response))
	return *apiResp.Response, nil
}

// FetchSession returns what the backend has recorded for a session
func (c *Client) FetchSession(ctx context.Context, sessionID string) (RemoteSession, error) {
	ctx, span := c.tracer.Start(ctx, "session_fetch",
		trace.WithAttributes(attribute.String("chat.session_id", sessionID)))
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, c.sessionPath+"/"+url.PathEscape(sessionID), nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return RemoteSession{}, err
	}

	var remote RemoteSession
	if err := json.Unmarshal(body, &remote); err != nil {
		return RemoteSession{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return remote, nil
}

// DeleteSession asks the backend to forget a session
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, span := c.tracer.Start(ctx, "session_delete",
		trace.WithAttributes(attribute.String("chat.session_id", sessionID)))
	defer span.End()

	if _, err := c.do(ctx, http.MethodDelete, c.sessionPath+"/"+url.PathEscape(sessionID), nil); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// do sends one request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	start := time.Now()

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("content-type", "application/json")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.Int("http.response.status_code", resp.StatusCode),
		),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	return body, nil
}
