// Package transport submits workflows to the execution backend and streams
// the resulting events back to a handler.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/pocketomega/omega-workflow/internal/config"
	"github.com/pocketomega/omega-workflow/internal/events"
	"github.com/pocketomega/omega-workflow/internal/workflow"
	"github.com/pocketomega/omega-workflow/internal/xjson"
)

// ErrStop can be returned by a Handler to end the stream without error.
var ErrStop = errors.New("transport: stop stream")

// Handler receives every event in stream order. Returning an error stops
// the stream; ErrStop stops it quietly.
type Handler func(events.Event) error

// BackendError is a non-2xx answer from the backend.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("transport: backend returned %d: %s", e.StatusCode, e.Body)
}

// maxErrorBody caps how much of a failed response is kept in BackendError.
const maxErrorBody = 4 << 10

// Client talks to one backend.
type Client struct {
	cfg  *config.BackendConfig
	http *http.Client
}

// New returns a client for cfg. The request timeout comes from cfg; a
// context deadline applies on top of it.
func New(cfg *config.BackendConfig) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// replyBody is what Reply posts.
type replyBody struct {
	SessionID string `json:"session_id"`
	Message   string `json:"mensagem"`
}

// Execute submits payload and feeds the streamed events to handler until
// the backend closes the stream.
func (c *Client) Execute(ctx context.Context, payload workflow.Payload, handler Handler) error {
	body, err := xjson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: encode payload: %w", err)
	}
	return c.stream(ctx, c.cfg.ExecuteURL(), body, handler)
}

// Reply sends the user's answer to a paused interaction and streams the
// events that follow.
func (c *Client) Reply(ctx context.Context, sessionID, message string, handler Handler) error {
	if sessionID == "" {
		return fmt.Errorf("transport: reply: session id is required")
	}
	body, err := xjson.Marshal(replyBody{SessionID: sessionID, Message: message})
	if err != nil {
		return fmt.Errorf("transport: encode reply: %w", err)
	}
	return c.stream(ctx, c.cfg.ReplyURL(sessionID), body, handler)
}

func (c *Client) stream(ctx context.Context, url string, body []byte, handler Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: build request %q: %w", url, err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	log.Printf("[Transport] POST %s (request %s)", url, requestID)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("transport: post %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &BackendError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	r := events.NewReader(resp.Body)
	count := 0
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("[Transport] Stream closed after %d events (request %s)", count, requestID)
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("transport: stream %q: %w", url, ctxErr)
			}
			return fmt.Errorf("transport: stream %q: %w", url, err)
		}
		count++
		if err := handler(ev); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}
