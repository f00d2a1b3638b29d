package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/omega-workflow/internal/builder"
	"github.com/pocketomega/omega-workflow/internal/config"
	"github.com/pocketomega/omega-workflow/internal/events"
	"github.com/pocketomega/omega-workflow/internal/workflow"
	"github.com/pocketomega/omega-workflow/internal/xjson"
)

// fakeBackend records the last request and answers with a fixed event
// sequence.
type fakeBackend struct {
	events []events.Event
	status int

	mu       sync.Mutex
	lastReq  *http.Request
	lastBody []byte
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.lastReq, f.lastBody = r, body
	f.mu.Unlock()
	if f.status != 0 {
		http.Error(w, "motor indisponivel", f.status)
		return
	}
	sw := events.NewResponseWriter(w)
	if sw == nil {
		return
	}
	for _, ev := range f.events {
		if err := sw.Send(ev); err != nil {
			return
		}
	}
}

func (f *fakeBackend) last() (*http.Request, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq, f.lastBody
}

func newTestClient(t *testing.T, fb *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return New(&config.BackendConfig{
		BaseURL:     srv.URL,
		Token:       "segredo",
		ExecutePath: "/workflow/execute",
		ReplyPath:   "/workflow/reply/{session_id}",
		Timeout:     5 * time.Second,
		RunTTL:      time.Minute,
	})
}

func samplePayload(t *testing.T) workflow.Payload {
	t.Helper()
	w, err := builder.New().
		AddNode("Resumo").MarkEntryPoint().SetPrompt("Resuma o caso").EndNode().
		BuildValidated()
	require.NoError(t, err)
	return w.Serialize()
}

func TestExecute_StreamsEvents(t *testing.T) {
	fb := &fakeBackend{events: []events.Event{
		events.Status{Node: "Resumo", Status: events.StatusStarted},
		events.Status{Node: "Resumo", Status: events.StatusFinished},
		events.FinalResult{Data: []byte(`{"Resumo":"pronto"}`)},
	}}
	c := newTestClient(t, fb)

	var got []events.Event
	err := c.Execute(context.Background(), samplePayload(t), func(ev events.Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, fb.events, got)

	req, body := fb.last()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/workflow/execute", req.URL.Path)
	assert.Equal(t, "Bearer segredo", req.Header.Get("Authorization"))
	assert.Equal(t, "text/event-stream", req.Header.Get("Accept"))
	_, err = uuid.Parse(req.Header.Get("X-Request-ID"))
	assert.NoError(t, err)

	var sent workflow.Payload
	require.NoError(t, xjson.Unmarshal(body, &sent))
	assert.Equal(t, "Resumo", sent.Graph.Nodes[0].Name)
}

func TestExecute_BackendError(t *testing.T) {
	c := newTestClient(t, &fakeBackend{status: http.StatusBadGateway})

	err := c.Execute(context.Background(), samplePayload(t), func(events.Event) error {
		t.Fatal("handler must not be called")
		return nil
	})
	var be *BackendError
	require.True(t, errors.As(err, &be), "got %v", err)
	assert.Equal(t, http.StatusBadGateway, be.StatusCode)
	assert.Equal(t, "motor indisponivel", be.Body)
	assert.False(t, errors.Is(err, workflow.ErrValidation))
}

func TestExecute_HandlerStops(t *testing.T) {
	fb := &fakeBackend{events: []events.Event{
		events.Status{Node: "A", Status: events.StatusStarted},
		events.Error{Message: "falhou"},
		events.Status{Node: "A", Status: events.StatusFinished},
	}}
	c := newTestClient(t, fb)

	t.Run("ErrStop ends quietly", func(t *testing.T) {
		calls := 0
		err := c.Execute(context.Background(), samplePayload(t), func(events.Event) error {
			calls++
			return ErrStop
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		err := c.Execute(context.Background(), samplePayload(t), func(ev events.Event) error {
			if _, ok := ev.(events.Error); ok {
				return boom
			}
			return nil
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestReply(t *testing.T) {
	fb := &fakeBackend{events: []events.Event{
		events.AwaitingInteraction{SessionID: "s-1", Node: "Relator", AgentMessage: "Algo mais?"},
	}}
	c := newTestClient(t, fb)

	var got events.Event
	err := c.Reply(context.Background(), "s-1", "Pode concluir", func(ev events.Event) error {
		got = ev
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, fb.events[0], got)
	req, raw := fb.last()
	assert.Equal(t, "/workflow/reply/s-1", req.URL.Path)

	var body replyBody
	require.NoError(t, xjson.Unmarshal(raw, &body))
	assert.Equal(t, replyBody{SessionID: "s-1", Message: "Pode concluir"}, body)

	assert.Error(t, c.Reply(context.Background(), "", "x", func(events.Event) error { return nil }))
}

func TestExecute_Unreachable(t *testing.T) {
	c := New(&config.BackendConfig{
		BaseURL:     "http://127.0.0.1:1",
		ExecutePath: "/x",
		Timeout:     time.Second,
	})
	err := c.Execute(context.Background(), samplePayload(t), func(events.Event) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport: post")
}
