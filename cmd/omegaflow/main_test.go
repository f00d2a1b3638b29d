package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/omega-workflow/internal/config"
	"github.com/pocketomega/omega-workflow/internal/events"
	"github.com/pocketomega/omega-workflow/internal/workflow"
)

const interviewYAML = `nodes:
  - name: Entrevista
    entry_point: true
    prompt: "Conduza a entrevista sobre {tema}"
    inputs:
      - {variable: tema, upload: um}
    interaction:
      allow_user_finish: true
      max_interactions: 2
      output_mode: ultima_mensagem
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWorkflow_YAMLAndJSON(t *testing.T) {
	fromYAML, err := loadWorkflow(writeFile(t, "entrevista.yml", interviewYAML))
	require.NoError(t, err)

	payload, err := fromYAML.ToJSON()
	require.NoError(t, err)
	fromJSON, err := loadWorkflow(writeFile(t, "entrevista.json", string(payload)))
	require.NoError(t, err)

	assert.Equal(t, fromYAML.Serialize(), fromJSON.Serialize())
}

func TestLoadWorkflow_Invalid(t *testing.T) {
	_, err := loadWorkflow(writeFile(t, "quebrado.json",
		`{"documentos_anexados":[],"grafo":{"nos":[],"arestas":[]}}`))
	require.Error(t, err)
	assert.Equal(t, workflow.KindMissingEnd, workflow.KindOf(err))
}

func sseHandler(evs ...events.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := events.NewResponseWriter(w)
		for _, ev := range evs {
			if err := sw.Send(ev); err != nil {
				return
			}
		}
	}
}

func TestRunner_InteractionRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/workflow/execute", sseHandler(
		events.Status{Node: "Entrevista", Status: events.StatusStarted},
		events.AwaitingInteraction{SessionID: "s-1", Node: "Entrevista", AgentMessage: "Qual o prazo?"},
	))
	mux.Handle("/workflow/reply/s-1", sseHandler(
		events.Status{Node: "Entrevista", Status: events.StatusFinished},
		events.FinalResult{Data: []byte(`{"Entrevista":"prazo de 30 dias"}`)},
	))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := &config.BackendConfig{
		BaseURL:     srv.URL,
		ExecutePath: "/workflow/execute",
		ReplyPath:   "/workflow/reply/{session_id}",
		Timeout:     5 * time.Second,
		RunTTL:      time.Minute,
	}
	w, err := loadWorkflow(writeFile(t, "entrevista.yaml", interviewYAML))
	require.NoError(t, err)

	var out bytes.Buffer
	r := newRunner(cfg, strings.NewReader("30 dias\n"), &out)
	require.NoError(t, r.run(context.Background(), w))

	text := out.String()
	assert.Contains(t, text, "Qual o prazo?")
	assert.Contains(t, text, "- [x] Entrevista")
	assert.Contains(t, text, "prazo de 30 dias")
}

func TestRunner_NoReply(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		events.AwaitingInteraction{SessionID: "s-1", Node: "Entrevista", AgentMessage: "?"},
	))
	defer srv.Close()

	cfg := &config.BackendConfig{BaseURL: srv.URL, ExecutePath: "/", ReplyPath: "/", RunTTL: time.Minute}
	w, err := loadWorkflow(writeFile(t, "entrevista.yaml", interviewYAML))
	require.NoError(t, err)

	err = newRunner(cfg, strings.NewReader(""), &bytes.Buffer{}).run(context.Background(), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reply")
}

func TestRunner_BackendFailure(t *testing.T) {
	srv := httptest.NewServer(sseHandler(events.Error{Message: "cota excedida"}))
	defer srv.Close()

	cfg := &config.BackendConfig{BaseURL: srv.URL, ExecutePath: "/", ReplyPath: "/", RunTTL: time.Minute}
	w, err := loadWorkflow(writeFile(t, "entrevista.yaml", interviewYAML))
	require.NoError(t, err)

	err = newRunner(cfg, strings.NewReader(""), &bytes.Buffer{}).run(context.Background(), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cota excedida")
}
